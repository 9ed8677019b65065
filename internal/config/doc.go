// Package config loads, normalizes, and validates nascam configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the NASCAM_WORKING_DIR
// environment fallback. Always obtain settings through this package so
// downstream code receives sanitized paths and clear validation errors.
package config
