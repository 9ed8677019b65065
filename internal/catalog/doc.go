// Package catalog persists frame metadata from completed reads in SQLite.
//
// Each recorded read stores a summary row, one row per decoded frame and one
// row per problem or member failure, so operators can later query which
// exposures exist for a site or device without decoding files again.
package catalog
