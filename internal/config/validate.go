package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateReader(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateReader() error {
	if c.Reader.Workers < 1 || c.Reader.Workers > maxWorkers {
		return fmt.Errorf("reader.workers must be between 1 and %d", maxWorkers)
	}
	if c.Reader.StaleAfterHours < 0 {
		return errors.New("reader.stale_after_hours must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q (use console or json)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
