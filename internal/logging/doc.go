// Package logging assembles structured slog loggers and formatting helpers used
// across the reader and the CLI.
//
// It owns the console and JSON handlers, level parsing and output plumbing,
// the standard field keys, and a no-op logger for tests and library callers
// that do not want output. Prefer these constructors over hand-rolled slog
// setup so every component emits the same shape.
package logging
