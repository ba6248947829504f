// Package logging builds the slog loggers used by cinespin.
//
// It owns the console and JSON handlers, per-component level overrides, and
// the context helpers that tag log lines with request correlation IDs and
// viewer regions. NewNop gives tests and optional wiring a logger that never
// fails.
package logging
