// Package logging builds the slog loggers used across Folio.
//
// It supports console and JSON output, optional log-file teeing, and
// standardized attribute keys so pool, worker, and codec log lines stay
// greppable. NewNop returns a discard logger for tests.
package logging
