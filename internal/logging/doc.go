// Package logging assembles the structured slog loggers used across redub.
//
// It owns the console/JSON handlers, centralizes level and output plumbing,
// and exposes context-aware helpers so stage code automatically tags log lines
// with queue item IDs and stage names. A no-op logger is provided for tests
// and wiring code that cannot fail.
package logging
