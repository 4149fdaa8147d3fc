// Package logging assembles structured slog loggers used across autopost.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so posting code can tag log
// lines with the post row, the target platform and a run correlation ID.
// A no-op logger is provided for tests and wiring code that cannot fail.
package logging
