// Package logging assembles structured slog loggers and formatting helpers used
// across cuebridge.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so player, relay, and daemon code
// can tag log lines with video, tab, and session identifiers. The package also
// provides a no-op logger for tests and wiring code that cannot fail.
package logging
