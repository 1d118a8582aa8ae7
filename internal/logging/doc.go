// Package logging assembles structured slog loggers and attribute helpers used
// across mergeq.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and defines the shared field names (component, event type, run id)
// so the agent, runner, and CLI emit lines with the same shape. A no-op logger
// is provided for tests and wiring code that cannot fail.
package logging
