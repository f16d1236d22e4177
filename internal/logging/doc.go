// Package logging builds the slog loggers used across animux. It provides a
// console handler for interactive use, a JSON handler for log files, typed
// attribute helpers, component loggers, and a sampler that keeps long encode
// jobs from flooding the log with progress lines.
package logging
