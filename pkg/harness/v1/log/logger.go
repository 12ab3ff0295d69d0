// Package log defines the public logging interface used across the harness.
package log

import (
	"context"
	"log/slog"
)

// Logger is the logging contract shared by all harness components. It mirrors
// common patterns from slog so alternative implementations can be swapped in
// by embedders (tests use the same interface).
type Logger interface {
	// Debugf logs a formatted message at the DEBUG level.
	// Arguments are handled in the manner of fmt.Sprintf.
	Debugf(format string, args ...interface{})
	// Infof logs a formatted message at the INFO level.
	Infof(format string, args ...interface{})
	// Warnf logs a formatted message at the WARN level.
	Warnf(format string, args ...interface{})
	// Errorf logs a formatted message at the ERROR level. Implementations
	// should check whether the last argument is an error and log it
	// structurally when it is.
	Errorf(format string, args ...interface{})

	// Log logs a message at the specified slog.Level with additional
	// key-value attributes. This is the primary structured logging method.
	Log(level slog.Level, msg string, args ...interface{})
	// LogCtx logs a message at the specified slog.Level, including context
	// information like trace IDs when the implementation supports it.
	LogCtx(ctx context.Context, level slog.Level, msg string, args ...interface{})

	// With returns a new Logger with the given attributes added to all
	// subsequent entries.
	With(args ...interface{}) Logger
	// IsEnabled reports whether the logger emits entries at the given level.
	IsEnabled(level slog.Level) bool
}
