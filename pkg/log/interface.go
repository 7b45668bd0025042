// Package log provides the structured logging interface used across censusml.
//
// Library packages (estimators, the grid search, the census pipeline) log through
// the Logger interface and never import a backend directly. The command wires a
// zerolog backend with SetupLogger; tests capture records with NewTestLogger.
//
// Example usage:
//
//	logger := log.GetLoggerWithName("model_selection").With(
//	    log.ModelNameKey, "DecisionTreeClassifier",
//	)
//	logger.Info("Grid search finished",
//	    log.CandidatesKey, 18,
//	    log.ScoreKey, 0.84,
//	)
package log

import (
	"context"
)

// Logger defines a structured, slog-style logging interface.
//
// Fields are alternating key/value pairs. A bare error value in the field list
// (not following a key) is logged as the record's error, with its stack trace
// when the error carries one.
type Logger interface {
	// Debug logs a debug-level message.
	Debug(msg string, fields ...any)

	// Info logs an info-level message.
	Info(msg string, fields ...any)

	// Warn logs a warning-level message.
	Warn(msg string, fields ...any)

	// Error logs an error-level message. By convention the error itself is
	// passed as the first field:
	//
	//	logger.Error("Fit failed", err, log.OperationKey, log.OperationFit)
	Error(msg string, fields ...any)

	// With returns a Logger that adds fields to every record.
	With(fields ...any) Logger

	// Enabled reports whether records at level would be emitted.
	Enabled(ctx context.Context, level Level) bool
}

// Level represents a logging level, compatible with slog.Level.
type Level int

// Standard logging levels, values are compatible with slog.Level.
const (
	LevelDebug Level = -4
	LevelInfo  Level = 0
	LevelWarn  Level = 4
	LevelError Level = 8
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// LoggerProvider hands out loggers. The package-level GetLogger and
// GetLoggerWithName delegate to the installed provider.
type LoggerProvider interface {
	GetLogger() Logger
	GetLoggerWithName(name string) Logger
	SetLevel(level Level)
}
