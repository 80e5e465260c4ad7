// Package log provides a structured logging interface for soilcd.
//
// The Logger interface is slog-compatible so that the pipeline, the model
// loader and the CLI do not care which backend emits the records. Two
// backends are provided: a zerolog console writer for interactive runs and a
// log/slog JSON handler (wrapped by ErrFmtHandler) for machine consumption.
//
// Example usage:
//
//	logger := log.NewZerologLogger(os.Stderr, log.LevelInfo).With(
//	    log.ComponentKey, "pipeline",
//	    log.RunIDKey, runID,
//	)
//	logger.Info("model loaded",
//	    log.PathKey, cfg.Model.Path,
//	    log.FeaturesKey, 18,
//	)
//
// Diagnostics are written to stderr; stdout is reserved for the prediction
// report.
package log

import (
	"context"
	"strings"

	"github.com/YuminosukeSato/soilcd/pkg/errors"
)

// Logger defines a structured logging interface compatible with Go's log/slog.
//
// Fields are alternating key/value pairs. Error additionally accepts an error
// as its first field; it is logged under ErrAttrKey.
type Logger interface {
	// Debug logs detailed diagnostic information, such as skipped rows.
	Debug(msg string, fields ...any)

	// Info logs general operational information about the run.
	Info(msg string, fields ...any)

	// Warn logs conditions that do not stop the run.
	Warn(msg string, fields ...any)

	// Error logs an error condition.
	//
	// Example:
	//   logger.Error("prediction failed",
	//       err,
	//       log.RowKey, 12,
	//   )
	Error(msg string, fields ...any)

	// With returns a new Logger with the given fields pre-populated.
	With(fields ...any) Logger

	// Enabled reports whether the logger emits log records at the given level.
	Enabled(ctx context.Context, level Level) bool
}

// Level represents a logging level, compatible with slog.Level.
type Level int

// Standard logging levels, values are compatible with slog.Level.
const (
	LevelDebug Level = -4 // Detailed diagnostic information
	LevelInfo  Level = 0  // General operational information
	LevelWarn  Level = 4  // Warning conditions
	LevelError Level = 8  // Error conditions
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

// ParseLevel converts a configuration string ("debug", "info", "warn",
// "error") into a Level.
func ParseLevel(level string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, errors.NewValidationError("log.level", "must be one of debug, info, warn, error", level)
	}
}

// normalizeFields moves a leading error value under ErrAttrKey so that every
// backend sees well-formed key/value pairs.
func normalizeFields(fields []any) []any {
	if len(fields) == 0 {
		return fields
	}
	if err, ok := fields[0].(error); ok {
		out := make([]any, 0, len(fields)+1)
		out = append(out, ErrAttrKey, err)
		return append(out, fields[1:]...)
	}
	return fields
}
