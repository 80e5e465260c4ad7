package log

import (
	"context"
	"io"
	"log/slog"
)

const (
	ErrAttrKey        = "error"
	StacktraceAttrKey = "stacktrace"
)

// ErrAttr is a wrapper to pass err to slog.
func ErrAttr(err error) slog.Attr {
	return slog.Any(ErrAttrKey, err)
}

// NewJSONHandler returns the slog JSON handler used by `log.format: json`.
// Attribute names follow the Cloud Logging convention and errors are
// expanded with their stack trace by ErrFmtHandler.
func NewJSONHandler(w io.Writer, level Level) slog.Handler {
	ops := slog.HandlerOptions{
		AddSource: true,
		Level:     slog.Level(level),
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			switch attr.Key {
			case slog.LevelKey:
				attr = slog.Attr{
					Key:   "severity",
					Value: attr.Value,
				}
			case slog.MessageKey:
				attr = slog.Attr{
					Key:   "message",
					Value: attr.Value,
				}
			case slog.SourceKey:
				attr = slog.Attr{
					Key:   "logging.googleapis.com/sourceLocation",
					Value: attr.Value,
				}
			}
			return attr
		},
	}
	return WrapByErrFmtHandler(slog.NewJSONHandler(w, &ops))
}

// SlogLogger adapts *slog.Logger to Logger.
type SlogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger wraps l. A nil l uses slog.Default().
func NewSlogLogger(l *slog.Logger) *SlogLogger {
	if l == nil {
		l = slog.Default()
	}
	return &SlogLogger{logger: l}
}

// SetupLogger installs a JSON slog logger writing to w as the slog default
// and returns it as a Logger.
func SetupLogger(w io.Writer, level Level) Logger {
	l := slog.New(NewJSONHandler(w, level))
	slog.SetDefault(l)
	return NewSlogLogger(l)
}

func (s *SlogLogger) Debug(msg string, fields ...any) {
	s.logger.Debug(msg, normalizeFields(fields)...)
}

func (s *SlogLogger) Info(msg string, fields ...any) {
	s.logger.Info(msg, normalizeFields(fields)...)
}

func (s *SlogLogger) Warn(msg string, fields ...any) {
	s.logger.Warn(msg, normalizeFields(fields)...)
}

func (s *SlogLogger) Error(msg string, fields ...any) {
	s.logger.Error(msg, normalizeFields(fields)...)
}

func (s *SlogLogger) With(fields ...any) Logger {
	return &SlogLogger{logger: s.logger.With(normalizeFields(fields)...)}
}

func (s *SlogLogger) Enabled(ctx context.Context, level Level) bool {
	return s.logger.Enabled(ctx, slog.Level(level))
}
