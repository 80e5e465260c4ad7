package log

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/YuminosukeSato/soilcd/pkg/errors"
)

// ZerologLogger implements Logger on top of zerolog. It is the default
// backend of the CLI: human readable console output on stderr.
type ZerologLogger struct {
	logger zerolog.Logger
	level  Level
}

// NewZerologLogger creates a console logger writing to w.
func NewZerologLogger(w io.Writer, level Level) *ZerologLogger {
	console := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	zl := zerolog.New(console).Level(toZerologLevel(level)).With().Timestamp().Logger()
	return &ZerologLogger{logger: zl, level: level}
}

// NewZerologLoggerFrom wraps an already configured zerolog.Logger.
func NewZerologLoggerFrom(zl zerolog.Logger, level Level) *ZerologLogger {
	return &ZerologLogger{logger: zl.Level(toZerologLevel(level)), level: level}
}

// Discard returns a Logger that drops every record.
func Discard() Logger {
	return &ZerologLogger{logger: zerolog.Nop(), level: LevelError + 1}
}

func toZerologLevel(level Level) zerolog.Level {
	switch {
	case level <= LevelDebug:
		return zerolog.DebugLevel
	case level <= LevelInfo:
		return zerolog.InfoLevel
	case level <= LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}

func (z *ZerologLogger) Debug(msg string, fields ...any) {
	z.emit(z.logger.Debug(), msg, fields)
}

func (z *ZerologLogger) Info(msg string, fields ...any) {
	z.emit(z.logger.Info(), msg, fields)
}

func (z *ZerologLogger) Warn(msg string, fields ...any) {
	z.emit(z.logger.Warn(), msg, fields)
}

func (z *ZerologLogger) Error(msg string, fields ...any) {
	z.emit(z.logger.Error(), msg, fields)
}

func (z *ZerologLogger) With(fields ...any) Logger {
	fields = normalizeFields(fields)
	ctx := z.logger.With()
	for i := 0; i+1 < len(fields); i += 2 {
		key := fmt.Sprint(fields[i])
		if err, ok := fields[i+1].(error); ok {
			ctx = ctx.AnErr(key, err)
			continue
		}
		ctx = ctx.Interface(key, fields[i+1])
	}
	return &ZerologLogger{logger: ctx.Logger(), level: z.level}
}

func (z *ZerologLogger) Enabled(_ context.Context, level Level) bool {
	return level >= z.level
}

// emit attaches fields to the event. Errors that know how to marshal
// themselves (the pkg/errors types) are logged as nested objects.
func (z *ZerologLogger) emit(e *zerolog.Event, msg string, fields []any) {
	if e == nil {
		return
	}
	fields = normalizeFields(fields)
	for i := 0; i+1 < len(fields); i += 2 {
		key := fmt.Sprint(fields[i])
		switch v := fields[i+1].(type) {
		case error:
			e = e.AnErr(key, v)
			var marshaler zerolog.LogObjectMarshaler
			if errors.As(v, &marshaler) {
				e = e.Object(key+"_detail", marshaler)
			}
		case string:
			e = e.Str(key, v)
		case int:
			e = e.Int(key, v)
		case int64:
			e = e.Int64(key, v)
		case float64:
			e = e.Float64(key, v)
		case float32:
			e = e.Float32(key, v)
		case bool:
			e = e.Bool(key, v)
		case time.Duration:
			e = e.Dur(key, v)
		default:
			e = e.Interface(key, v)
		}
	}
	e.Msg(msg)
}
