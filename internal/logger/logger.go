// Package logger provides the structured logging facade used across
// chargewatch-go. It wraps log/slog behind a small interface so components
// can be handed a quiet logger in tests.
package logger

import (
	"io"
	"log/slog"
	"time"
)

// LogLevel controls the minimum level emitted by a logger.
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

// Field is a typed key/value pair attached to a log record.
type Field = slog.Attr

// Logger is the logging interface handed to every component.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	// With returns a child logger carrying the given fields on every record.
	With(fields ...Field) Logger
}

// Field constructors.

func String(key, value string) Field           { return slog.String(key, value) }
func Int(key string, value int) Field          { return slog.Int(key, value) }
func Int64(key string, value int64) Field      { return slog.Int64(key, value) }
func Uint64(key string, value uint64) Field    { return slog.Uint64(key, value) }
func Float64(key string, value float64) Field  { return slog.Float64(key, value) }
func Bool(key string, value bool) Field        { return slog.Bool(key, value) }
func Duration(key string, d time.Duration) Field {
	return slog.Duration(key, d)
}
func Any(key string, value any) Field { return slog.Any(key, value) }

// Error attaches an error under the conventional "error" key. A nil error
// logs as an empty string rather than panicking.
func Error(err error) Field {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}

type slogLogger struct {
	l *slog.Logger
}

// NewSlogLogger creates a Logger writing text records to w at the given
// level. base fields, if any, are attached to every record.
func NewSlogLogger(w io.Writer, level LogLevel, base []Field) Logger {
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: toSlogLevel(level)})
	l := slog.New(h)
	if len(base) > 0 {
		l = l.With(attrsToAny(base)...)
	}
	return &slogLogger{l: l}
}

func toSlogLevel(level LogLevel) slog.Level {
	switch level {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func attrsToAny(fields []Field) []any {
	out := make([]any, len(fields))
	for i, f := range fields {
		out[i] = f
	}
	return out
}

func (s *slogLogger) Debug(msg string, fields ...Field) { s.l.Debug(msg, attrsToAny(fields)...) }
func (s *slogLogger) Info(msg string, fields ...Field)  { s.l.Info(msg, attrsToAny(fields)...) }
func (s *slogLogger) Warn(msg string, fields ...Field)  { s.l.Warn(msg, attrsToAny(fields)...) }
func (s *slogLogger) Error(msg string, fields ...Field) { s.l.Error(msg, attrsToAny(fields)...) }

func (s *slogLogger) With(fields ...Field) Logger {
	return &slogLogger{l: s.l.With(attrsToAny(fields)...)}
}
