package utils

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger is the process-wide logger. It keeps the printf-style calls used by
// handlers and bootstrap code and exposes the underlying slog.Logger for
// structured records.
type Logger struct {
	sl *slog.Logger
}

func NewLogger() *Logger {
	return NewLoggerTo(os.Stdout, "info", "text")
}

func NewLoggerTo(w io.Writer, level, format string) *Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	var h slog.Handler
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return &Logger{sl: slog.New(h)}
}

// NewDiscardLogger is used by tests.
func NewDiscardLogger() *Logger {
	return NewLoggerTo(io.Discard, "error", "text")
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (l *Logger) Slog() *slog.Logger {
	if l == nil || l.sl == nil {
		return slog.Default()
	}
	return l.sl
}

func (l *Logger) Printf(format string, args ...any) {
	l.Slog().Info(strings.TrimRight(fmt.Sprintf(format, args...), "\n"))
}

func (l *Logger) Errorf(format string, args ...any) {
	l.Slog().Error(strings.TrimRight(fmt.Sprintf(format, args...), "\n"))
}

func (l *Logger) Debug(msg string, args ...any) { l.Slog().Debug(msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.Slog().Info(msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.Slog().Warn(msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.Slog().Error(msg, args...) }
