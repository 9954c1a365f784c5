package obs

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "DEBUG"
	case Info:
		return "INFO"
	case Warn:
		return "WARN"
	case Error:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a config string to a Level. Unknown values yield Info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return Debug
	case "warn", "warning":
		return Warn
	case "error":
		return Error
	default:
		return Info
	}
}

func (l Level) slog() slog.Level {
	switch l {
	case Debug:
		return slog.LevelDebug
	case Warn:
		return slog.LevelWarn
	case Error:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Logger is a minimal logging interface for observability.
// Implementations must not fail the caller.
type Logger interface {
	Logf(level Level, format string, args ...interface{})
}

// NopLogger discards all logs.
type NopLogger struct{}

func (NopLogger) Logf(level Level, format string, args ...interface{}) {}

// SlogLogger adapts a *slog.Logger.
type SlogLogger struct {
	L *slog.Logger
}

// NewSlog builds a SlogLogger writing text (or JSON) records to w at min level.
func NewSlog(w io.Writer, min Level, json bool) SlogLogger {
	opts := &slog.HandlerOptions{Level: min.slog()}
	var h slog.Handler = slog.NewTextHandler(w, opts)
	if json {
		h = slog.NewJSONHandler(w, opts)
	}
	return SlogLogger{L: slog.New(h)}
}

func (s SlogLogger) Logf(level Level, format string, args ...interface{}) {
	if s.L == nil {
		return
	}
	ctx := context.Background()
	if !s.L.Enabled(ctx, level.slog()) {
		return
	}
	s.L.Log(ctx, level.slog(), fmt.Sprintf(format, args...))
}

// Or returns l, or NopLogger when l is nil.
func Or(l Logger) Logger {
	if l == nil {
		return NopLogger{}
	}
	return l
}
