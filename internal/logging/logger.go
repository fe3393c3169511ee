// Package logging builds the structured logger shared by the server and CLI.
//
// Output goes to stderr. The text handler is the default; set format to
// "json" for log shippers.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New returns a logger for the given level and format and installs it as the
// slog default so package-level slog calls share the same handler.
func New(level, format string) *slog.Logger {
	logger := NewWithWriter(os.Stderr, level, format)
	slog.SetDefault(logger)
	return logger
}

// NewWithWriter is New without touching the slog default.
func NewWithWriter(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler).With("service", "lunara")
}

// ParseLevel maps a level name to a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
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

// Discard returns a logger that drops everything. Used by tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
