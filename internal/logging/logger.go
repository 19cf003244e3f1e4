package logging

import (
	"io"
	"log/slog"
	"os"
)

// New creates the service logger on stdout. Development environments get the
// text handler, everything else emits JSON. An invalid level falls back to info.
func New(level, env string) *slog.Logger {
	return NewWithWriter(os.Stdout, level, env != "production" && env != "staging")
}

// NewWithWriter builds a logger on w and tags every record with the service name.
func NewWithWriter(w io.Writer, level string, text bool) *slog.Logger {
	lvl := new(slog.LevelVar)
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	if text {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(handler).With("service", "p2p-wallet")
}

// Discard returns a logger that drops all output.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}
