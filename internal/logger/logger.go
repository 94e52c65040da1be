package logger

import (
	"io"
	"log/slog"
	"os"
)

// New returns a JSON logger in production and a human readable one
// everywhere else.
func New(env, service string) *slog.Logger {
	return newWithWriter(os.Stdout, env, service)
}

func newWithWriter(w io.Writer, env, service string) *slog.Logger {
	var h slog.Handler
	if env == "production" {
		h = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		h = slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	return slog.New(h).With("service", service)
}

// Discard is used by tests and by components constructed without a logger.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
