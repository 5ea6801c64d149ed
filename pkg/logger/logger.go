package logger

import (
	"io"
	"log/slog"
)

// For returns a child logger tagged with the component name. A nil base
// yields a logger that discards output.
func For(base *slog.Logger, component string) *slog.Logger {
	if base == nil {
		base = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return base.With("component", component)
}
