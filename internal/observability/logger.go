package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
)

type ctxKey string

const (
	ctxKeyConnID ctxKey = "conn_id"
)

// NewLogger returns a JSON logger writing to stdout at level.
func NewLogger(level slog.Level) *slog.Logger {
	return NewLoggerTo(os.Stdout, level)
}

// NewLoggerTo is NewLogger with an explicit writer.
func NewLoggerTo(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// WithConnID stores a connection id in the context.
func WithConnID(ctx context.Context, connID string) context.Context {
	return context.WithValue(ctx, ctxKeyConnID, connID)
}

// LoggerFromContext adds conn_id if present.
func LoggerFromContext(ctx context.Context, log *slog.Logger) *slog.Logger {
	id, _ := ctx.Value(ctxKeyConnID).(string)
	if id == "" {
		return log
	}
	return log.With("conn_id", id)
}
