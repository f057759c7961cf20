// Package logging provides the structured logger every npcore binary
// shares, plus a context-carried trace id for correlating log lines
// across a single connection or session.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"
)

type ctxKey int

const (
	loggerKey ctxKey = iota
	traceIDKey
)

// New builds a JSON-handler logger at the given level ("debug", "info",
// "warn", "error"; unrecognized values fall back to "info").
func New(level string) *slog.Logger {
	return NewWithWriter(os.Stderr, level)
}

// NewWithWriter is New with an explicit writer, used by tests.
func NewWithWriter(w io.Writer, level string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithTraceID mints a trace id, attaches it to both the logger and the
// returned context, and returns the context a handler should use for
// the remainder of a connection's lifetime.
func WithTraceID(ctx context.Context, logger *slog.Logger) context.Context {
	id := uuid.New()
	ctx = context.WithValue(ctx, traceIDKey, id)
	ctx = context.WithValue(ctx, loggerKey, logger.With("trace_id", id.String()))
	return ctx
}

// FromContext returns the logger attached by WithTraceID, or a bare
// default logger if none was attached (tests, background tasks).
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

// TraceID returns the trace id attached by WithTraceID, or the zero
// UUID if none was attached.
func TraceID(ctx context.Context) uuid.UUID {
	if id, ok := ctx.Value(traceIDKey).(uuid.UUID); ok {
		return id
	}
	return uuid.UUID{}
}
