package log

import (
	"context"
	"log/slog"
)

type ctxKey string

const (
	requestIDKey ctxKey = "request_id"
	sessionIDKey ctxKey = "session_id"
)

// WithRequestID stores the HTTP request id in ctx
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// WithSessionID stores the chat session id in ctx
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

// Attrs extracts the logging attributes carried by ctx
func Attrs(ctx context.Context) []any {
	var attrs []any
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		attrs = append(attrs, slog.String("request_id", v))
	}
	if v, ok := ctx.Value(sessionIDKey).(string); ok && v != "" {
		attrs = append(attrs, slog.String("session_id", v))
	}
	return attrs
}

// FromContext returns logger enriched with the attributes carried by ctx
func FromContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	attrs := Attrs(ctx)
	if len(attrs) == 0 {
		return logger
	}
	return logger.With(attrs...)
}
