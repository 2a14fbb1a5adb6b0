package logger

import "context"

type contextKey string

const (
	loggerKey    contextKey = "magma.logger"
	attemptIDKey contextKey = "magma.attempt_id"
	traceIDKey   contextKey = "magma.trace_id"
)

// WithLogger adds a logger to the context.
func WithLogger(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext returns the context logger or the default logger.
func FromContext(ctx context.Context) Logger {
	if l, ok := ctx.Value(loggerKey).(Logger); ok {
		return l
	}
	return Default()
}

// WithAttemptID tags the context with an authentication attempt ID.
func WithAttemptID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, attemptIDKey, id)
}

// AttemptIDFromContext returns the attempt ID or "".
func AttemptIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(attemptIDKey).(string)
	return id
}

// WithTraceID adds a trace ID to the context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// TraceIDFromContext returns the trace ID or "".
func TraceIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(traceIDKey).(string)
	return id
}

// L returns the context logger enriched with the attempt and trace IDs
// found in ctx.
func L(ctx context.Context) Logger {
	l := FromContext(ctx)
	if id := AttemptIDFromContext(ctx); id != "" {
		l = l.With("attempt_id", id)
	}
	if id := TraceIDFromContext(ctx); id != "" {
		l = l.With("trace_id", id)
	}
	return l.WithContext(ctx)
}
