package logger

import "context"

type requestIDKey struct{}

// ContextWithRequestID returns ctx carrying requestID
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestIDFrom returns the request ID stored in ctx, or ""
func RequestIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// FromContext returns l annotated with the request ID of ctx, if any
func (l *Logger) FromContext(ctx context.Context) *Logger {
	if id := RequestIDFrom(ctx); id != "" {
		return l.WithRequestID(id)
	}
	return l
}
