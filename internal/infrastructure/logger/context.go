package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type contextKey int

const (
	loggerKey contextKey = iota
	scopeKey
)

// RequestScope identifies who a request acts for. Zero fields are omitted from log entries.
type RequestScope struct {
	RequestID string
	TenantID  string
	UserID    string
}

// WithContext returns a new context with the logger attached
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the logger attached to ctx, or a no-op logger
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}

// WithScope stores the request scope in ctx
func WithScope(ctx context.Context, scope RequestScope) context.Context {
	return context.WithValue(ctx, scopeKey, scope)
}

// ScopeFrom returns the request scope stored in ctx
func ScopeFrom(ctx context.Context) RequestScope {
	scope, _ := ctx.Value(scopeKey).(RequestScope)
	return scope
}

// GetRequestID returns the request id stored in ctx
func GetRequestID(ctx context.Context) string {
	return ScopeFrom(ctx).RequestID
}

// L returns the context logger enriched with the request scope and the
// trace and span ids of the active span.
//
//	logger.L(ctx).Info("period closed", zap.String("period_id", id))
func L(ctx context.Context) *zap.Logger {
	return Enrich(ctx, FromContext(ctx))
}

// Enrich adds the request scope and trace correlation of ctx to logger
func Enrich(ctx context.Context, logger *zap.Logger) *zap.Logger {
	fields := make([]zap.Field, 0, 5)

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}

	scope := ScopeFrom(ctx)
	if scope.RequestID != "" {
		fields = append(fields, zap.String("request_id", scope.RequestID))
	}
	if scope.TenantID != "" {
		fields = append(fields, zap.String("tenant_id", scope.TenantID))
	}
	if scope.UserID != "" {
		fields = append(fields, zap.String("user_id", scope.UserID))
	}

	if len(fields) == 0 {
		return logger
	}
	return logger.With(fields...)
}
