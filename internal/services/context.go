package services

import "context"

type contextKey string

const (
	rowIDKey     contextKey = "row_id"
	platformKey  contextKey = "platform"
	requestIDKey contextKey = "request_id"
)

// WithRowID annotates context with the post table row identifier.
func WithRowID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, rowIDKey, id)
}

// RowIDFromContext extracts the post row identifier if present.
func RowIDFromContext(ctx context.Context) (int64, bool) {
	switch val := ctx.Value(rowIDKey).(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
	default:
		return 0, false
	}
}

// WithPlatform annotates context with the target platform name.
func WithPlatform(ctx context.Context, platform string) context.Context {
	if platform == "" {
		return ctx
	}
	return context.WithValue(ctx, platformKey, platform)
}

// PlatformFromContext returns the platform name if present.
func PlatformFromContext(ctx context.Context) (string, bool) {
	if str, ok := ctx.Value(platformKey).(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
