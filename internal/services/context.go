package services

import "context"

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	regionKey    contextKey = "region"
)

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

// WithRegion annotates context with the viewer's region code.
func WithRegion(ctx context.Context, region string) context.Context {
	if region == "" {
		return ctx
	}
	return context.WithValue(ctx, regionKey, region)
}

// RegionFromContext returns the region code if present.
func RegionFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(regionKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
