package logger

import (
	"context"
)

// contextKey is a private type for context keys to avoid collisions.
type contextKey string

// Context keys for common logging fields.
// Values stored under these keys are automatically extracted and added
// to log entries emitted through the *Context functions.
const (
	// ContextKeySessionID identifies the capture session.
	ContextKeySessionID contextKey = "session_id"

	// ContextKeyComponent identifies the pipeline component emitting the log
	// (e.g., "session", "frames", "audio").
	ContextKeyComponent contextKey = "component"

	// ContextKeyEndpoint identifies the analysis backend endpoint.
	ContextKeyEndpoint contextKey = "endpoint"
)

// allContextKeys lists every key the ContextHandler extracts.
var allContextKeys = []contextKey{
	ContextKeySessionID,
	ContextKeyComponent,
	ContextKeyEndpoint,
}

// WithSessionID returns a context carrying the capture session ID.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, ContextKeySessionID, sessionID)
}

// WithComponent returns a context carrying the pipeline component name.
func WithComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, ContextKeyComponent, component)
}

// WithEndpoint returns a context carrying the backend endpoint.
func WithEndpoint(ctx context.Context, endpoint string) context.Context {
	return context.WithValue(ctx, ContextKeyEndpoint, endpoint)
}
