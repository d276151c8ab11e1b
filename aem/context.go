package aem

import (
	"context"

	"github.com/google/uuid"
)

type requestIDKey struct{}

// WithRequestID makes every AEM call issued with ctx carry id in X-Request-ID, so that one
// inbound request can be followed through the AEM request log.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the id stored by WithRequestID, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func requestIDFor(ctx context.Context) string {
	if id := RequestID(ctx); id != "" {
		return id
	}
	return uuid.NewString()
}
