package infrastructure

import (
	"context"

	"github.com/google/uuid"
)

// NewTraceID returns a random id for correlating the log lines of one request
// or poll cycle
func NewTraceID() string {
	return uuid.NewString()
}

// EnsureTraceID returns ctx carrying a log trace id. An id already on ctx is
// kept; otherwise the active span's trace id is used, so logs and traces share
// one id, and only without a span is a random one generated.
func EnsureTraceID(ctx context.Context) context.Context {
	if GetTraceID(ctx) != "" {
		return ctx
	}
	if id := TraceIDFromContext(ctx); id != "" {
		return WithTraceID(ctx, id)
	}
	return WithTraceID(ctx, NewTraceID())
}
