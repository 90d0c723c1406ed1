// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// Values are set by the transport layer (middleware) but consumed by
// services. Keeping this package free of net/http lets services import only
// what they need.
//
// Usage in services (read values):
//
//	actor := requestcontext.Actor(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
//	ctx = requestcontext.WithActor(ctx, actorID)
package requestcontext

import (
	"context"
	"time"

	id "benefid/pkg/domain"
)

type (
	actorKey       struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Actor retrieves the already-authorized acting identity from the context.
// Returns the zero value if not set; operations that require an actor take
// it as an explicit parameter instead.
func Actor(ctx context.Context) id.ActorID {
	if actor, ok := ctx.Value(actorKey{}).(id.ActorID); ok {
		return actor
	}
	return id.ActorID{}
}

// WithActor injects an acting identity into the context.
func WithActor(ctx context.Context, actor id.ActorID) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(requestIDKey{}).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() for non-HTTP contexts (workers, tests, CLI).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context. Used by tests and by
// workers that need a consistent time within a batch.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}
