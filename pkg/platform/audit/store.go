package audit

import "context"

// Store persists audit events. Implementations must be safe for concurrent
// use; the postgres implementation writes through the transactional outbox so
// an event committed with its triggering operation is never lost.
type Store interface {
	Append(ctx context.Context, event Event) error
}
