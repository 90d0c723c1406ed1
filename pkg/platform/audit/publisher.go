// Package audit provides the audit trail sink consumed by the core services.
//
// The publisher has fail-closed semantics: Emit blocks until the event is
// persisted, and a failed write is returned to the caller so the business
// operation does not proceed unrecorded. Delivery beyond the outbox is the
// relay's responsibility.
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Publisher writes audit events to a store synchronously.
type Publisher struct {
	store  Store
	logger *slog.Logger
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithLogger sets a logger for error reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// NewPublisher creates a publisher over the given store. The store should be
// outbox-backed where delivery must be guaranteed.
func NewPublisher(store Store, opts ...Option) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit synchronously writes an audit event. Returns an error if persistence
// fails - the caller must fail its operation rather than drop the record.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Action == "" {
		return fmt.Errorf("audit event requires Action")
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if err := p.store.Append(ctx, event); err != nil {
		if p.logger != nil {
			p.logger.ErrorContext(ctx, "audit persistence failed",
				"action", event.Action,
				"subject", event.Subject,
				"error", err,
			)
		}
		return fmt.Errorf("audit persistence failed: %w", err)
	}
	return nil
}
