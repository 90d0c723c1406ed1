// Package outbox implements the transactional outbox handoff.
//
// Writers append entries inside the same database transaction as the state
// change that triggers them (claim creation, audit emission). The relay
// publishes committed entries to Kafka afterwards, which closes the classic
// dual-write gap: an entry exists if and only if its triggering transaction
// committed.
package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Aggregate types routed by the relay. Each maps to its own topic.
const (
	AggregateAudit      = "audit"
	AggregateFraudCheck = "fraud_check"
)

// Entry is one pending outbox record.
type Entry struct {
	ID            uuid.UUID
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
	PublishedAt   *time.Time
}

// Store persists outbox entries. Append participates in an enclosing
// transaction when one is carried in the context.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	// FetchUnpublished returns up to limit committed, unpublished entries in
	// creation order, locked against concurrent relays.
	FetchUnpublished(ctx context.Context, limit int) ([]Entry, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID) error
}

// NewEntry builds an entry with a fresh ID and creation time.
func NewEntry(aggregateType, aggregateID, eventType string, payload []byte) Entry {
	return Entry{
		ID:            uuid.New(),
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       payload,
		CreatedAt:     time.Now(),
	}
}
