package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	audit "benefid/pkg/platform/audit"
	"benefid/pkg/platform/outbox"
)

// Store implements audit.Store using the transactional outbox pattern.
// Events are written to the outbox table in the caller's transaction and
// published to Kafka by the relay, so an audit record exists exactly when
// the operation it describes committed.
type Store struct {
	outbox outbox.Store
}

// New creates an audit store writing through the given outbox.
func New(ob outbox.Store) *Store {
	return &Store{outbox: ob}
}

// payload is the JSON structure published to Kafka. Field names match
// audit.Event so downstream consumers can deserialize directly.
type payload struct {
	Timestamp  string            `json:"Timestamp"`
	Action     string            `json:"Action"`
	Subject    string            `json:"Subject"`
	Actor      string            `json:"Actor,omitempty"`
	Reason     string            `json:"Reason,omitempty"`
	RequestID  string            `json:"RequestID,omitempty"`
	Properties map[string]string `json:"Properties,omitempty"`
}

// Append writes an audit event to the outbox for publishing.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	body, err := json.Marshal(payload{
		Timestamp:  event.Timestamp.Format(time.RFC3339Nano),
		Action:     event.Action,
		Subject:    event.Subject,
		Actor:      event.Actor,
		Reason:     event.Reason,
		RequestID:  event.RequestID,
		Properties: event.Properties,
	})
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	entry := outbox.NewEntry(outbox.AggregateAudit, event.Subject, event.Action, body)
	if err := s.outbox.Append(ctx, entry); err != nil {
		return fmt.Errorf("append audit outbox entry: %w", err)
	}
	return nil
}
