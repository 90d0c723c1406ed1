package outbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Relay polls the outbox table and publishes committed entries to Kafka.
// Entries are keyed by aggregate ID so all events for one claim or identity
// land in order on the same partition. Delivery is at-least-once; consumers
// must tolerate redelivery.
// Producer is the subset of kgo.Client the relay publishes through.
type Producer interface {
	ProduceSync(ctx context.Context, records ...*kgo.Record) kgo.ProduceResults
}

type Relay struct {
	store    Store
	client   Producer
	topics   map[string]string
	interval time.Duration
	batch    int
	logger   *slog.Logger
}

// RelayOption configures the Relay.
type RelayOption func(*Relay)

// WithPollInterval overrides the default 500ms poll interval.
func WithPollInterval(d time.Duration) RelayOption {
	return func(r *Relay) { r.interval = d }
}

// WithBatchSize overrides the default fetch batch of 100 entries.
func WithBatchSize(n int) RelayOption {
	return func(r *Relay) { r.batch = n }
}

// WithLogger sets a logger for publish failures.
func WithLogger(logger *slog.Logger) RelayOption {
	return func(r *Relay) { r.logger = logger }
}

// NewRelay constructs a relay. topics maps aggregate types to Kafka topics;
// entries with an unmapped aggregate type are marked published and dropped
// with a warning rather than wedging the queue.
func NewRelay(store Store, client Producer, topics map[string]string, opts ...RelayOption) *Relay {
	r := &Relay{
		store:    store,
		client:   client,
		topics:   topics,
		interval: 500 * time.Millisecond,
		batch:    100,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// EnsureTopics creates the relay's topics if they do not exist yet.
func EnsureTopics(ctx context.Context, client *kgo.Client, topics ...string) error {
	adm := kadm.NewClient(client)
	resp, err := adm.CreateTopics(ctx, 1, 1, nil, topics...)
	if err != nil {
		return fmt.Errorf("create topics: %w", err)
	}
	for _, res := range resp.Sorted() {
		if res.Err != nil && !errors.Is(res.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", res.Topic, res.Err)
		}
	}
	return nil
}

// Run polls until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.Drain(ctx); err != nil {
				if r.logger != nil {
					r.logger.WarnContext(ctx, "outbox drain failed", "error", err)
				}
			}
		}
	}
}

// Drain publishes one batch of pending entries. Exported so tests and
// shutdown paths can flush deterministically.
func (r *Relay) Drain(ctx context.Context) error {
	entries, err := r.store.FetchUnpublished(ctx, r.batch)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	published := make([]uuid.UUID, 0, len(entries))
	for _, entry := range entries {
		topic, ok := r.topics[entry.AggregateType]
		if !ok {
			if r.logger != nil {
				r.logger.Warn("dropping outbox entry with unrouted aggregate type",
					"aggregate_type", entry.AggregateType, "entry_id", entry.ID)
			}
			published = append(published, entry.ID)
			continue
		}
		record := &kgo.Record{
			Topic: topic,
			Key:   []byte(entry.AggregateID),
			Value: entry.Payload,
		}
		if err := r.client.ProduceSync(ctx, record).FirstErr(); err != nil {
			// The entry stays pending; the next drain retries it.
			if r.logger != nil {
				r.logger.WarnContext(ctx, "outbox publish failed",
					"entry_id", entry.ID, "topic", topic, "error", err)
			}
			break
		}
		published = append(published, entry.ID)
	}

	return r.store.MarkPublished(ctx, published)
}
