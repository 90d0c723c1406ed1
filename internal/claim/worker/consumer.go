// Package worker runs the asynchronous fraud-check task: a Kafka consumer
// for the distributed setup and an outbox poller for single-process runs.
package worker

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	"benefid/internal/claim/service"
	id "benefid/pkg/domain"
)

// FraudChecker is the task entry point, implemented by the claim service.
type FraudChecker interface {
	RunFraudCheck(ctx context.Context, claimID id.ClaimID) error
}

// Consumer reads fraud-check requests from Kafka and runs them. Delivery is
// at-least-once; RunFraudCheck is idempotent, so failed records are logged
// and not replayed here. A record that fails on logic would only fail again.
type Consumer struct {
	client  *kgo.Client
	checker FraudChecker
	logger  *slog.Logger
}

// ConsumerOption configures the Consumer.
type ConsumerOption func(*Consumer)

// WithLogger sets the consumer logger.
func WithLogger(logger *slog.Logger) ConsumerOption {
	return func(c *Consumer) { c.logger = logger }
}

// NewConsumer constructs a consumer over a client already configured with
// its group and the fraud-check topic.
func NewConsumer(client *kgo.Client, checker FraudChecker, opts ...ConsumerOption) *Consumer {
	c := &Consumer{client: client, checker: checker}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run polls until ctx is cancelled or the client is closed.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			if c.logger != nil {
				c.logger.ErrorContext(ctx, "fraud check fetch error",
					"topic", topic, "partition", partition, "error", err)
			}
		})
		fetches.EachRecord(func(record *kgo.Record) {
			c.handle(ctx, record.Value)
		})
	}
}

func (c *Consumer) handle(ctx context.Context, payload []byte) {
	var req service.FraudCheckRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		if c.logger != nil {
			c.logger.ErrorContext(ctx, "malformed fraud check request dropped", "error", err)
		}
		return
	}
	if err := c.checker.RunFraudCheck(ctx, req.ClaimID); err != nil {
		if c.logger != nil {
			c.logger.ErrorContext(ctx, "fraud check failed",
				"claim_id", req.ClaimID, "error", err)
		}
	}
}
