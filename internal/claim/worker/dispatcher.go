package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"benefid/internal/claim/service"
	"benefid/pkg/platform/outbox"
)

// Dispatcher polls the outbox directly and runs fraud checks in-process. It
// replaces the Kafka relay+consumer pair when the registry runs as a single
// process; only fraud-check entries are executed here, anything else is
// marked published untouched.
type Dispatcher struct {
	outbox   outbox.Store
	checker  FraudChecker
	interval time.Duration
	batch    int
	logger   *slog.Logger
}

// DispatcherOption configures the Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithDispatchInterval overrides the default 200ms poll interval.
func WithDispatchInterval(d time.Duration) DispatcherOption {
	return func(p *Dispatcher) { p.interval = d }
}

// WithDispatchLogger sets the dispatcher logger.
func WithDispatchLogger(logger *slog.Logger) DispatcherOption {
	return func(p *Dispatcher) { p.logger = logger }
}

// NewDispatcher constructs a dispatcher.
func NewDispatcher(outboxStore outbox.Store, checker FraudChecker, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		outbox:   outboxStore,
		checker:  checker,
		interval: 200 * time.Millisecond,
		batch:    100,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run polls until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := d.Drain(ctx); err != nil {
				if d.logger != nil {
					d.logger.WarnContext(ctx, "fraud check drain failed", "error", err)
				}
			}
		}
	}
}

// Drain runs one batch of pending fraud checks. Entries are marked published
// whether the check succeeded or not: RunFraudCheck reports its own logic
// failures to the audit sink, and retrying them here would only storm.
func (d *Dispatcher) Drain(ctx context.Context) error {
	entries, err := d.outbox.FetchUnpublished(ctx, d.batch)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	done := make([]uuid.UUID, 0, len(entries))
	for _, entry := range entries {
		if entry.AggregateType == outbox.AggregateFraudCheck && entry.EventType == service.EventFraudCheckRequested {
			d.run(ctx, entry.Payload)
		}
		done = append(done, entry.ID)
	}
	return d.outbox.MarkPublished(ctx, done)
}

func (d *Dispatcher) run(ctx context.Context, payload []byte) {
	var req service.FraudCheckRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		if d.logger != nil {
			d.logger.ErrorContext(ctx, "malformed fraud check request dropped", "error", err)
		}
		return
	}
	if err := d.checker.RunFraudCheck(ctx, req.ClaimID); err != nil {
		if d.logger != nil {
			d.logger.ErrorContext(ctx, "fraud check failed",
				"claim_id", req.ClaimID, "error", err)
		}
	}
}
