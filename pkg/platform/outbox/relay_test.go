package outbox_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"benefid/pkg/platform/outbox"
)

type fakeProducer struct {
	err     error
	records []*kgo.Record
}

func (p *fakeProducer) ProduceSync(_ context.Context, records ...*kgo.Record) kgo.ProduceResults {
	results := make(kgo.ProduceResults, 0, len(records))
	for _, record := range records {
		if p.err != nil {
			results = append(results, kgo.ProduceResult{Record: record, Err: p.err})
			continue
		}
		p.records = append(p.records, record)
		results = append(results, kgo.ProduceResult{Record: record})
	}
	return results
}

func testTopics() map[string]string {
	return map[string]string{
		outbox.AggregateFraudCheck: "test.fraud-check",
		outbox.AggregateAudit:      "test.audit",
	}
}

func TestDrainPublishesAndMarks(t *testing.T) {
	ctx := context.Background()
	store := outbox.NewMemory()
	producer := &fakeProducer{}

	first := outbox.NewEntry(outbox.AggregateFraudCheck, "claim-1", "fraud_check_requested", []byte(`{}`))
	second := outbox.NewEntry(outbox.AggregateAudit, "claim-1", "claim_created", []byte(`{}`))
	require.NoError(t, store.Append(ctx, first))
	require.NoError(t, store.Append(ctx, second))

	relay := outbox.NewRelay(store, producer, testTopics())
	require.NoError(t, relay.Drain(ctx))

	require.Len(t, producer.records, 2)
	assert.Equal(t, "test.fraud-check", producer.records[0].Topic)
	assert.Equal(t, []byte("claim-1"), producer.records[0].Key)
	assert.Equal(t, "test.audit", producer.records[1].Topic)
	assert.Zero(t, store.Pending())
}

// A broker failure must leave the entry pending for the next drain and leave
// a trace in the log, not disappear silently.
func TestDrainLogsPublishFailureAndKeepsEntryPending(t *testing.T) {
	ctx := context.Background()
	store := outbox.NewMemory()
	producer := &fakeProducer{err: errors.New("broker unreachable")}

	entry := outbox.NewEntry(outbox.AggregateFraudCheck, "claim-2", "fraud_check_requested", []byte(`{}`))
	require.NoError(t, store.Append(ctx, entry))

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	relay := outbox.NewRelay(store, producer, testTopics(), outbox.WithLogger(logger))

	require.NoError(t, relay.Drain(ctx))

	assert.Equal(t, 1, store.Pending())
	assert.Contains(t, buf.String(), "outbox publish failed")
	assert.Contains(t, buf.String(), "broker unreachable")
}
