package thresholds

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"benefid/pkg/platform/sentinel"
)

type failingStore struct{}

func (failingStore) GetInt(context.Context, string) (int, error) {
	return 0, sentinel.ErrUnavailable
}

func (failingStore) SetInt(context.Context, string, int) error {
	return sentinel.ErrUnavailable
}

func TestProvider_GetInt(t *testing.T) {
	ctx := context.Background()

	t.Run("returns stored value", func(t *testing.T) {
		store := NewMemory()
		require.NoError(t, store.SetInt(ctx, KeySameTypeWindowDays, 45))

		p := New(store)
		assert.Equal(t, 45, p.GetInt(ctx, KeySameTypeWindowDays))
	})

	t.Run("unset key falls back to documented default", func(t *testing.T) {
		p := New(NewMemory())
		assert.Equal(t, 90, p.GetInt(ctx, KeyRiskLookbackDays))
		assert.Equal(t, 30, p.GetInt(ctx, KeySameTypeWindowDays))
		assert.Equal(t, 3, p.GetInt(ctx, KeyHighFrequencyThreshold))
		assert.Equal(t, 3, p.GetInt(ctx, KeyEditDistanceThreshold))
	})

	t.Run("unavailable store degrades to default instead of failing", func(t *testing.T) {
		p := New(failingStore{}, WithLogger(slog.Default()))
		assert.Equal(t, 3, p.GetInt(ctx, KeyEditDistanceThreshold))
	})

	t.Run("nil store serves defaults only", func(t *testing.T) {
		p := New(nil)
		assert.Equal(t, 90, p.GetInt(ctx, KeyRiskLookbackDays))
	})

	t.Run("unknown key returns zero", func(t *testing.T) {
		p := New(NewMemory())
		assert.Equal(t, 0, p.GetInt(ctx, "risk.unknown"))
	})

	t.Run("changed value is served on the next read", func(t *testing.T) {
		store := NewMemory()
		p := New(store)
		assert.Equal(t, 3, p.GetInt(ctx, KeyHighFrequencyThreshold))

		require.NoError(t, store.SetInt(ctx, KeyHighFrequencyThreshold, 5))
		assert.Equal(t, 5, p.GetInt(ctx, KeyHighFrequencyThreshold))
	})
}
