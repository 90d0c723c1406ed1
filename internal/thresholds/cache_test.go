package thresholds

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCacheFixture(t *testing.T) (*CachedStore, *MemoryStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	backing := NewMemory()
	return NewCached(backing, client, time.Minute), backing, mr
}

func TestCachedStore(t *testing.T) {
	ctx := context.Background()

	t.Run("read-through populates the cache", func(t *testing.T) {
		cached, backing, mr := newCacheFixture(t)
		require.NoError(t, backing.SetInt(ctx, KeyRiskLookbackDays, 120))

		got, err := cached.GetInt(ctx, KeyRiskLookbackDays)
		require.NoError(t, err)
		assert.Equal(t, 120, got)

		raw, err := mr.Get("thresholds:" + KeyRiskLookbackDays)
		require.NoError(t, err)
		assert.Equal(t, "120", raw)
	})

	t.Run("cached value shields the backing store", func(t *testing.T) {
		cached, backing, _ := newCacheFixture(t)
		require.NoError(t, backing.SetInt(ctx, KeySameTypeWindowDays, 30))

		_, err := cached.GetInt(ctx, KeySameTypeWindowDays)
		require.NoError(t, err)

		// A direct backing change is invisible until the entry expires.
		require.NoError(t, backing.SetInt(ctx, KeySameTypeWindowDays, 60))
		got, err := cached.GetInt(ctx, KeySameTypeWindowDays)
		require.NoError(t, err)
		assert.Equal(t, 30, got)
	})

	t.Run("expiry bounds staleness", func(t *testing.T) {
		cached, backing, mr := newCacheFixture(t)
		require.NoError(t, backing.SetInt(ctx, KeyEditDistanceThreshold, 2))

		_, err := cached.GetInt(ctx, KeyEditDistanceThreshold)
		require.NoError(t, err)

		require.NoError(t, backing.SetInt(ctx, KeyEditDistanceThreshold, 4))
		mr.FastForward(2 * time.Minute)

		got, err := cached.GetInt(ctx, KeyEditDistanceThreshold)
		require.NoError(t, err)
		assert.Equal(t, 4, got)
	})

	t.Run("SetInt writes through and invalidates", func(t *testing.T) {
		cached, backing, mr := newCacheFixture(t)
		require.NoError(t, backing.SetInt(ctx, KeyHighFrequencyThreshold, 3))
		_, err := cached.GetInt(ctx, KeyHighFrequencyThreshold)
		require.NoError(t, err)

		require.NoError(t, cached.SetInt(ctx, KeyHighFrequencyThreshold, 7))
		assert.False(t, mr.Exists("thresholds:"+KeyHighFrequencyThreshold))

		got, err := cached.GetInt(ctx, KeyHighFrequencyThreshold)
		require.NoError(t, err)
		assert.Equal(t, 7, got)
	})
}
