package thresholds

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// CachedStore decorates a Store with a Redis read-through cache. Entries
// expire after ttl, which bounds how stale a served threshold can be after
// an admin change lands in the backing store.
type CachedStore struct {
	next   Store
	client redis.Cmdable
	ttl    time.Duration
}

// NewCached wraps next with a Redis cache.
func NewCached(next Store, client redis.Cmdable, ttl time.Duration) *CachedStore {
	return &CachedStore{next: next, client: client, ttl: ttl}
}

func cacheKey(key string) string {
	return "thresholds:" + key
}

func (c *CachedStore) GetInt(ctx context.Context, key string) (int, error) {
	raw, err := c.client.Get(ctx, cacheKey(key)).Result()
	if err == nil {
		if value, convErr := strconv.Atoi(raw); convErr == nil {
			return value, nil
		}
		// Corrupt cache entry; fall through to the store and overwrite.
	} else if !errors.Is(err, redis.Nil) {
		// Cache down: read the store directly rather than failing.
		return c.next.GetInt(ctx, key)
	}

	value, err := c.next.GetInt(ctx, key)
	if err != nil {
		return 0, err
	}
	// Best-effort populate; a failed SET only costs the next read a miss.
	c.client.Set(ctx, cacheKey(key), strconv.Itoa(value), c.ttl)
	return value, nil
}

func (c *CachedStore) SetInt(ctx context.Context, key string, value int) error {
	if err := c.next.SetInt(ctx, key, value); err != nil {
		return err
	}
	// Invalidate rather than write: if the DEL is lost the stale value still
	// ages out within ttl, which is the documented staleness bound.
	c.client.Del(ctx, cacheKey(key))
	return nil
}
