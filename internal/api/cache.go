package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// responseCache is an optional Redis read-through cache for slot listings.
// A nil client or zero TTL disables it entirely.
type responseCache struct {
	redis *redis.Client
	ttl   time.Duration
}

func newResponseCache(client *redis.Client, ttl time.Duration) *responseCache {
	return &responseCache{redis: client, ttl: ttl}
}

func slotsCacheKey(date string, practitionerID *int64) string {
	if practitionerID != nil {
		return fmt.Sprintf("slots:%s:%d", date, *practitionerID)
	}
	return fmt.Sprintf("slots:%s:all", date)
}

func (c *responseCache) read(ctx context.Context, key string, out any) bool {
	if c.redis == nil || c.ttl <= 0 {
		return false
	}
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	return json.Unmarshal([]byte(val), out) == nil
}

func (c *responseCache) write(ctx context.Context, key string, val any) {
	if c.redis == nil || c.ttl <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.ttl).Err()
}

// invalidateDay drops cached slot listings for a date after a booking
// mutation. Best effort: a missed invalidation only extends staleness to
// the TTL.
func (c *responseCache) invalidateDay(ctx context.Context, date string) {
	if c.redis == nil || c.ttl <= 0 {
		return
	}
	iter := c.redis.Scan(ctx, 0, "slots:"+date+":*", 100).Iterator()
	for iter.Next(ctx) {
		_ = c.redis.Del(ctx, iter.Val()).Err()
	}
}
