// internal/queries/stats.go
package queries

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"medclaim-portal/internal/models"
)

const statsCacheKey = "queries:stats:unread"

// StatsCache keeps the dashboard counters in Redis for the poll-heavy
// stats endpoint. Every query mutation invalidates it; the counters are
// always recomputable from Postgres.
type StatsCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStatsCache(rdb *redis.Client, ttlSeconds int) *StatsCache {
	return &StatsCache{
		rdb: rdb,
		ttl: time.Duration(ttlSeconds) * time.Second,
	}
}

// Get returns the cached stats, or nil on miss. Redis errors degrade to a
// miss; the caller falls through to Postgres.
func (c *StatsCache) Get(ctx context.Context) *models.QueryStats {
	raw, err := c.rdb.Get(ctx, statsCacheKey).Result()
	if err != nil {
		return nil
	}

	var stats models.QueryStats
	if err := json.Unmarshal([]byte(raw), &stats); err != nil {
		return nil
	}
	return &stats
}

// Set caches the stats for the configured TTL.
func (c *StatsCache) Set(ctx context.Context, stats *models.QueryStats) {
	raw, err := json.Marshal(stats)
	if err != nil {
		return
	}
	_ = c.rdb.Set(ctx, statsCacheKey, raw, c.ttl).Err()
}

// Invalidate drops the cached counters after a mutation.
func (c *StatsCache) Invalidate(ctx context.Context) {
	_ = c.rdb.Del(ctx, statsCacheKey).Err()
}
