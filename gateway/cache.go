package gateway

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// resultCache wraps an optional go-redis client caching terminal task
// results. A nil *resultCache (the default when WithCache is never
// called) is safe to use: every method is a no-op/miss.
type resultCache struct {
	client *redis.Client
	ttl    time.Duration
}

func newResultCache(client *redis.Client, ttl time.Duration) *resultCache {
	return &resultCache{client: client, ttl: ttl}
}

func resultCacheKey(taskId int64) string {
	return "eqsql:result:" + strconv.FormatInt(taskId, 10)
}

func (c *resultCache) get(ctx context.Context, taskId int64) (string, bool) {
	if c == nil {
		return "", false
	}
	val, err := c.client.Get(ctx, resultCacheKey(taskId)).Result()
	if err != nil {
		return "", false
	}
	return val, true
}

// set caches result under taskId only when the caller knows the status
// is Complete — the gateway never caches a pending or timed-out query.
func (c *resultCache) set(ctx context.Context, taskId int64, result string) {
	if c == nil {
		return
	}
	c.client.Set(ctx, resultCacheKey(taskId), result, c.ttl)
}
