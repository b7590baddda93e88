package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"snipebot/internal/domain"
)

// RateLimiter implements domain.RateLimiter with a fixed window counter. The
// first request in a window creates the counter and sets its expiry; the
// window boundary error this admits is acceptable for API throttling.
type RateLimiter struct {
	rdb *redis.Client
}

// NewRateLimiter creates a RateLimiter backed by the given Client.
func NewRateLimiter(c *Client) *RateLimiter {
	return &RateLimiter{rdb: c.Underlying()}
}

func rateLimitKey(key string) string {
	return "ratelimit:" + key
}

// Allow checks whether a request for the given key is permitted, counting the
// request when it is.
func (rl *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	k := rateLimitKey(key)

	pipe := rl.rdb.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.ExpireNX(ctx, k, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("redis: rate limit allow %s: %w", key, err)
	}

	return incr.Val() <= int64(limit), nil
}

// Compile-time interface check.
var _ domain.RateLimiter = (*RateLimiter)(nil)
