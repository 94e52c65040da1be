package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ariefcatur/storefront-orders/internal/redisx"
)

// Redis is a fixed window limiter shared by every API process.
type Redis struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
}

func NewRedis(rdb *redis.Client, limit int, window time.Duration) *Redis {
	return &Redis{rdb: rdb, limit: limit, window: window}
}

func (r *Redis) Allow(ctx context.Context, key string) (Result, error) {
	k := fmt.Sprintf(redisx.KeyRateLimit, key)

	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	_, err := r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, k)
		ttl = p.PTTL(ctx, k)
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("rate limit %s: %w", k, err)
	}

	remainingTTL := ttl.Val()
	if remainingTTL < 0 {
		// first hit of the window, or a key that lost its expiry
		if err := r.rdb.PExpire(ctx, k, r.window).Err(); err != nil {
			return Result{}, fmt.Errorf("rate limit expire %s: %w", k, err)
		}
		remainingTTL = r.window
	}

	count := int(incr.Val())
	res := Result{
		Allowed: count <= r.limit,
		Limit:   r.limit,
		ResetAt: time.Now().Add(remainingTTL),
	}
	if res.Allowed {
		res.Remaining = r.limit - count
	}
	return res, nil
}
