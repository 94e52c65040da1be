package redisx

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// New connects and pings. An empty addr means redis is not configured and
// returns a nil client.
func New(ctx context.Context, addr string) (*redis.Client, error) {
	if addr == "" {
		return nil, nil
	}
	r := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := r.Ping(pingCtx).Err(); err != nil {
		_ = r.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return r, nil
}

func Exists(ctx context.Context, rdb *redis.Client, key string) (bool, error) {
	n, err := rdb.Exists(ctx, key).Result()
	return n > 0, err
}

// Idempotency remembers which order an Idempotency-Key produced. A key is
// claimed with a pending marker before the order is placed so a retry that
// races the first request cannot place a second order.
type Idempotency struct {
	rdb *redis.Client
}

func NewIdempotency(rdb *redis.Client) *Idempotency { return &Idempotency{rdb: rdb} }

// Begin claims key. It returns the stored order id with done=true when the
// key already produced an order, ErrIdempotencyInFlight when another request
// holds the claim, and (0, false, nil) when the caller now owns the key.
func (i *Idempotency) Begin(ctx context.Context, key string) (int64, bool, error) {
	k := fmt.Sprintf(KeyIdemPlaceOrder, key)
	ok, err := i.rdb.SetNX(ctx, k, idemPending, TTLIdemPending).Result()
	if err != nil {
		return 0, false, err
	}
	if ok {
		return 0, false, nil
	}

	v, err := i.rdb.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) || v == idemPending {
		// a claim that expired between the two calls is still treated as busy
		return 0, false, ErrIdempotencyInFlight
	}
	if err != nil {
		return 0, false, err
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("idempotency value %q: %w", v, err)
	}
	return id, true, nil
}

// Complete replaces the claim with the order id.
func (i *Idempotency) Complete(ctx context.Context, key string, orderID int64) error {
	return i.rdb.Set(ctx, fmt.Sprintf(KeyIdemPlaceOrder, key), orderID, TTLIdempotency).Err()
}

// Release drops a claim whose request did not produce an order.
func (i *Idempotency) Release(ctx context.Context, key string) error {
	return i.rdb.Del(ctx, fmt.Sprintf(KeyIdemPlaceOrder, key)).Err()
}
