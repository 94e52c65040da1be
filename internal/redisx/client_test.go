package redisx

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getRedisClient(t *testing.T) *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	client, err := New(context.Background(), addr)
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	return client
}

func TestNewWithoutAddr(t *testing.T) {
	client, err := New(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, client)
}

func TestIdempotencyRoundTrip(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	idem := NewIdempotency(client)
	key := "test-" + uuid.NewString()

	_, done, err := idem.Begin(ctx, key)
	require.NoError(t, err)
	assert.False(t, done)

	_, _, err = idem.Begin(ctx, key)
	require.ErrorIs(t, err, ErrIdempotencyInFlight)

	require.NoError(t, idem.Complete(ctx, key, 1700000000123))
	id, done, err := idem.Begin(ctx, key)
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, int64(1700000000123), id)

	ok, err := Exists(ctx, client, "idem:order:place:"+key)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestIdempotencyRelease(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	idem := NewIdempotency(client)
	key := "test-" + uuid.NewString()

	_, _, err := idem.Begin(ctx, key)
	require.NoError(t, err)
	require.NoError(t, idem.Release(ctx, key))

	_, done, err := idem.Begin(ctx, key)
	require.NoError(t, err)
	assert.False(t, done)
	require.NoError(t, idem.Release(ctx, key))
}
