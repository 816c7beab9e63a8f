package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

func TestRedisLimiter_FixedWindow(t *testing.T) {
	_, rdb := newTestRedis(t)
	clock := newManualClock()
	lim := NewRedisLimiter(rdb, WithRedisClock(clock))
	policy := Policy{Window: time.Minute, MaxCount: 2}
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		d, err := lim.Allow(ctx, "create-post:alice", policy)
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	}

	clock.Advance(15 * time.Second)
	d, err := lim.Allow(ctx, "create-post:alice", policy)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 45*time.Second, d.RetryAfter)

	clock.Advance(45 * time.Second)
	d, err = lim.Allow(ctx, "create-post:alice", policy)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestRedisLimiter_SharedAcrossInstances(t *testing.T) {
	_, rdb := newTestRedis(t)
	clock := newManualClock()
	policy := Policy{Window: time.Minute, MaxCount: 1}
	ctx := context.Background()

	first := NewRedisLimiter(rdb, WithRedisClock(clock))
	second := NewRedisLimiter(rdb, WithRedisClock(clock))

	d, err := first.Allow(ctx, "delete-post:bob", policy)
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	d, err = second.Allow(ctx, "delete-post:bob", policy)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
}

func TestRedisLimiter_SetsExpiry(t *testing.T) {
	mr, rdb := newTestRedis(t)
	clock := newManualClock()
	lim := NewRedisLimiter(rdb, WithRedisClock(clock), WithRedisPrefix("test:"))

	_, err := lim.Allow(context.Background(), "k", Policy{Window: time.Minute, MaxCount: 1})
	require.NoError(t, err)

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.Contains(t, keys[0], "test:k:")
	assert.Equal(t, time.Minute, mr.TTL(keys[0]))
}

func TestRedisLimiter_BackendError(t *testing.T) {
	mr, rdb := newTestRedis(t)
	lim := NewRedisLimiter(rdb)
	mr.Close()

	_, err := lim.Allow(context.Background(), "k", Policy{Window: time.Minute, MaxCount: 1})
	assert.Error(t, err)
}
