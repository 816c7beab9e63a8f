package ratelimit

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter is a fixed window counter shared by every process using the
// same Redis. INCR and PEXPIRE run in one MULTI block.
type RedisLimiter struct {
	rdb    redis.UniversalClient
	prefix string
	clock  Clock
}

type RedisOption func(*RedisLimiter)

func WithRedisPrefix(prefix string) RedisOption {
	return func(r *RedisLimiter) {
		r.prefix = strings.Trim(prefix, ":")
	}
}

func WithRedisClock(c Clock) RedisOption {
	return func(r *RedisLimiter) { r.clock = c }
}

func NewRedisLimiter(rdb redis.UniversalClient, opts ...RedisOption) *RedisLimiter {
	r := &RedisLimiter{
		rdb:    rdb,
		prefix: "newsroom:ratelimit",
		clock:  wallClock{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *RedisLimiter) Allow(ctx context.Context, key string, p Policy) (Decision, error) {
	if err := p.Validate(); err != nil {
		return Decision{}, err
	}

	now := r.clock.Now()
	index, windowEnd := windowOf(now, p.Window)
	counterKey := fmt.Sprintf("%s:%s:%d", r.prefix, key, index)

	pipe := r.rdb.TxPipeline()
	incr := pipe.Incr(ctx, counterKey)
	pipe.PExpire(ctx, counterKey, p.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{}, fmt.Errorf("failed to increment rate counter %s: %w", counterKey, err)
	}

	if incr.Val() <= int64(p.MaxCount) {
		return Decision{Allowed: true}, nil
	}

	return deny(p, windowEnd.Sub(now)), nil
}
