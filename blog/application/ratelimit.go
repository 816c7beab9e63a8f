package application

import (
	"context"
	"fmt"
	"time"

	"github.com/dfryer1193/newsroom/blog/domain"
	"github.com/dfryer1193/newsroom/shared/ratelimit"
)

// ActionRateLimiter counts actions per key. See package ratelimit for the
// single-process and Redis-backed implementations.
type ActionRateLimiter interface {
	Allow(ctx context.Context, key string, policy ratelimit.Policy) (ratelimit.Decision, error)
}

var (
	_ ActionRateLimiter = (*ratelimit.MemoryLimiter)(nil)
	_ ActionRateLimiter = (*ratelimit.RedisLimiter)(nil)
	_ ActionRateLimiter = ratelimit.Unlimited{}
)

// DefaultRatePolicies is used for any rate class that is not configured.
var DefaultRatePolicies = map[string]ratelimit.Policy{
	domain.RateClassCreate:   {Window: time.Minute, MaxCount: 10},
	domain.RateClassUpdate:   {Window: time.Minute, MaxCount: 30},
	domain.RateClassDelete:   {Window: time.Minute, MaxCount: 10},
	domain.RateClassSchedule: {Window: time.Minute, MaxCount: 20},
}

// RateKey builds the limiter key for actor performing op.
func RateKey(op domain.Operation, actor string) string {
	return fmt.Sprintf("%s:%s", op.RateClass(), actor)
}
