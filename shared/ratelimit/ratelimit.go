// Package ratelimit counts mutating actions per key.
//
// MemoryLimiter keeps its counters in process and is only correct for a single
// process. Deployments running more than one process must use RedisLimiter,
// whose counters are incremented atomically on the Redis server.
package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Policy allows at most MaxCount actions per Window for one key.
type Policy struct {
	Window   time.Duration `yaml:"window"`
	MaxCount int           `yaml:"max_count"`
}

func (p Policy) Validate() error {
	if p.Window <= 0 {
		return fmt.Errorf("rate limit window must be positive, got %s", p.Window)
	}
	if p.MaxCount <= 0 {
		return fmt.Errorf("rate limit max_count must be positive, got %d", p.MaxCount)
	}
	return nil
}

// Decision is the answer for a single action.
type Decision struct {
	Allowed bool
	// RetryAfter is how long the caller should wait when Allowed is false.
	RetryAfter time.Duration
	Message    string
}

// Clock supplies the current instant.
type Clock interface {
	Now() time.Time
}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

// Unlimited allows every action.
type Unlimited struct{}

func (Unlimited) Allow(context.Context, string, Policy) (Decision, error) {
	return Decision{Allowed: true}, nil
}

// windowOf returns the index of the fixed window containing now and the
// instant that window ends. Windows are aligned to the unix epoch.
func windowOf(now time.Time, window time.Duration) (int64, time.Time) {
	size := window.Milliseconds()
	if size <= 0 {
		size = 1
	}
	index := now.UnixMilli() / size
	return index, time.UnixMilli((index + 1) * size)
}

func deny(p Policy, retryAfter time.Duration) Decision {
	retryAfter = retryAfter.Round(time.Second)
	if retryAfter < time.Second {
		retryAfter = time.Second
	}
	return Decision{
		Allowed:    false,
		RetryAfter: retryAfter,
		Message:    fmt.Sprintf("rate limit of %d per %s exceeded, retry in %s", p.MaxCount, p.Window, retryAfter),
	}
}
