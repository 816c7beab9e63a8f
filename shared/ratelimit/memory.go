package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter is a fixed window counter per key, using the same windows as
// RedisLimiter. Counters live in process memory.
type MemoryLimiter struct {
	mu           sync.Mutex
	entries      map[string]*memoryEntry
	clock        Clock
	idleTTL      time.Duration
	cleanupEvery time.Duration
}

type memoryEntry struct {
	policy   Policy
	window   int64
	count    int
	lastSeen time.Time
}

type MemoryOption func(*MemoryLimiter)

func WithClock(c Clock) MemoryOption {
	return func(m *MemoryLimiter) { m.clock = c }
}

func WithIdleTTL(d time.Duration) MemoryOption {
	return func(m *MemoryLimiter) { m.idleTTL = d }
}

func WithCleanupEvery(d time.Duration) MemoryOption {
	return func(m *MemoryLimiter) { m.cleanupEvery = d }
}

func NewMemoryLimiter(opts ...MemoryOption) *MemoryLimiter {
	m := &MemoryLimiter{
		entries:      make(map[string]*memoryEntry),
		clock:        wallClock{},
		idleTTL:      15 * time.Minute,
		cleanupEvery: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Allow counts one action for key unless MaxCount actions were already
// allowed in the current window. Denied calls are not counted.
func (m *MemoryLimiter) Allow(_ context.Context, key string, p Policy) (Decision, error) {
	if err := p.Validate(); err != nil {
		return Decision{}, err
	}

	now := m.clock.Now()
	index, windowEnd := windowOf(now, p.Window)

	m.mu.Lock()
	defer m.mu.Unlock()

	ent, ok := m.entries[key]
	if !ok || ent.policy != p || ent.window != index {
		ent = &memoryEntry{policy: p, window: index}
		m.entries[key] = ent
	}
	ent.lastSeen = now

	if ent.count >= p.MaxCount {
		return deny(p, windowEnd.Sub(now)), nil
	}

	ent.count++
	return Decision{Allowed: true}, nil
}

// Cleanup drops buckets not used within the idle TTL.
func (m *MemoryLimiter) Cleanup() {
	cutoff := m.clock.Now().Add(-m.idleTTL)

	m.mu.Lock()
	defer m.mu.Unlock()

	for k, ent := range m.entries {
		if ent.lastSeen.Before(cutoff) {
			delete(m.entries, k)
		}
	}
}

// StartJanitor removes idle buckets periodically until ctx is cancelled.
func (m *MemoryLimiter) StartJanitor(ctx context.Context) {
	if m.cleanupEvery <= 0 {
		return
	}

	t := time.NewTicker(m.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				m.Cleanup()
			}
		}
	}()
}

func (m *MemoryLimiter) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
