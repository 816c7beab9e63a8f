package application

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/dfryer1193/newsroom/blog/domain"
	"github.com/dfryer1193/newsroom/blog/persistence"
	"github.com/dfryer1193/newsroom/shared/db/sqlite"
	"github.com/dfryer1193/newsroom/shared/ratelimit"
)

var testStart = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: testStart}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingInvalidator struct {
	mu    sync.Mutex
	calls [][]string
	err   error
}

func (r *recordingInvalidator) Invalidate(_ context.Context, paths []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, slices.Clone(paths))
	return r.err
}

func (r *recordingInvalidator) Calls() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.calls)
}

type authorizerFunc func(ctx context.Context, actor string, op domain.Operation) bool

func (f authorizerFunc) IsAuthorized(ctx context.Context, actor string, op domain.Operation) bool {
	return f(ctx, actor, op)
}

var allowAll = authorizerFunc(func(context.Context, string, domain.Operation) bool { return true })

func newTestRepo(t *testing.T) *persistence.SQLitePostRepository {
	t.Helper()

	database := sqlite.NewSQLiteDB(&sqlite.SQLiteConfig{Path: ":memory:"})
	if err := database.Connect(); err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	return persistence.NewPostRepository(database.DB())
}

type testEnv struct {
	service     *PostService
	repo        domain.PostRepository
	clock       *fakeClock
	invalidator *recordingInvalidator
}

// settle waits for background cache invalidations.
func (e *testEnv) settle() {
	e.service.wg.Wait()
}

type envOption func(*envConfig)

type envConfig struct {
	repo       func(domain.PostRepository) domain.PostRepository
	authorizer domain.Authorizer
	limiter    func(*fakeClock) ActionRateLimiter
	opts       []Option
}

func withRepo(wrap func(domain.PostRepository) domain.PostRepository) envOption {
	return func(c *envConfig) { c.repo = wrap }
}

func withAuthorizer(a domain.Authorizer) envOption {
	return func(c *envConfig) { c.authorizer = a }
}

func withLimiter(l func(*fakeClock) ActionRateLimiter) envOption {
	return func(c *envConfig) { c.limiter = l }
}

func withServiceOptions(opts ...Option) envOption {
	return func(c *envConfig) { c.opts = append(c.opts, opts...) }
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	cfg := &envConfig{
		repo:       func(r domain.PostRepository) domain.PostRepository { return r },
		authorizer: allowAll,
		limiter:    func(*fakeClock) ActionRateLimiter { return ratelimit.Unlimited{} },
	}
	for _, opt := range opts {
		opt(cfg)
	}

	clock := newFakeClock()
	invalidator := &recordingInvalidator{}
	repo := cfg.repo(newTestRepo(t))

	serviceOpts := append([]Option{WithClock(clock)}, cfg.opts...)
	service := NewPostService(repo, invalidator, cfg.authorizer, cfg.limiter(clock), serviceOpts...)
	t.Cleanup(func() { service.Close() })

	return &testEnv{
		service:     service,
		repo:        repo,
		clock:       clock,
		invalidator: invalidator,
	}
}

func ptr[T any](v T) *T {
	return &v
}

func draftChanges(title string) Changes {
	return Changes{
		Title: ptr(title),
		Body:  ptr("Some body text."),
	}
}

func scheduledChanges(title string, at time.Time, autoPublish bool) Changes {
	c := draftChanges(title)
	c.Status = ptr(domain.StatusScheduled)
	c.ScheduledAt = &at
	c.Timezone = ptr("Europe/Berlin")
	c.AutoPublish = ptr(autoPublish)
	return c
}

func publishedChanges(title string) Changes {
	c := draftChanges(title)
	c.Status = ptr(domain.StatusPublished)
	return c
}
