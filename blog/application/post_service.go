package application

import (
	"context"
	"errors"
	"path"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dfryer1193/newsroom/blog/domain"
	"github.com/dfryer1193/newsroom/shared/ratelimit"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	DefaultMaxSlugAttempts     = 5
	DefaultListingPath         = "/blog"
	defaultInvalidationTimeout = 10 * time.Second
	limiterWarnInterval        = time.Minute
)

// PostService runs lifecycle operations against the store. Every mutation is
// rate limited, authorized, computed by Transition and written with a version
// guard. Cache invalidation runs in the background and never fails a request.
type PostService struct {
	repo        domain.PostRepository
	invalidator domain.CacheInvalidator
	authorizer  domain.Authorizer
	limiter     ActionRateLimiter
	clock       domain.Clock
	schedule    *ScheduleValidator
	slugs       *SlugAllocator

	policies            map[string]ratelimit.Policy
	maxSlugAttempts     int
	maxSlugProbes       int
	listingPath         string
	invalidationTimeout time.Duration

	// limiterWarn throttles the fail-open warning while the limiter is down.
	limiterWarn     *rate.Sometimes
	limiterFailures atomic.Int64

	// Service lifecycle context - cancelled when Close() is called
	ctx    context.Context
	cancel context.CancelFunc
	wg     *sync.WaitGroup
}

type Option func(*PostService)

func WithClock(c domain.Clock) Option {
	return func(s *PostService) { s.clock = c }
}

// WithRatePolicies overrides the policy of the given rate classes.
func WithRatePolicies(policies map[string]ratelimit.Policy) Option {
	return func(s *PostService) {
		for class, p := range policies {
			s.policies[class] = p
		}
	}
}

func WithMaxSlugAttempts(n int) Option {
	return func(s *PostService) {
		if n > 0 {
			s.maxSlugAttempts = n
		}
	}
}

func WithMaxSlugProbes(n int) Option {
	return func(s *PostService) { s.maxSlugProbes = n }
}

// WithListingPath sets the public path of the post listing; posts live below it.
func WithListingPath(p string) Option {
	return func(s *PostService) {
		if p != "" {
			s.listingPath = "/" + strings.Trim(p, "/")
		}
	}
}

func WithInvalidationTimeout(d time.Duration) Option {
	return func(s *PostService) {
		if d > 0 {
			s.invalidationTimeout = d
		}
	}
}

func NewPostService(
	repo domain.PostRepository,
	invalidator domain.CacheInvalidator,
	authorizer domain.Authorizer,
	limiter ActionRateLimiter,
	opts ...Option,
) *PostService {
	ctx, cancel := context.WithCancel(context.Background())
	wg := sync.WaitGroup{}

	s := &PostService{
		repo:                repo,
		invalidator:         invalidator,
		authorizer:          authorizer,
		limiter:             limiter,
		clock:               SystemClock{},
		schedule:            NewScheduleValidator(),
		policies:            make(map[string]ratelimit.Policy, len(DefaultRatePolicies)),
		maxSlugAttempts:     DefaultMaxSlugAttempts,
		maxSlugProbes:       DefaultMaxProbes,
		listingPath:         DefaultListingPath,
		invalidationTimeout: defaultInvalidationTimeout,
		limiterWarn:         &rate.Sometimes{First: 1, Interval: limiterWarnInterval},
		ctx:                 ctx,
		cancel:              cancel,
		wg:                  &wg,
	}
	for class, p := range DefaultRatePolicies {
		s.policies[class] = p
	}
	for _, opt := range opts {
		opt(s)
	}

	s.slugs = NewSlugAllocator(repo, s.maxSlugProbes)

	return s
}

// Close gracefully shuts down the PostService, waiting for pending cache
// invalidations.
func (s *PostService) Close() error {
	s.cancel()
	s.wg.Wait()

	return nil
}

// Create stores a new post authored by actor.
func (s *PostService) Create(ctx context.Context, actor string, changes Changes) (*domain.Post, error) {
	now := s.clock.Now()

	if err := s.admit(ctx, actor, domain.OpCreate); err != nil {
		return nil, err
	}

	next, effects, err := Transition(nil, domain.OpCreate, changes, now, s.schedule)
	if err != nil {
		return nil, err
	}
	next.AuthorID = actor

	stored, err := s.insertWithSlug(ctx, next)
	if err != nil {
		return nil, err
	}

	log.Info().Str("postID", stored.ID).Str("slug", stored.Slug).Str("status", string(stored.Status)).Str("actor", actor).Msg("Created post")

	if effects.Invalidate {
		s.invalidate(stored.Slug)
	}

	return stored, nil
}

// insertWithSlug allocates a slug and inserts p. A slug lost to a concurrent
// insert is excluded from the next allocation.
func (s *PostService) insertWithSlug(ctx context.Context, p *domain.Post) (*domain.Post, error) {
	var lost []string

	for attempt := 1; attempt <= s.maxSlugAttempts; attempt++ {
		slug, err := s.slugs.Allocate(ctx, p.Title, lost...)
		if err != nil {
			return nil, err
		}
		p.Slug = slug

		stored, err := s.repo.Insert(ctx, p)
		if domain.IsKind(err, domain.KindUniquenessConflict) {
			log.Debug().Str("slug", slug).Int("attempt", attempt).Msg("Slug taken at insert, allocating another")
			lost = append(lost, slug)
			continue
		}
		if err != nil {
			return nil, storeError("failed to insert post", err)
		}

		return stored, nil
	}

	return nil, domain.NewInternalError("failed to allocate a unique slug", errors.New("slug conflicts on every attempt"))
}

// Update applies changes to any post, including a status change.
func (s *PostService) Update(ctx context.Context, actor string, id string, changes Changes) (*domain.Post, error) {
	return s.mutate(ctx, actor, id, domain.OpUpdate, changes)
}

// CancelSchedule returns a scheduled post to draft.
func (s *PostService) CancelSchedule(ctx context.Context, actor string, id string) (*domain.Post, error) {
	return s.mutate(ctx, actor, id, domain.OpCancelSchedule, Changes{})
}

// Reschedule moves the publication instant of a scheduled post. A nil
// timezone keeps the current one.
func (s *PostService) Reschedule(ctx context.Context, actor string, id string, scheduledAt *time.Time, timezone *string) (*domain.Post, error) {
	return s.mutate(ctx, actor, id, domain.OpReschedule, Changes{ScheduledAt: scheduledAt, Timezone: timezone})
}

// PublishNow publishes a scheduled post immediately.
func (s *PostService) PublishNow(ctx context.Context, actor string, id string) (*domain.Post, error) {
	return s.mutate(ctx, actor, id, domain.OpPublishNow, Changes{})
}

// Delete removes a post. If the post changed after it was loaded, for example
// because the trigger published it, nothing is removed and the caller gets
// InvalidState.
func (s *PostService) Delete(ctx context.Context, actor string, id string) error {
	now := s.clock.Now()

	if err := s.admit(ctx, actor, domain.OpDelete); err != nil {
		return err
	}

	current, err := s.load(ctx, id)
	if err != nil {
		return err
	}

	_, effects, err := Transition(current, domain.OpDelete, Changes{}, now, s.schedule)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id, current.Version); err != nil {
		return storeError("failed to delete post", err)
	}

	log.Info().Str("postID", id).Str("slug", current.Slug).Str("actor", actor).Msg("Deleted post")

	if effects.Invalidate {
		s.invalidate(current.Slug)
	}

	return nil
}

func (s *PostService) mutate(ctx context.Context, actor string, id string, op domain.Operation, changes Changes) (*domain.Post, error) {
	now := s.clock.Now()

	if err := s.admit(ctx, actor, op); err != nil {
		return nil, err
	}

	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	next, effects, err := Transition(current, op, changes, now, s.schedule)
	if err != nil {
		return nil, err
	}

	updated, err := s.write(ctx, current, next)
	if err != nil {
		return nil, err
	}

	log.Info().Str("postID", id).Str("op", string(op)).Str("status", string(updated.Status)).Str("actor", actor).Msg("Updated post")

	if effects.Invalidate {
		s.invalidate(updated.Slug)
	}

	return updated, nil
}

// publishDue publishes a post found by the publication trigger. It reports
// false without error when the post is gone, no longer due, or was changed by
// someone else since it was read.
func (s *PostService) publishDue(ctx context.Context, id string, now time.Time) (bool, error) {
	current, err := s.repo.FindByID(ctx, id)
	if domain.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, storeError("failed to load post", err)
	}

	if !current.AutoPublish || !current.IsDue(now) {
		return false, nil
	}

	next, effects, err := Transition(current, domain.OpPublishNow, Changes{}, now, s.schedule)
	if err != nil {
		return false, err
	}

	updated, err := s.write(ctx, current, next)
	if errors.Is(err, domain.ErrStalePost) || domain.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if effects.Invalidate {
		s.invalidate(updated.Slug)
	}

	return true, nil
}

func (s *PostService) write(ctx context.Context, current, next *domain.Post) (*domain.Post, error) {
	updated, err := s.repo.Update(ctx, current.ID, domain.PostPatch{
		Content:         next.Content,
		Lifecycle:       next.Lifecycle,
		ExpectedVersion: current.Version,
		UpdatedAt:       next.UpdatedAt,
	})
	if err != nil {
		return nil, storeError("failed to update post", err)
	}
	return updated, nil
}

// admit checks the rate limit and then authorization. A limiter that cannot
// answer lets the request through.
func (s *PostService) admit(ctx context.Context, actor string, op domain.Operation) error {
	if strings.TrimSpace(actor) == "" {
		return domain.NewValidationError("actor is required")
	}

	decision, err := s.limiter.Allow(ctx, RateKey(op, actor), s.policyFor(op))
	if err != nil {
		failures := s.limiterFailures.Add(1)
		s.limiterWarn.Do(func() {
			log.Warn().Err(err).Int64("failures", failures).Str("actor", actor).Str("op", string(op)).Msg("Rate limiter unavailable, allowing requests")
		})
	} else if !decision.Allowed {
		return domain.NewThrottledError(decision.Message, decision.RetryAfter)
	}

	if !s.authorizer.IsAuthorized(ctx, actor, op) {
		return domain.NewForbiddenError(actor, op)
	}

	return nil
}

func (s *PostService) policyFor(op domain.Operation) ratelimit.Policy {
	if p, ok := s.policies[op.RateClass()]; ok {
		return p
	}
	return DefaultRatePolicies[op.RateClass()]
}

func (s *PostService) load(ctx context.Context, id string) (*domain.Post, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.NewValidationError("post id is required")
	}

	post, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeError("failed to load post", err)
	}
	return post, nil
}

// invalidate tells the cache which public paths changed for slug.
func (s *PostService) invalidate(slug string) {
	paths := s.pathsFor(slug)

	s.wg.Go(func() {
		ctx, cancel := context.WithTimeout(s.ctx, s.invalidationTimeout)
		defer cancel()

		if err := s.invalidator.Invalidate(ctx, paths); err != nil {
			log.Error().Err(err).Strs("paths", paths).Msg("Failed to invalidate cached paths")
		}
	})
}

func (s *PostService) pathsFor(slug string) []string {
	return []string{"/", s.listingPath, path.Join(s.listingPath, slug)}
}

// Get returns a post by ID.
func (s *PostService) Get(ctx context.Context, id string) (*domain.Post, error) {
	return s.load(ctx, id)
}

// GetBySlug returns a post by slug.
func (s *PostService) GetBySlug(ctx context.Context, slug string) (*domain.Post, error) {
	if strings.TrimSpace(slug) == "" {
		return nil, domain.NewValidationError("slug is required")
	}

	post, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, storeError("failed to load post", err)
	}
	return post, nil
}

// ListPublished returns published posts, newest first.
func (s *PostService) ListPublished(ctx context.Context, limit, offset int) ([]*domain.Post, error) {
	posts, err := s.repo.ListPublished(ctx, limit, offset)
	if err != nil {
		return nil, storeError("failed to list published posts", err)
	}
	return posts, nil
}

// storeError passes lifecycle errors through and wraps anything else as
// internal.
func storeError(msg string, err error) error {
	var e *domain.Error
	if errors.As(err, &e) {
		return err
	}
	return domain.NewInternalError(msg, err)
}
