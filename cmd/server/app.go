package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dfryer1193/newsroom/blog/application"
	"github.com/dfryer1193/newsroom/blog/domain"
	"github.com/dfryer1193/newsroom/blog/persistence"
	"github.com/dfryer1193/newsroom/internal/access"
	"github.com/dfryer1193/newsroom/internal/config"
	"github.com/dfryer1193/newsroom/shared/db"
	"github.com/dfryer1193/newsroom/shared/db/sqlite"
	"github.com/dfryer1193/newsroom/shared/ratelimit"
	"github.com/dfryer1193/newsroom/shared/revalidate"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const redisPingTimeout = 2 * time.Second

// app holds the wired dependencies shared by every command.
type app struct {
	database db.Database
	rdb      *redis.Client
	service  *application.PostService
	trigger  *application.PublicationTrigger

	stopJanitor context.CancelFunc
}

func newApp(cfg *config.Config, opts ...application.Option) (*app, error) {
	a := &app{stopJanitor: func() {}}

	a.database = sqlite.NewSQLiteDB(&sqlite.SQLiteConfig{Path: cfg.Database.Path})
	if err := a.database.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	var (
		limiter     application.ActionRateLimiter
		invalidator domain.CacheInvalidator
	)

	if cfg.Redis.Enabled() {
		a.rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
		if err := a.rdb.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Redis unreachable, rate limits will fail open")
		}
		cancel()

		limiter = ratelimit.NewRedisLimiter(a.rdb)
		invalidator = revalidate.Multi{
			revalidate.LogInvalidator{},
			revalidate.NewRedisPublisher(a.rdb, cfg.Cache.Channel),
		}
	} else {
		mem := ratelimit.NewMemoryLimiter()
		ctx, cancel := context.WithCancel(context.Background())
		mem.StartJanitor(ctx)
		a.stopJanitor = cancel

		limiter = mem
		invalidator = revalidate.LogInvalidator{}
	}

	var authorizer domain.Authorizer = access.AllowAll{}
	if cfg.Authorization.Enabled() {
		authorizer = access.NewRoleAuthorizer(cfg.Authorization.Editors, cfg.Authorization.Authors)
	}

	opts = append([]application.Option{
		application.WithRatePolicies(cfg.RateLimits),
		application.WithListingPath(cfg.Cache.ListingPath),
	}, opts...)

	a.service = application.NewPostService(
		persistence.NewPostRepository(a.database.DB()),
		invalidator,
		authorizer,
		limiter,
		opts...,
	)
	a.trigger = application.NewPublicationTrigger(a.service, cfg.Trigger.Interval)

	return a, nil
}

// Close stops the trigger before the service so no publication starts after
// the service has drained its invalidations.
func (a *app) Close() error {
	var errs []error

	if err := a.trigger.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close publication trigger: %w", err))
	}
	if err := a.service.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close post service: %w", err))
	}
	a.stopJanitor()
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close redis client: %w", err))
		}
	}
	if err := a.database.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close database: %w", err))
	}

	return errors.Join(errs...)
}
