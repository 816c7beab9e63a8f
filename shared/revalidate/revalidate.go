// Package revalidate tells downstream caches which public paths changed.
package revalidate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

type Invalidator interface {
	Invalidate(ctx context.Context, paths []string) error
}

var (
	_ Invalidator = LogInvalidator{}
	_ Invalidator = (*RedisPublisher)(nil)
	_ Invalidator = Multi(nil)
)

// Message is published for every invalidation.
type Message struct {
	Paths []string `json:"paths"`
}

// LogInvalidator only records the paths. It is used when no cache is
// configured.
type LogInvalidator struct{}

func (LogInvalidator) Invalidate(_ context.Context, paths []string) error {
	log.Info().Strs("paths", paths).Msg("Invalidating cached paths")
	return nil
}

// RedisPublisher publishes a Message on a Redis channel. Cache nodes
// subscribe to the channel and drop the listed paths.
type RedisPublisher struct {
	rdb     redis.UniversalClient
	channel string
}

func NewRedisPublisher(rdb redis.UniversalClient, channel string) *RedisPublisher {
	return &RedisPublisher{rdb: rdb, channel: channel}
}

func (p *RedisPublisher) Invalidate(ctx context.Context, paths []string) error {
	payload, err := json.Marshal(Message{Paths: paths})
	if err != nil {
		return fmt.Errorf("failed to encode invalidation: %w", err)
	}

	receivers, err := p.rdb.Publish(ctx, p.channel, payload).Result()
	if err != nil {
		return fmt.Errorf("failed to publish invalidation on %s: %w", p.channel, err)
	}

	log.Debug().Strs("paths", paths).Int64("receivers", receivers).Msg("Published invalidation")
	return nil
}

// Multi fans an invalidation out to every target and joins their errors.
type Multi []Invalidator

func (m Multi) Invalidate(ctx context.Context, paths []string) error {
	var errs []error
	for _, target := range m {
		if err := target.Invalidate(ctx, paths); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
