package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// TriggerStats summarizes one scan.
type TriggerStats struct {
	Due       int
	Published int
	Skipped   int
	Errors    int
}

// PublicationTrigger publishes scheduled auto-publish posts once they are due.
// It acts as the system: no rate limit or authorization applies. Runs never
// overlap.
type PublicationTrigger struct {
	service  *PostService
	interval time.Duration

	mu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     *sync.WaitGroup
}

func NewPublicationTrigger(service *PostService, interval time.Duration) *PublicationTrigger {
	ctx, cancel := context.WithCancel(context.Background())
	wg := sync.WaitGroup{}
	return &PublicationTrigger{
		service:  service,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
		wg:       &wg,
	}
}

// RunOnce scans for due posts and publishes each one whose guard still holds.
// A failure on one post is logged and the scan goes on.
func (t *PublicationTrigger) RunOnce(ctx context.Context) (*TriggerStats, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.service.clock.Now()

	due, err := t.service.repo.ScanDueScheduled(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("failed to scan due posts: %w", err)
	}

	stats := &TriggerStats{Due: len(due)}
	for _, p := range due {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		published, err := t.service.publishDue(ctx, p.ID, now)
		switch {
		case err != nil:
			stats.Errors++
			log.Error().Err(err).Str("postID", p.ID).Msg("Failed to publish scheduled post")
		case published:
			stats.Published++
			log.Info().Str("postID", p.ID).Str("slug", p.Slug).Msg("Published scheduled post")
		default:
			stats.Skipped++
		}
	}

	return stats, nil
}

// Start runs RunOnce every interval until Close is called.
func (t *PublicationTrigger) Start() error {
	if t.interval <= 0 {
		return fmt.Errorf("trigger interval must be positive, got %s", t.interval)
	}

	t.wg.Go(func() {
		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()

		for {
			select {
			case <-t.ctx.Done():
				return
			case <-ticker.C:
				stats, err := t.RunOnce(t.ctx)
				if err != nil {
					log.Error().Err(err).Msg("Publication trigger run failed")
					continue
				}
				if stats.Due > 0 {
					log.Debug().Int("due", stats.Due).Int("published", stats.Published).Int("skipped", stats.Skipped).Int("errors", stats.Errors).Msg("Publication trigger run finished")
				}
			}
		}
	})

	return nil
}

// Close stops the ticker loop and waits for a running scan to finish.
func (t *PublicationTrigger) Close() error {
	t.cancel()
	t.wg.Wait()

	return nil
}
