package application

import (
	"strings"
	"time"

	"github.com/dfryer1193/newsroom/blog/domain"
)

// Changes carries the fields a request sets. Nil fields are left as they are
// (or take their default on create).
type Changes struct {
	Title     *string
	Body      *string
	Excerpt   *string
	Category  *string
	MediaRefs *[]string
	SEO       *domain.SEOMetadata

	Status      *domain.Status
	ScheduledAt *time.Time
	Timezone    *string
	AutoPublish *bool
}

func (c Changes) touchesSchedule() bool {
	return c.ScheduledAt != nil || c.Timezone != nil
}

// Effects lists what the caller must do after a successful transition.
type Effects struct {
	AllocateSlug bool
	Persist      bool
	Remove       bool
	Invalidate   bool
}

// Transition computes the next state of a post. It performs no I/O: current is
// never modified and the returned post is a fresh copy. current is nil for
// OpCreate.
func Transition(current *domain.Post, op domain.Operation, changes Changes, now time.Time, schedule *ScheduleValidator) (*domain.Post, Effects, error) {
	if op != domain.OpCreate && current == nil {
		return nil, Effects{}, domain.NewInternalError("transition "+string(op)+" without a current post", nil)
	}

	switch op {
	case domain.OpCreate:
		return create(changes, now, schedule)
	case domain.OpUpdate:
		return update(current, changes, now, schedule)
	case domain.OpCancelSchedule:
		return cancelSchedule(current, now)
	case domain.OpReschedule:
		return reschedule(current, changes, now, schedule)
	case domain.OpPublishNow:
		return publishNow(current, now)
	case domain.OpDelete:
		return current.Clone(), Effects{Remove: true, Invalidate: current.IsPublished()}, nil
	}

	return nil, Effects{}, domain.NewValidationError("unknown operation %q", op)
}

func create(changes Changes, now time.Time, schedule *ScheduleValidator) (*domain.Post, Effects, error) {
	next := &domain.Post{
		Lifecycle: domain.Lifecycle{Status: domain.StatusDraft},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if changes.Title == nil || strings.TrimSpace(*changes.Title) == "" {
		return nil, Effects{}, domain.NewValidationError("title is required")
	}
	if changes.Body == nil || strings.TrimSpace(*changes.Body) == "" {
		return nil, Effects{}, domain.NewValidationError("body is required")
	}
	if err := applyContent(&next.Content, changes); err != nil {
		return nil, Effects{}, err
	}

	if changes.Status != nil {
		next.Status = *changes.Status
	}
	if err := applyLifecycle(nil, next, changes, now, schedule); err != nil {
		return nil, Effects{}, err
	}

	return next, Effects{
		AllocateSlug: true,
		Persist:      true,
		Invalidate:   next.IsPublished(),
	}, nil
}

func update(current *domain.Post, changes Changes, now time.Time, schedule *ScheduleValidator) (*domain.Post, Effects, error) {
	next := current.Clone()
	next.UpdatedAt = now

	if err := applyContent(&next.Content, changes); err != nil {
		return nil, Effects{}, err
	}

	if changes.Status != nil {
		next.Status = *changes.Status
	}
	if err := applyLifecycle(current, next, changes, now, schedule); err != nil {
		return nil, Effects{}, err
	}

	return next, Effects{
		Persist:    true,
		Invalidate: current.IsPublished() || next.IsPublished(),
	}, nil
}

func cancelSchedule(current *domain.Post, now time.Time) (*domain.Post, Effects, error) {
	if current.Status != domain.StatusScheduled {
		return nil, Effects{}, domain.NewInvalidStateError("cannot cancel the schedule of a %s post", current.Status)
	}

	next := current.Clone()
	next.Status = domain.StatusDraft
	next.ScheduledAt = nil
	next.AutoPublish = false
	next.UpdatedAt = now

	return next, Effects{Persist: true}, nil
}

func reschedule(current *domain.Post, changes Changes, now time.Time, schedule *ScheduleValidator) (*domain.Post, Effects, error) {
	if current.Status != domain.StatusScheduled {
		return nil, Effects{}, domain.NewInvalidStateError("cannot reschedule a %s post", current.Status)
	}

	timezone := current.Timezone
	if changes.Timezone != nil {
		timezone = *changes.Timezone
	}
	if err := schedule.Validate(changes.ScheduledAt, timezone, now); err != nil {
		return nil, Effects{}, err
	}

	next := current.Clone()
	at := *changes.ScheduledAt
	next.ScheduledAt = &at
	next.Timezone = timezone
	if changes.AutoPublish != nil {
		next.AutoPublish = *changes.AutoPublish
	}
	next.UpdatedAt = now

	return next, Effects{Persist: true}, nil
}

func publishNow(current *domain.Post, now time.Time) (*domain.Post, Effects, error) {
	if current.Status != domain.StatusScheduled {
		return nil, Effects{}, domain.NewInvalidStateError("cannot publish a %s post now, only scheduled posts", current.Status)
	}

	next := current.Clone()
	next.Status = domain.StatusPublished
	published := now
	next.PublishedAt = &published
	next.ScheduledAt = nil
	next.AutoPublish = false
	next.UpdatedAt = now

	return next, Effects{Persist: true, Invalidate: true}, nil
}

func applyContent(c *domain.Content, changes Changes) error {
	if changes.Title != nil {
		if strings.TrimSpace(*changes.Title) == "" {
			return domain.NewValidationError("title is required")
		}
		c.Title = *changes.Title
	}
	if changes.Body != nil {
		if strings.TrimSpace(*changes.Body) == "" {
			return domain.NewValidationError("body is required")
		}
		c.Body = *changes.Body
	}
	if changes.Excerpt != nil {
		c.Excerpt = *changes.Excerpt
	}
	if changes.Category != nil {
		c.Category = *changes.Category
	}
	if changes.MediaRefs != nil {
		c.MediaRefs = append([]string(nil), (*changes.MediaRefs)...)
	}
	if changes.SEO != nil {
		c.SEO = *changes.SEO
		c.SEO.Keywords = append([]string(nil), changes.SEO.Keywords...)
	}
	return nil
}

// applyLifecycle sets the schedule and publication fields of next for its
// (already chosen) status. current is nil on create.
func applyLifecycle(current, next *domain.Post, changes Changes, now time.Time, schedule *ScheduleValidator) error {
	if !next.Status.Valid() {
		return domain.NewValidationError("status %q is invalid", next.Status)
	}

	wasScheduled := current != nil && current.Status == domain.StatusScheduled
	wasPublished := current != nil && current.IsPublished()

	if changes.Timezone != nil {
		next.Timezone = *changes.Timezone
	}

	if next.Status == domain.StatusScheduled {
		if changes.ScheduledAt != nil {
			at := *changes.ScheduledAt
			next.ScheduledAt = &at
		}
		if changes.AutoPublish != nil {
			next.AutoPublish = *changes.AutoPublish
		} else if !wasScheduled {
			next.AutoPublish = false
		}

		if !wasScheduled || changes.touchesSchedule() {
			if err := schedule.Validate(next.ScheduledAt, next.Timezone, now); err != nil {
				return err
			}
		}
	} else {
		next.ScheduledAt = nil
		next.AutoPublish = false
	}

	switch {
	case next.IsPublished() && !wasPublished:
		published := now
		next.PublishedAt = &published
	case !next.IsPublished():
		next.PublishedAt = nil
	}

	return nil
}
