package domain

import (
	"context"
	"time"
)

// Status is the publication state of a post.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusScheduled Status = "scheduled"
	StatusPublished Status = "published"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusScheduled, StatusPublished:
		return true
	}
	return false
}

// SEOMetadata is carried with the post but never inspected by the lifecycle.
type SEOMetadata struct {
	MetaTitle       string   `json:"meta_title,omitempty"`
	MetaDescription string   `json:"meta_description,omitempty"`
	Keywords        []string `json:"keywords,omitempty"`
}

// Content holds the editable payload of a post. Only Title is read by the
// lifecycle (for slug derivation); the rest is persisted as given.
type Content struct {
	Title     string
	Body      string
	Excerpt   string
	Category  string
	MediaRefs []string
	SEO       SEOMetadata
}

// Lifecycle holds the publication state of a post.
//
// ScheduledAt is set iff Status is StatusScheduled. PublishedAt is set iff the
// post is currently published. Timezone is display information only; all
// comparisons use the absolute instant.
type Lifecycle struct {
	Status      Status
	ScheduledAt *time.Time
	Timezone    string
	AutoPublish bool
	PublishedAt *time.Time
}

// Post represents a blog post.
// The slug and author are fixed at creation. Version increases on every write
// and guards concurrent updates.
type Post struct {
	ID       string
	Slug     string
	AuthorID string
	Content
	Lifecycle
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsPublished reports whether the post is publicly visible.
func (p *Post) IsPublished() bool {
	return p.Status == StatusPublished
}

// IsDue reports whether a scheduled post has reached its publication instant.
func (p *Post) IsDue(now time.Time) bool {
	return p.Status == StatusScheduled && p.ScheduledAt != nil && !p.ScheduledAt.After(now)
}

// Clone returns a deep copy of p.
func (p *Post) Clone() *Post {
	if p == nil {
		return nil
	}
	c := *p
	c.MediaRefs = append([]string(nil), p.MediaRefs...)
	c.SEO.Keywords = append([]string(nil), p.SEO.Keywords...)
	if p.ScheduledAt != nil {
		t := *p.ScheduledAt
		c.ScheduledAt = &t
	}
	if p.PublishedAt != nil {
		t := *p.PublishedAt
		c.PublishedAt = &t
	}
	return &c
}

// PostPatch replaces the mutable fields of a stored post. The write only
// applies if the stored version still equals ExpectedVersion.
type PostPatch struct {
	Content         Content
	Lifecycle       Lifecycle
	ExpectedVersion int64
	UpdatedAt       time.Time
}

// PostRepository is the record store consumed by the lifecycle.
// Slug uniqueness must be enforced by the store itself.
type PostRepository interface {
	// FindBySlug returns a NotFound error when no post has the slug.
	FindBySlug(ctx context.Context, slug string) (*Post, error)
	FindByID(ctx context.Context, id string) (*Post, error)

	// Insert assigns the post ID and returns a UniquenessConflict error when
	// the slug is already taken.
	Insert(ctx context.Context, p *Post) (*Post, error)

	// Update returns a NotFound error for a missing post and an error wrapping
	// ErrStalePost when the stored version no longer matches.
	Update(ctx context.Context, id string, patch PostPatch) (*Post, error)

	// Delete has the same NotFound and ErrStalePost outcomes as Update.
	Delete(ctx context.Context, id string, expectedVersion int64) error

	// ScanDueScheduled lists scheduled, auto-publish posts due at now.
	ScanDueScheduled(ctx context.Context, now time.Time) ([]*Post, error)
	ListPublished(ctx context.Context, limit int, offset int) ([]*Post, error)
}

// Clock supplies the current instant.
type Clock interface {
	Now() time.Time
}

// CacheInvalidator is told which public paths changed. Calls are
// fire-and-forget; errors are only logged.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, paths []string) error
}

// Authorizer decides whether an actor may perform a mutating operation.
type Authorizer interface {
	IsAuthorized(ctx context.Context, actor string, op Operation) bool
}
