package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dfryer1193/newsroom/blog/domain"
	"github.com/dfryer1193/newsroom/shared/db"
	"github.com/dfryer1193/newsroom/shared/db/sqlite"
	"github.com/google/uuid"
)

var _ domain.PostRepository = (*SQLitePostRepository)(nil)

// SQLitePostRepository implements domain.PostRepository using SQL database (SQLite)
type SQLitePostRepository struct {
	db *sql.DB
}

// NewPostRepository creates a new SQLitePostRepository from a standard sql.DB
func NewPostRepository(db *sql.DB) *SQLitePostRepository {
	return &SQLitePostRepository{
		db: db,
	}
}

const postColumns = `
	id, slug, author_id, title, body, excerpt, category, media_refs, seo,
	status, scheduled_at, timezone, auto_publish, published_at, version, created_at, updated_at
`

const insertPostQuery = `
	INSERT INTO posts (` + postColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// Insert stores a new post under a fresh ID. The slug column carries a UNIQUE
// index; a collision is reported as a domain UniquenessConflict.
func (r *SQLitePostRepository) Insert(ctx context.Context, p *domain.Post) (*domain.Post, error) {
	if p == nil {
		return nil, fmt.Errorf("post cannot be nil")
	}

	if p.Slug == "" {
		return nil, fmt.Errorf("post slug cannot be empty")
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate post ID: %w", err)
	}

	stored := p.Clone()
	stored.ID = id.String()
	stored.Version = 1

	row, err := fromDomain(stored)
	if err != nil {
		return nil, err
	}

	executor := db.GetExecutor(ctx, r.db)
	_, err = executor.ExecContext(ctx, insertPostQuery, row.args()...)
	if sqlite.IsUniqueViolation(err, "posts.slug") {
		return nil, domain.NewUniquenessConflict(stored.Slug, err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to insert post: %w", err)
	}

	return stored, nil
}

const getPostQuery = `SELECT ` + postColumns + ` FROM posts WHERE id = ?`

// FindByID retrieves a single post by ID
func (r *SQLitePostRepository) FindByID(ctx context.Context, id string) (*domain.Post, error) {
	if id == "" {
		return nil, fmt.Errorf("post ID cannot be empty")
	}

	executor := db.GetExecutor(ctx, r.db)
	post, err := scanPost(executor.QueryRowContext(ctx, getPostQuery, id))
	if err == sql.ErrNoRows {
		return nil, domain.NewNotFoundError(id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}

	return post, nil
}

const getPostBySlugQuery = `SELECT ` + postColumns + ` FROM posts WHERE slug = ?`

// FindBySlug retrieves a single post by slug
func (r *SQLitePostRepository) FindBySlug(ctx context.Context, slug string) (*domain.Post, error) {
	if slug == "" {
		return nil, fmt.Errorf("post slug cannot be empty")
	}

	executor := db.GetExecutor(ctx, r.db)
	post, err := scanPost(executor.QueryRowContext(ctx, getPostBySlugQuery, slug))
	if err == sql.ErrNoRows {
		return nil, domain.NewNotFoundError(slug)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post by slug: %w", err)
	}

	return post, nil
}

const updatePostQuery = `
	UPDATE posts SET
		title = ?,
		body = ?,
		excerpt = ?,
		category = ?,
		media_refs = ?,
		seo = ?,
		status = ?,
		scheduled_at = ?,
		timezone = ?,
		auto_publish = ?,
		published_at = ?,
		updated_at = ?,
		version = version + 1
	WHERE id = ? AND version = ?
`

const postVersionQuery = `SELECT version FROM posts WHERE id = ?`

// Update applies patch if the stored version still equals patch.ExpectedVersion.
// Both the check and the write happen in one statement, so of two writers that
// read the same version exactly one succeeds.
func (r *SQLitePostRepository) Update(ctx context.Context, id string, patch domain.PostPatch) (*domain.Post, error) {
	if id == "" {
		return nil, fmt.Errorf("post ID cannot be empty")
	}

	var updated *domain.Post
	err := db.RunInTransaction(ctx, r.db, func(txCtx context.Context) error {
		row, err := fromDomain(&domain.Post{Content: patch.Content, Lifecycle: patch.Lifecycle, UpdatedAt: patch.UpdatedAt})
		if err != nil {
			return err
		}

		executor := db.GetExecutor(txCtx, r.db)
		res, err := executor.ExecContext(txCtx, updatePostQuery,
			row.Title,
			row.Body,
			row.Excerpt,
			row.Category,
			row.MediaRefs,
			row.SEO,
			row.Status,
			row.ScheduledAt,
			row.Timezone,
			row.AutoPublish,
			row.PublishedAt,
			row.UpdatedAt,
			id,
			patch.ExpectedVersion,
		)
		if err != nil {
			return fmt.Errorf("failed to update post: %w", err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read affected rows: %w", err)
		}

		if affected == 0 {
			return guardFailure(txCtx, executor, id, patch.ExpectedVersion)
		}

		updated, err = scanPost(executor.QueryRowContext(txCtx, getPostQuery, id))
		if err != nil {
			return fmt.Errorf("failed to reload post: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

const deletePostQuery = `DELETE FROM posts WHERE id = ? AND version = ?`

// Delete removes a post permanently if it is still at expectedVersion.
func (r *SQLitePostRepository) Delete(ctx context.Context, id string, expectedVersion int64) error {
	if id == "" {
		return fmt.Errorf("post ID cannot be empty")
	}

	return db.RunInTransaction(ctx, r.db, func(txCtx context.Context) error {
		executor := db.GetExecutor(txCtx, r.db)
		res, err := executor.ExecContext(txCtx, deletePostQuery, id, expectedVersion)
		if err != nil {
			return fmt.Errorf("failed to delete post: %w", err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read affected rows: %w", err)
		}
		if affected == 0 {
			return guardFailure(txCtx, executor, id, expectedVersion)
		}

		return nil
	})
}

// guardFailure explains why a version-guarded statement touched no row: the
// post is gone, or it moved past expected.
func guardFailure(ctx context.Context, executor db.Executor, id string, expected int64) error {
	var version int64
	err := executor.QueryRowContext(ctx, postVersionQuery, id).Scan(&version)
	if err == sql.ErrNoRows {
		return domain.NewNotFoundError(id)
	}
	if err != nil {
		return fmt.Errorf("failed to check post version: %w", err)
	}
	return &domain.Error{
		Kind:    domain.KindInvalidState,
		Message: fmt.Sprintf("post %s is at version %d, expected %d", id, version, expected),
		Err:     domain.ErrStalePost,
	}
}

const scanDueScheduledQuery = `
	SELECT ` + postColumns + `
	FROM posts
	WHERE status = 'scheduled' AND auto_publish = 1 AND scheduled_at <= ?
	ORDER BY scheduled_at ASC, id ASC
`

// ScanDueScheduled lists auto-publish posts whose scheduled instant is at or
// before now, oldest first.
func (r *SQLitePostRepository) ScanDueScheduled(ctx context.Context, now time.Time) ([]*domain.Post, error) {
	return r.queryPosts(ctx, "due scheduled", scanDueScheduledQuery, now.UnixMilli())
}

const listPublishedPostsQuery = `
	SELECT ` + postColumns + `
	FROM posts
	WHERE status = 'published'
	ORDER BY published_at DESC
	LIMIT ? OFFSET ?
`

// ListPublishedPosts retrieves published posts ordered by publish date descending
func (r *SQLitePostRepository) ListPublished(ctx context.Context, limit, offset int) ([]*domain.Post, error) {
	if limit <= 0 {
		limit = 10 // Default limit
	}
	if offset < 0 {
		offset = 0
	}

	return r.queryPosts(ctx, "published", listPublishedPostsQuery, limit, offset)
}

func (r *SQLitePostRepository) queryPosts(ctx context.Context, what string, query string, args ...any) ([]*domain.Post, error) {
	executor := db.GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s posts: %w", what, err)
	}
	defer rows.Close()

	posts := make([]*domain.Post, 0)
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post row: %w", err)
		}
		posts = append(posts, post)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating post rows: %w", err)
	}

	return posts, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(s rowScanner) (*domain.Post, error) {
	var row postRow
	err := s.Scan(
		&row.ID,
		&row.Slug,
		&row.AuthorID,
		&row.Title,
		&row.Body,
		&row.Excerpt,
		&row.Category,
		&row.MediaRefs,
		&row.SEO,
		&row.Status,
		&row.ScheduledAt,
		&row.Timezone,
		&row.AutoPublish,
		&row.PublishedAt,
		&row.Version,
		&row.CreatedAt,
		&row.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return row.toDomain()
}

// postRow is a private struct used to scan database rows.
// Instants are unix milliseconds; nullable ones use sql.NullInt64.
type postRow struct {
	ID          string        `db:"id"`
	Slug        string        `db:"slug"`
	AuthorID    string        `db:"author_id"`
	Title       string        `db:"title"`
	Body        string        `db:"body"`
	Excerpt     string        `db:"excerpt"`
	Category    string        `db:"category"`
	MediaRefs   string        `db:"media_refs"`
	SEO         string        `db:"seo"`
	Status      string        `db:"status"`
	ScheduledAt sql.NullInt64 `db:"scheduled_at"`
	Timezone    string        `db:"timezone"`
	AutoPublish bool          `db:"auto_publish"`
	PublishedAt sql.NullInt64 `db:"published_at"`
	Version     int64         `db:"version"`
	CreatedAt   int64         `db:"created_at"`
	UpdatedAt   int64         `db:"updated_at"`
}

func (pr *postRow) args() []any {
	return []any{
		pr.ID,
		pr.Slug,
		pr.AuthorID,
		pr.Title,
		pr.Body,
		pr.Excerpt,
		pr.Category,
		pr.MediaRefs,
		pr.SEO,
		pr.Status,
		pr.ScheduledAt,
		pr.Timezone,
		pr.AutoPublish,
		pr.PublishedAt,
		pr.Version,
		pr.CreatedAt,
		pr.UpdatedAt,
	}
}

func fromDomain(p *domain.Post) (*postRow, error) {
	mediaRefs := p.MediaRefs
	if mediaRefs == nil {
		mediaRefs = []string{}
	}
	media, err := json.Marshal(mediaRefs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode media refs: %w", err)
	}

	seo, err := json.Marshal(p.SEO)
	if err != nil {
		return nil, fmt.Errorf("failed to encode SEO metadata: %w", err)
	}

	return &postRow{
		ID:          p.ID,
		Slug:        p.Slug,
		AuthorID:    p.AuthorID,
		Title:       p.Title,
		Body:        p.Body,
		Excerpt:     p.Excerpt,
		Category:    p.Category,
		MediaRefs:   string(media),
		SEO:         string(seo),
		Status:      string(p.Status),
		ScheduledAt: nullMillis(p.ScheduledAt),
		Timezone:    p.Timezone,
		AutoPublish: p.AutoPublish,
		PublishedAt: nullMillis(p.PublishedAt),
		Version:     p.Version,
		CreatedAt:   p.CreatedAt.UnixMilli(),
		UpdatedAt:   p.UpdatedAt.UnixMilli(),
	}, nil
}

// toDomain converts a postRow to a domain.Post, handling nullable times
func (pr *postRow) toDomain() (*domain.Post, error) {
	post := &domain.Post{
		ID:       pr.ID,
		Slug:     pr.Slug,
		AuthorID: pr.AuthorID,
		Content: domain.Content{
			Title:    pr.Title,
			Body:     pr.Body,
			Excerpt:  pr.Excerpt,
			Category: pr.Category,
		},
		Lifecycle: domain.Lifecycle{
			Status:      domain.Status(pr.Status),
			ScheduledAt: timeFromMillis(pr.ScheduledAt),
			Timezone:    pr.Timezone,
			AutoPublish: pr.AutoPublish,
			PublishedAt: timeFromMillis(pr.PublishedAt),
		},
		Version:   pr.Version,
		CreatedAt: time.UnixMilli(pr.CreatedAt).UTC(),
		UpdatedAt: time.UnixMilli(pr.UpdatedAt).UTC(),
	}

	if err := json.Unmarshal([]byte(pr.MediaRefs), &post.MediaRefs); err != nil {
		return nil, fmt.Errorf("failed to decode media refs of post %s: %w", pr.ID, err)
	}
	if err := json.Unmarshal([]byte(pr.SEO), &post.SEO); err != nil {
		return nil, fmt.Errorf("failed to decode SEO metadata of post %s: %w", pr.ID, err)
	}

	return post, nil
}

func nullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func timeFromMillis(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.UnixMilli(v.Int64).UTC()
	return &t
}
