package sqlite

import (
	"database/sql"
	"fmt"
)

// migration represents a single database migration
type migration struct {
	version int
	name    string
	up      string
}

// migrations is the ordered list of all database migrations.
// Instants are stored as unix milliseconds so that due-time comparisons are
// plain integer comparisons.
var migrations = []migration{
	{
		version: 1,
		name:    "create_posts_table",
		up: `
			CREATE TABLE IF NOT EXISTS posts (
				id TEXT PRIMARY KEY,
				slug TEXT NOT NULL,
				author_id TEXT NOT NULL,
				title TEXT NOT NULL,
				body TEXT NOT NULL,
				excerpt TEXT NOT NULL DEFAULT '',
				category TEXT NOT NULL DEFAULT '',
				media_refs TEXT NOT NULL DEFAULT '[]',
				seo TEXT NOT NULL DEFAULT '{}',
				status TEXT NOT NULL CHECK (status IN ('draft', 'scheduled', 'published')),
				scheduled_at INTEGER,
				timezone TEXT NOT NULL DEFAULT '',
				auto_publish INTEGER NOT NULL DEFAULT 0,
				published_at INTEGER,
				version INTEGER NOT NULL DEFAULT 1,
				created_at INTEGER NOT NULL,
				updated_at INTEGER NOT NULL,
				CHECK ((status = 'scheduled') = (scheduled_at IS NOT NULL)),
				CHECK (status = 'scheduled' OR auto_publish = 0),
				CHECK (status != 'published' OR published_at IS NOT NULL)
			);

			CREATE UNIQUE INDEX IF NOT EXISTS idx_posts_slug ON posts(slug);

			CREATE INDEX IF NOT EXISTS idx_posts_published_at
			ON posts(published_at DESC)
			WHERE published_at IS NOT NULL;
		`,
	},
	{
		version: 2,
		name:    "create_posts_due_index",
		up: `
			CREATE INDEX IF NOT EXISTS idx_posts_due
			ON posts(scheduled_at)
			WHERE status = 'scheduled' AND auto_publish = 1;
		`,
	},
}

// runMigrations executes all pending migrations
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	currentVersion := 0
	err = db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get current schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue // Already applied
		}

		if err := applyMigration(db, m); err != nil {
			return err
		}
	}

	return nil
}

func applyMigration(db *sql.DB, m migration) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction for migration %d: %w", m.version, err)
	}

	if _, err := tx.Exec(m.up); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to execute migration %d (%s): %w", m.version, m.name, err)
	}

	_, err = tx.Exec(
		"INSERT INTO schema_migrations (version, name) VALUES (?, ?)",
		m.version,
		m.name,
	)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to record migration %d: %w", m.version, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %d: %w", m.version, err)
	}

	return nil
}
