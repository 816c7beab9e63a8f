package db

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

var errAbort = errors.New("abort")

// setupTestDB creates a single-connection database with a versioned table
// shaped like the posts table.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`CREATE TABLE entries (
		id TEXT PRIMARY KEY,
		version INTEGER NOT NULL DEFAULT 1
	)`)
	if err != nil {
		t.Fatalf("failed to create test table: %v", err)
	}

	return db
}

func insertEntry(ctx context.Context, db *sql.DB, id string) error {
	_, err := GetExecutor(ctx, db).ExecContext(ctx, "INSERT INTO entries (id) VALUES (?)", id)
	return err
}

// bumpVersion increments the version of id if it is still expected.
func bumpVersion(ctx context.Context, db *sql.DB, id string, expected int64) (bool, error) {
	res, err := GetExecutor(ctx, db).ExecContext(ctx,
		"UPDATE entries SET version = version + 1 WHERE id = ? AND version = ?", id, expected)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func countEntries(t *testing.T, db *sql.DB) int {
	t.Helper()

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM entries").Scan(&count); err != nil {
		t.Fatalf("failed to count entries: %v", err)
	}
	return count
}

func TestRunInTransaction(t *testing.T) {
	tests := []struct {
		name      string
		fn        func(ctx context.Context, db *sql.DB) error
		wantErr   error
		wantCount int
	}{
		{
			name: "commits on success",
			fn: func(ctx context.Context, db *sql.DB) error {
				return insertEntry(ctx, db, "a")
			},
			wantCount: 1,
		},
		{
			name: "rolls back and returns the callback error",
			fn: func(ctx context.Context, db *sql.DB) error {
				if err := insertEntry(ctx, db, "a"); err != nil {
					return err
				}
				return errAbort
			},
			wantErr:   errAbort,
			wantCount: 0,
		},
		{
			name: "nested call joins the outer transaction",
			fn: func(ctx context.Context, db *sql.DB) error {
				if err := insertEntry(ctx, db, "outer"); err != nil {
					return err
				}
				return RunInTransaction(ctx, db, func(inner context.Context) error {
					return insertEntry(inner, db, "inner")
				})
			},
			wantCount: 2,
		},
		{
			name: "nested failure rolls back the outer work",
			fn: func(ctx context.Context, db *sql.DB) error {
				if err := insertEntry(ctx, db, "outer"); err != nil {
					return err
				}
				return RunInTransaction(ctx, db, func(inner context.Context) error {
					if err := insertEntry(inner, db, "inner"); err != nil {
						return err
					}
					return errAbort
				})
			},
			wantErr:   errAbort,
			wantCount: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := setupTestDB(t)

			err := RunInTransaction(context.Background(), db, func(ctx context.Context) error {
				if _, ok := GetTx(ctx); !ok {
					t.Error("expected transaction in context")
				}
				return tt.fn(ctx, db)
			})

			if !errors.Is(err, tt.wantErr) {
				t.Errorf("RunInTransaction() error = %v, want %v", err, tt.wantErr)
			}
			if got := countEntries(t, db); got != tt.wantCount {
				t.Errorf("entries = %d, want %d", got, tt.wantCount)
			}
		})
	}
}

func TestRunInTransaction_NestedReusesTx(t *testing.T) {
	db := setupTestDB(t)

	err := RunInTransaction(context.Background(), db, func(outer context.Context) error {
		return RunInTransaction(outer, db, func(inner context.Context) error {
			outerTx, _ := GetTx(outer)
			innerTx, _ := GetTx(inner)
			if outerTx != innerTx {
				t.Error("expected nested call to reuse the outer transaction")
			}
			return nil
		})
	})
	if err != nil {
		t.Fatalf("RunInTransaction() error = %v", err)
	}
}

func TestRunInTransaction_VersionGuard(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	if err := insertEntry(ctx, db, "post"); err != nil {
		t.Fatalf("failed to insert: %v", err)
	}

	var first, second bool
	err := RunInTransaction(ctx, db, func(txCtx context.Context) error {
		var err error
		if first, err = bumpVersion(txCtx, db, "post", 1); err != nil {
			return err
		}
		second, err = bumpVersion(txCtx, db, "post", 1)
		return err
	})
	if err != nil {
		t.Fatalf("RunInTransaction() error = %v", err)
	}

	if !first {
		t.Error("first guarded update = false, want true")
	}
	if second {
		t.Error("second guarded update with stale version = true, want false")
	}

	var version int64
	if err := db.QueryRow("SELECT version FROM entries WHERE id = ?", "post").Scan(&version); err != nil {
		t.Fatalf("failed to read version: %v", err)
	}
	if version != 2 {
		t.Errorf("version = %d, want 2", version)
	}
}

func TestRunInTransactionWithOptions_ReadOnly(t *testing.T) {
	db := setupTestDB(t)

	opts := &sql.TxOptions{ReadOnly: true}
	err := RunInTransactionWithOptions(context.Background(), db, opts, func(ctx context.Context) error {
		var n int
		return GetExecutor(ctx, db).QueryRowContext(ctx, "SELECT COUNT(*) FROM entries").Scan(&n)
	})
	if err != nil {
		t.Fatalf("RunInTransactionWithOptions() error = %v", err)
	}
}

func TestRunInTransaction_BeginFails(t *testing.T) {
	db := setupTestDB(t)
	db.Close()

	called := false
	err := RunInTransaction(context.Background(), db, func(context.Context) error {
		called = true
		return nil
	})

	if err == nil {
		t.Error("RunInTransaction() on closed db error = nil, want error")
	}
	if called {
		t.Error("callback ran without a transaction")
	}
}

func TestGetExecutor(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if got := GetExecutor(ctx, db); got != Executor(db) {
		t.Error("GetExecutor() without tx did not return the database")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	if got := GetExecutor(WithTx(ctx, tx), db); got != Executor(tx) {
		t.Error("GetExecutor() with tx did not return the transaction")
	}
}
