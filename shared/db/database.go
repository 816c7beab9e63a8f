package db

import (
	"database/sql"
)

// Database owns a connection pool. Connect applies pending migrations before
// returning, so repositories built on DB() can assume the current schema.
type Database interface {
	Connect() error
	Close() error
	DB() *sql.DB
}
