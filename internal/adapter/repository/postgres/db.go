package postgres

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
)

const (
	maxOpenConns = 10
	connectTries = 5
	connectPause = time.Second
	connMaxIdle  = 5 * time.Minute
)

// DB wraps the ledger database connection pool
type DB struct {
	*sql.DB
}

// NewDB opens the pool and waits for the server to accept connections.
// connectionString should be in the format: "host=localhost port=5432 user=postgres password=postgres dbname=realfolio sslmode=disable"
func NewDB(connectionString string) (*DB, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetConnMaxIdleTime(connMaxIdle)

	// the server may still be starting when run next to it
	for attempt := 1; ; attempt++ {
		err = db.Ping()
		if err == nil {
			break
		}
		if attempt == connectTries {
			db.Close()
			return nil, fmt.Errorf("failed to ping database after %d attempts: %w", attempt, err)
		}
		time.Sleep(connectPause * time.Duration(attempt))
	}

	return &DB{DB: db}, nil
}

// Close closes the connection pool
func (db *DB) Close() error {
	return db.DB.Close()
}
