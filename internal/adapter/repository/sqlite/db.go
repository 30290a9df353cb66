package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// MemoryPath opens a private in-memory database
const MemoryPath = ":memory:"

// DB wraps the database connection
type DB struct {
	*sql.DB
}

// NewDB opens (and creates if needed) the database file at path
func NewDB(path string) (*DB, error) {
	dsn := MemoryPath + "?_pragma=foreign_keys(1)"
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// every connection to :memory: is a separate database, and SQLite has a single writer anyway
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: db}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}

// schema mirrors the postgres layout; amounts and dates are TEXT to keep exact decimals
var schema = []string{
	`CREATE TABLE IF NOT EXISTS lots (
		id TEXT PRIMARY KEY,
		ordinal INTEGER NOT NULL,
		ticker TEXT NOT NULL,
		open_date TEXT NOT NULL,
		remaining_quantity TEXT NOT NULL,
		cost_primary TEXT NOT NULL,
		cost_secondary TEXT NOT NULL,
		category TEXT NOT NULL,
		currency TEXT NOT NULL,
		source_transaction_id TEXT NOT NULL,
		option_underlying TEXT,
		option_right TEXT,
		option_strike TEXT,
		option_expiration TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS closed_trades (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		ticker TEXT NOT NULL,
		category TEXT NOT NULL,
		quantity TEXT NOT NULL,
		buy_date TEXT NOT NULL,
		sell_date TEXT NOT NULL,
		cost_primary TEXT NOT NULL,
		cost_secondary TEXT NOT NULL,
		revenue_primary TEXT NOT NULL,
		revenue_secondary TEXT NOT NULL,
		buy_transaction_id TEXT NOT NULL,
		sell_transaction_id TEXT NOT NULL DEFAULT '',
		expired INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS rate_series (
		name TEXT PRIMARY KEY,
		kind TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS rate_points (
		series TEXT NOT NULL REFERENCES rate_series (name) ON DELETE CASCADE,
		date TEXT NOT NULL,
		value TEXT NOT NULL,
		PRIMARY KEY (series, date)
	)`,
	`CREATE TABLE IF NOT EXISTS retry_tasks (
		id TEXT PRIMARY KEY,
		transaction_id TEXT NOT NULL UNIQUE,
		occurred_at TEXT NOT NULL,
		reason TEXT NOT NULL,
		attempts INTEGER NOT NULL,
		first_seen TEXT NOT NULL,
		last_attempt TEXT NOT NULL,
		payload BLOB NOT NULL
	)`,
}

// EnsureSchema creates the ledger tables if they do not exist
func (db *DB) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
