package postgres

import (
	"context"
	"fmt"
)

// schema creates every table the ledger needs; statements are idempotent
var schema = []string{
	`CREATE TABLE IF NOT EXISTS lots (
		id UUID PRIMARY KEY,
		ordinal INTEGER NOT NULL,
		ticker TEXT NOT NULL,
		open_date DATE NOT NULL,
		remaining_quantity NUMERIC NOT NULL,
		cost_primary NUMERIC NOT NULL,
		cost_secondary NUMERIC NOT NULL,
		category TEXT NOT NULL,
		currency TEXT NOT NULL,
		source_transaction_id TEXT NOT NULL,
		option_underlying TEXT,
		option_right TEXT,
		option_strike NUMERIC,
		option_expiration DATE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_lots_ordinal ON lots (ordinal)`,
	`CREATE TABLE IF NOT EXISTS closed_trades (
		seq BIGSERIAL PRIMARY KEY,
		id UUID NOT NULL UNIQUE,
		ticker TEXT NOT NULL,
		category TEXT NOT NULL,
		quantity NUMERIC NOT NULL,
		buy_date DATE NOT NULL,
		sell_date DATE NOT NULL,
		cost_primary NUMERIC NOT NULL,
		cost_secondary NUMERIC NOT NULL,
		revenue_primary NUMERIC NOT NULL,
		revenue_secondary NUMERIC NOT NULL,
		buy_transaction_id TEXT NOT NULL,
		sell_transaction_id TEXT NOT NULL DEFAULT '',
		expired BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE TABLE IF NOT EXISTS rate_series (
		name TEXT PRIMARY KEY,
		kind TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS rate_points (
		series TEXT NOT NULL REFERENCES rate_series (name) ON DELETE CASCADE,
		date DATE NOT NULL,
		value NUMERIC NOT NULL,
		PRIMARY KEY (series, date)
	)`,
	`CREATE TABLE IF NOT EXISTS retry_tasks (
		id UUID PRIMARY KEY,
		transaction_id TEXT NOT NULL UNIQUE,
		occurred_at TIMESTAMPTZ NOT NULL,
		reason TEXT NOT NULL,
		attempts INTEGER NOT NULL,
		first_seen TIMESTAMPTZ NOT NULL,
		last_attempt TIMESTAMPTZ NOT NULL,
		payload BYTEA NOT NULL
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
