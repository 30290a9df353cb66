package domain

import (
	"context"
)

// LedgerRepository defines the persistence boundary for ledger snapshots
type LedgerRepository interface {
	// Load returns the current open lots (in insertion order) and all closed trades
	Load(ctx context.Context) (*Snapshot, error)

	// Save replaces the set of open lots and appends the given closed trades atomically.
	// Closed trades already persisted are never rewritten.
	Save(ctx context.Context, lots []Lot, appended []ClosedTrade) error
}

// RateSeriesRepository defines the interface for exchange-rate and price-index persistence
type RateSeriesRepository interface {
	// Register creates the series if it does not exist, or updates its kind
	Register(ctx context.Context, name string, kind SeriesKind) error

	// Get retrieves a series with all its points sorted by date
	// Returns an error wrapping ErrNotFound if the series is not registered
	Get(ctx context.Context, name string) (*RateSeries, error)

	// List retrieves every registered series with its points
	List(ctx context.Context) ([]*RateSeries, error)

	// Upsert stores points, overwriting values for dates already present
	Upsert(ctx context.Context, name string, points []RatePoint) error
}

// RetryRepository defines the interface for pending (rate-starved) transactions
type RetryRepository interface {
	// List retrieves all pending tasks ordered by transaction timestamp
	List(ctx context.Context) ([]*RetryTask, error)

	// Upsert creates or updates the task for its transaction id
	Upsert(ctx context.Context, task *RetryTask) error

	// Delete removes the task for a transaction id, if any
	Delete(ctx context.Context, transactionID string) error
}
