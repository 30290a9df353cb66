package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/simaogato/realfolio-backend/internal/domain"
)

// rateSeriesRepository implements domain.RateSeriesRepository
type rateSeriesRepository struct {
	db *DB
}

// NewRateSeriesRepository creates a new rate series repository
func NewRateSeriesRepository(db *DB) domain.RateSeriesRepository {
	return &rateSeriesRepository{db: db}
}

// Register creates the series or updates its kind
func (r *rateSeriesRepository) Register(ctx context.Context, name string, kind domain.SeriesKind) error {
	query := `
		INSERT INTO rate_series (name, kind)
		VALUES (?, ?)
		ON CONFLICT (name) DO UPDATE SET kind = excluded.kind
	`

	if _, err := r.db.ExecContext(ctx, query, name, string(kind)); err != nil {
		return fmt.Errorf("failed to register rate series %s: %w", name, err)
	}
	return nil
}

// Get retrieves a series with all its points sorted by date
func (r *rateSeriesRepository) Get(ctx context.Context, name string) (*domain.RateSeries, error) {
	var kind string
	err := r.db.QueryRowContext(ctx, `SELECT kind FROM rate_series WHERE name = ?`, name).Scan(&kind)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("rate series %s: %w", name, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get rate series: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `SELECT date, value FROM rate_points WHERE series = ? ORDER BY date`, name)
	if err != nil {
		return nil, fmt.Errorf("failed to query rate points: %w", err)
	}
	defer rows.Close()

	series := &domain.RateSeries{Name: name, Kind: domain.SeriesKind(kind)}
	for rows.Next() {
		var date, value string
		if err := rows.Scan(&date, &value); err != nil {
			return nil, fmt.Errorf("failed to scan rate point: %w", err)
		}
		point, err := toPoint(date, value)
		if err != nil {
			return nil, err
		}
		series.Points = append(series.Points, point)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rate points: %w", err)
	}

	return series, nil
}

// List retrieves every registered series with its points, ordered by name
func (r *rateSeriesRepository) List(ctx context.Context) ([]*domain.RateSeries, error) {
	query := `
		SELECT s.name, s.kind, p.date, p.value
		FROM rate_series s
		LEFT JOIN rate_points p ON p.series = s.name
		ORDER BY s.name, p.date
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list rate series: %w", err)
	}
	defer rows.Close()

	var list []*domain.RateSeries
	var current *domain.RateSeries
	for rows.Next() {
		var name, kind string
		var date, value sql.NullString

		if err := rows.Scan(&name, &kind, &date, &value); err != nil {
			return nil, fmt.Errorf("failed to scan rate series: %w", err)
		}

		if current == nil || current.Name != name {
			current = &domain.RateSeries{Name: name, Kind: domain.SeriesKind(kind)}
			list = append(list, current)
		}
		if !date.Valid {
			continue
		}

		point, err := toPoint(date.String, value.String)
		if err != nil {
			return nil, err
		}
		current.Points = append(current.Points, point)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rate series: %w", err)
	}

	return list, nil
}

// Upsert stores points, overwriting the value of dates already present
func (r *rateSeriesRepository) Upsert(ctx context.Context, name string, points []domain.RatePoint) error {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	var count int
	if err := dbTx.QueryRowContext(ctx, `SELECT COUNT(1) FROM rate_series WHERE name = ?`, name).Scan(&count); err != nil {
		return fmt.Errorf("failed to check rate series: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("rate series %s: %w", name, domain.ErrNotFound)
	}

	query := `
		INSERT INTO rate_points (series, date, value)
		VALUES (?, ?, ?)
		ON CONFLICT (series, date) DO UPDATE SET value = excluded.value
	`

	for _, p := range points {
		if _, err := dbTx.ExecContext(ctx, query, name, formatDate(p.Date), p.Value.String()); err != nil {
			return fmt.Errorf("failed to upsert rate point: %w", err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func toPoint(date, value string) (domain.RatePoint, error) {
	d, err := parseDate(date, "date")
	if err != nil {
		return domain.RatePoint{}, err
	}
	v, err := parseDecimal(value, "value")
	if err != nil {
		return domain.RatePoint{}, err
	}
	return domain.RatePoint{Date: d, Value: v}, nil
}
