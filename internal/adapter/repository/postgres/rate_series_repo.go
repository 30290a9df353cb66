package postgres

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
		VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET kind = EXCLUDED.kind
	`

	if _, err := r.db.ExecContext(ctx, query, name, string(kind)); err != nil {
		return fmt.Errorf("failed to register rate series %s: %w", name, err)
	}
	return nil
}

// Get retrieves a series with all its points sorted by date
func (r *rateSeriesRepository) Get(ctx context.Context, name string) (*domain.RateSeries, error) {
	var kind string
	err := r.db.QueryRowContext(ctx, `SELECT kind FROM rate_series WHERE name = $1`, name).Scan(&kind)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("rate series %s: %w", name, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get rate series: %w", err)
	}

	series := &domain.RateSeries{Name: name, Kind: domain.SeriesKind(kind)}

	rows, err := r.db.QueryContext(ctx, `SELECT date, value FROM rate_points WHERE series = $1 ORDER BY date`, name)
	if err != nil {
		return nil, fmt.Errorf("failed to query rate points: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		point, err := scanPoint(rows)
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
		var date sql.NullTime
		var value sql.NullString

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

		v, err := parseDecimal(value.String, "value")
		if err != nil {
			return nil, err
		}
		current.Points = append(current.Points, domain.RatePoint{Date: domain.DayOf(date.Time), Value: v})
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

	var exists bool
	if err := dbTx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM rate_series WHERE name = $1)`, name).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check rate series: %w", err)
	}
	if !exists {
		return fmt.Errorf("rate series %s: %w", name, domain.ErrNotFound)
	}

	query := `
		INSERT INTO rate_points (series, date, value)
		VALUES ($1, $2, $3)
		ON CONFLICT (series, date) DO UPDATE SET value = EXCLUDED.value
	`

	for _, p := range points {
		if _, err := dbTx.ExecContext(ctx, query, name, domain.DayOf(p.Date), p.Value.String()); err != nil {
			return fmt.Errorf("failed to upsert rate point: %w", err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func scanPoint(rows *sql.Rows) (domain.RatePoint, error) {
	var point domain.RatePoint
	var valueStr string

	if err := rows.Scan(&point.Date, &valueStr); err != nil {
		return point, fmt.Errorf("failed to scan rate point: %w", err)
	}

	value, err := parseDecimal(valueStr, "value")
	if err != nil {
		return point, err
	}
	point.Date = domain.DayOf(point.Date)
	point.Value = value
	return point, nil
}
