package rates

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/simaogato/realfolio-backend/internal/domain"
)

// RateService manages stored exchange-rate and price-index series
type RateService struct {
	SeriesRepo      domain.RateSeriesRepository
	FallbackMonthly decimal.Decimal
	log             zerolog.Logger
}

// NewRateService creates a new RateService instance
func NewRateService(seriesRepo domain.RateSeriesRepository, fallbackMonthly decimal.Decimal, log zerolog.Logger) *RateService {
	return &RateService{
		SeriesRepo:      seriesRepo,
		FallbackMonthly: fallbackMonthly,
		log:             log.With().Str("service", "rates").Logger(),
	}
}

// Book loads every registered series into a read-only Book for one run
func (s *RateService) Book(ctx context.Context) (*Book, error) {
	series, err := s.SeriesRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load rate series: %w", err)
	}

	for _, rs := range series {
		if rs.Kind != domain.SeriesKindInflation {
			continue
		}
		if mean, stdDev, ok := GrowthStats(rs); ok {
			s.log.Debug().Str("series", rs.Name).Float64("mean_growth", mean).Float64("std_dev", stdDev).
				Msg("inflation trailing growth")
		}
	}
	return NewBook(s.FallbackMonthly, series...), nil
}

// Register declares a series and its kind; registering again updates the kind
func (s *RateService) Register(ctx context.Context, name string, kind domain.SeriesKind) error {
	if err := domain.NewRateSeries(name, kind).Validate(); err != nil {
		return err
	}
	return s.SeriesRepo.Register(ctx, name, kind)
}

// UpsertPoints stores new observations for a registered series
// Logic:
//  1. The series must already be registered (ErrNotFound otherwise)
//  2. Every value must be positive
//  3. Points for days already stored overwrite the old value
func (s *RateService) UpsertPoints(ctx context.Context, name string, points []domain.RatePoint) (int, error) {
	series, err := s.SeriesRepo.Get(ctx, name)
	if err != nil {
		return 0, err
	}

	candidate := domain.NewRateSeries(series.Name, series.Kind, points...)
	if err := candidate.Validate(); err != nil {
		return 0, err
	}

	if err := s.SeriesRepo.Upsert(ctx, name, candidate.Points); err != nil {
		return 0, fmt.Errorf("failed to upsert points for %s: %w", name, err)
	}

	s.log.Info().Str("series", name).Int("points", candidate.Len()).Msg("rate points upserted")
	return candidate.Len(), nil
}

// Load implements the per-run rate source loader used by the ledger and the reports
func (s *RateService) Load(ctx context.Context) (Source, error) {
	book, err := s.Book(ctx)
	if err != nil {
		return nil, err
	}
	return book, nil
}
