package seeder

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/simaogato/realfolio-backend/internal/domain"
)

// SeriesDefinition declares a rate series the ledger depends on
type SeriesDefinition struct {
	Name string
	Kind domain.SeriesKind
}

// SeriesSeeder handles registration of the rate series named by the ledger profile
type SeriesSeeder struct {
	repo   domain.RateSeriesRepository
	series []SeriesDefinition
	log    zerolog.Logger
}

// NewSeriesSeeder creates a new SeriesSeeder instance
func NewSeriesSeeder(repo domain.RateSeriesRepository, series []SeriesDefinition, log zerolog.Logger) *SeriesSeeder {
	return &SeriesSeeder{
		repo:   repo,
		series: series,
		log:    log.With().Str("component", "series_seeder").Logger(),
	}
}

// Seed ensures every configured series exists with the configured kind
// Logic:
//   - a missing series is registered
//   - a series registered with another kind is re-registered (the kind drives extrapolation)
//   - a series already matching is left alone, points included
func (s *SeriesSeeder) Seed(ctx context.Context) error {
	for _, def := range s.series {
		if !def.Kind.Valid() {
			return fmt.Errorf("series %s has unknown kind %q", def.Name, def.Kind)
		}

		existing, err := s.repo.Get(ctx, def.Name)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("failed to look up series %s: %w", def.Name, err)
		}
		if err == nil && existing.Kind == def.Kind {
			continue
		}

		if err := s.repo.Register(ctx, def.Name, def.Kind); err != nil {
			return fmt.Errorf("failed to register series %s: %w", def.Name, err)
		}
		s.log.Info().Str("series", def.Name).Str("kind", string(def.Kind)).Msg("Registered rate series")
	}

	return nil
}
