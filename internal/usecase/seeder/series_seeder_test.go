package seeder

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/simaogato/realfolio-backend/internal/domain"
)

// MockRateSeriesRepository is a mock implementation of RateSeriesRepository
type MockRateSeriesRepository struct {
	mock.Mock
}

func (m *MockRateSeriesRepository) Register(ctx context.Context, name string, kind domain.SeriesKind) error {
	args := m.Called(ctx, name, kind)
	return args.Error(0)
}

func (m *MockRateSeriesRepository) Get(ctx context.Context, name string) (*domain.RateSeries, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RateSeries), args.Error(1)
}

func (m *MockRateSeriesRepository) List(ctx context.Context) ([]*domain.RateSeries, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.RateSeries), args.Error(1)
}

func (m *MockRateSeriesRepository) Upsert(ctx context.Context, name string, points []domain.RatePoint) error {
	args := m.Called(ctx, name, points)
	return args.Error(0)
}

func testDefinitions() []SeriesDefinition {
	return []SeriesDefinition{
		{Name: "dolar_mep", Kind: domain.SeriesKindExchangeRate},
		{Name: "cpi_argentina", Kind: domain.SeriesKindInflation},
	}
}

func notFound(name string) error {
	return fmt.Errorf("series %s: %w", name, domain.ErrNotFound)
}

func TestSeriesSeeder_Seed_SeriesMissing(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockRateSeriesRepository)
	seeder := NewSeriesSeeder(mockRepo, testDefinitions(), zerolog.Nop())

	mockRepo.On("Get", ctx, "dolar_mep").Return(nil, notFound("dolar_mep"))
	mockRepo.On("Get", ctx, "cpi_argentina").Return(nil, notFound("cpi_argentina"))
	mockRepo.On("Register", ctx, "dolar_mep", domain.SeriesKindExchangeRate).Return(nil)
	mockRepo.On("Register", ctx, "cpi_argentina", domain.SeriesKindInflation).Return(nil)

	err := seeder.Seed(ctx)

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
	mockRepo.AssertNumberOfCalls(t, "Register", 2)
}

func TestSeriesSeeder_Seed_SeriesExist(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockRateSeriesRepository)
	seeder := NewSeriesSeeder(mockRepo, testDefinitions(), zerolog.Nop())

	mockRepo.On("Get", ctx, "dolar_mep").Return(domain.NewRateSeries("dolar_mep", domain.SeriesKindExchangeRate), nil)
	mockRepo.On("Get", ctx, "cpi_argentina").Return(domain.NewRateSeries("cpi_argentina", domain.SeriesKindInflation), nil)

	err := seeder.Seed(ctx)

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
	mockRepo.AssertNotCalled(t, "Register")
}

func TestSeriesSeeder_Seed_KindChanged(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockRateSeriesRepository)
	seeder := NewSeriesSeeder(mockRepo, testDefinitions(), zerolog.Nop())

	mockRepo.On("Get", ctx, "dolar_mep").Return(domain.NewRateSeries("dolar_mep", domain.SeriesKindExchangeRate), nil)
	// registered earlier as an exchange rate, now declared as an index
	mockRepo.On("Get", ctx, "cpi_argentina").Return(domain.NewRateSeries("cpi_argentina", domain.SeriesKindExchangeRate), nil)
	mockRepo.On("Register", ctx, "cpi_argentina", domain.SeriesKindInflation).Return(nil)

	err := seeder.Seed(ctx)

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
	mockRepo.AssertNumberOfCalls(t, "Register", 1)
}

func TestSeriesSeeder_Seed_Errors(t *testing.T) {
	t.Run("Lookup failure", func(t *testing.T) {
		ctx := context.Background()
		mockRepo := new(MockRateSeriesRepository)
		mockRepo.On("Get", ctx, "dolar_mep").Return(nil, errors.New("connection refused"))

		err := NewSeriesSeeder(mockRepo, testDefinitions(), zerolog.Nop()).Seed(ctx)

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to look up series dolar_mep")
		mockRepo.AssertNotCalled(t, "Register")
	})

	t.Run("Unknown kind", func(t *testing.T) {
		mockRepo := new(MockRateSeriesRepository)
		defs := []SeriesDefinition{{Name: "dolar_blue", Kind: "black_market"}}

		err := NewSeriesSeeder(mockRepo, defs, zerolog.Nop()).Seed(context.Background())

		assert.Error(t, err)
		mockRepo.AssertNotCalled(t, "Get")
	})
}
