package rates

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/realfolio-backend/internal/domain"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func point(t time.Time, v string) domain.RatePoint {
	return domain.RatePoint{Date: t, Value: dec(v)}
}

func TestResolve_NearestPoint(t *testing.T) {
	series := domain.NewRateSeries("dolar_mep", domain.SeriesKindExchangeRate,
		point(day(2024, 1, 1), "100"),
		point(day(2024, 1, 5), "200"),
	)

	tests := []struct {
		name string
		date time.Time
		want string
	}{
		{name: "Exact match", date: day(2024, 1, 5), want: "200"},
		{name: "Equidistant resolves to earlier point", date: day(2024, 1, 3), want: "100"},
		{name: "Closer to later point", date: day(2024, 1, 4), want: "200"},
		{name: "Before first point uses first point", date: day(2023, 12, 25), want: "100"},
		{name: "Time of day is ignored", date: time.Date(2024, 1, 4, 23, 59, 0, 0, time.UTC), want: "200"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(series, tt.date, DefaultFallbackMonthly)
			require.NoError(t, err)
			assert.True(t, dec(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestResolve_ExchangeRateNotExtrapolated(t *testing.T) {
	series := domain.NewRateSeries("dolar_mep", domain.SeriesKindExchangeRate,
		point(day(2024, 1, 1), "100"),
	)

	_, err := Resolve(series, day(2024, 1, 2), DefaultFallbackMonthly)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrRateUnavailable))
	var rateErr *domain.RateUnavailableError
	require.True(t, errors.As(err, &rateErr))
	assert.Equal(t, "dolar_mep", rateErr.Series)
}

func TestResolve_EmptySeries(t *testing.T) {
	series := domain.NewRateSeries("cpi_usa", domain.SeriesKindInflation)

	_, err := Resolve(series, day(2024, 1, 1), DefaultFallbackMonthly)

	assert.True(t, errors.Is(err, domain.ErrRateUnavailable))
}

func TestResolve_InflationFallbackGrowth(t *testing.T) {
	// Fewer than 7 points: 0.2% per month is assumed
	series := domain.NewRateSeries("cpi_usa", domain.SeriesKindInflation,
		point(day(2024, 1, 1), "98"),
		point(day(2024, 2, 1), "99"),
		point(day(2024, 3, 1), "100"),
	)

	sameMonth, err := Resolve(series, day(2024, 3, 20), DefaultFallbackMonthly)
	require.NoError(t, err)
	assert.True(t, dec("100").Equal(sameMonth))

	twoMonths, err := Resolve(series, day(2024, 5, 15), DefaultFallbackMonthly)
	require.NoError(t, err)
	// 100 * 1.002^2
	assert.True(t, dec("100.4004").Equal(twoMonths.Round(6)), "got %s", twoMonths)
}

func TestResolve_InflationTrailingMeanIgnoresOlderTransitions(t *testing.T) {
	// The first transition doubles the index; the trailing six grow 1% each
	series := domain.NewRateSeries("cpi_argentina", domain.SeriesKindInflation,
		point(day(2023, 1, 1), "100"),
		point(day(2023, 2, 1), "200"),
		point(day(2023, 3, 1), "202"),
		point(day(2023, 4, 1), "204.02"),
		point(day(2023, 5, 1), "206.0602"),
		point(day(2023, 6, 1), "208.120802"),
		point(day(2023, 7, 1), "210.20201002"),
		point(day(2023, 8, 1), "212.3040301202"),
	)

	growth := MonthlyGrowth(series, DefaultFallbackMonthly)
	assert.True(t, dec("0.01").Equal(growth.Round(10)), "got %s", growth)

	next, err := Resolve(series, day(2023, 9, 1), DefaultFallbackMonthly)
	require.NoError(t, err)
	assert.True(t, dec("214.4271").Equal(next.Round(4)), "got %s", next)
}

func TestMonthlyGrowth_ExactDecimalMean(t *testing.T) {
	// transitions alternate 10% and 20%; a float mean drifts to 0.15000000000000002
	series := domain.NewRateSeries("cpi_argentina", domain.SeriesKindInflation,
		point(day(2024, 1, 1), "100"),
		point(day(2024, 2, 1), "110"),
		point(day(2024, 3, 1), "132"),
		point(day(2024, 4, 1), "145.2"),
		point(day(2024, 5, 1), "174.24"),
		point(day(2024, 6, 1), "191.664"),
		point(day(2024, 7, 1), "229.9968"),
	)

	growth := MonthlyGrowth(series, DefaultFallbackMonthly)
	assert.True(t, dec("0.15").Equal(growth), "got %s", growth)

	next, err := Resolve(series, day(2024, 8, 1), DefaultFallbackMonthly)
	require.NoError(t, err)
	assert.True(t, dec("264.49632").Equal(next.Round(5)), "got %s", next)

	mean, stdDev, ok := GrowthStats(series)
	require.True(t, ok)
	assert.InDelta(t, 0.15, mean, 1e-12)
	assert.Greater(t, stdDev, 0.0)
}

func TestGrowthStats_TooFewPoints(t *testing.T) {
	series := domain.NewRateSeries("cpi_usa", domain.SeriesKindInflation,
		point(day(2024, 1, 1), "300"),
		point(day(2024, 2, 1), "301"),
	)

	_, _, ok := GrowthStats(series)

	assert.False(t, ok)
}

func TestResolve_ExtrapolationContinuity(t *testing.T) {
	series := domain.NewRateSeries("cpi_usa", domain.SeriesKindInflation,
		point(day(2024, 1, 1), "300"),
		point(day(2024, 2, 1), "301"),
	)
	last, _ := series.Last()

	atLast, err := Resolve(series, last.Date, DefaultFallbackMonthly)
	require.NoError(t, err)
	assert.True(t, last.Value.Equal(atLast))

	oneMonth, err := Resolve(series, day(2024, 3, 1), DefaultFallbackMonthly)
	require.NoError(t, err)
	want := last.Value.Mul(decimal.NewFromInt(1).Add(DefaultFallbackMonthly))
	assert.True(t, want.Round(8).Equal(oneMonth.Round(8)), "got %s want %s", oneMonth, want)
}

func TestInflationFactor(t *testing.T) {
	series := domain.NewRateSeries("cpi_usa", domain.SeriesKindInflation,
		point(day(2024, 1, 1), "100"),
		point(day(2024, 2, 1), "110"),
	)

	factor, err := InflationFactor(series, day(2024, 1, 1), day(2024, 2, 1), DefaultFallbackMonthly)
	require.NoError(t, err)
	assert.True(t, dec("0.1").Equal(factor))

	empty := domain.NewRateSeries("cpi_argentina", domain.SeriesKindInflation)
	_, err = InflationFactor(empty, day(2024, 1, 1), day(2024, 2, 1), DefaultFallbackMonthly)
	assert.True(t, errors.Is(err, domain.ErrRateUnavailable))
}

func TestMonthsBetween(t *testing.T) {
	assert.Equal(t, 0, MonthsBetween(day(2024, 3, 1), day(2024, 3, 31)))
	assert.Equal(t, 1, MonthsBetween(day(2024, 3, 31), day(2024, 4, 1)))
	assert.Equal(t, 14, MonthsBetween(day(2023, 11, 15), day(2025, 1, 2)))
}

func TestBook_UnknownSeries(t *testing.T) {
	book := NewBook(DefaultFallbackMonthly,
		domain.NewRateSeries("dolar_mep", domain.SeriesKindExchangeRate, point(day(2024, 1, 1), "1000")),
	)

	rate, err := book.Rate("dolar_mep", day(2024, 1, 1))
	require.NoError(t, err)
	assert.True(t, dec("1000").Equal(rate))

	_, err = book.Rate("dolar_ccl", day(2024, 1, 1))
	assert.True(t, errors.Is(err, domain.ErrRateUnavailable))

	_, err = book.InflationFactor("cpi_usa", day(2024, 1, 1), day(2024, 2, 1))
	assert.True(t, errors.Is(err, domain.ErrRateUnavailable))
}
