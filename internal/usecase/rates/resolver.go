package rates

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"

	"github.com/simaogato/realfolio-backend/internal/domain"
)

// TrailingTransitions is the number of month-over-month transitions averaged when extrapolating
const TrailingTransitions = 6

// DefaultFallbackMonthly is the monthly growth assumed when a series is too short to average (0.2%)
var DefaultFallbackMonthly = decimal.RequireFromString("0.002")

var one = decimal.NewFromInt(1)

// Resolve returns the value of a series for a calendar date
// Logic:
//  1. Empty series -> rate unavailable
//  2. Date on or before the last point -> value of the nearest point (ties go to the earlier point)
//  3. Date after the last point:
//     - exchange-rate series -> rate unavailable
//     - inflation series -> last value compounded by the mean monthly growth of the trailing
//     6 transitions (or fallbackMonthly when there are fewer than 7 points) over the whole
//     calendar months between the last point and the date
func Resolve(series *domain.RateSeries, date time.Time, fallbackMonthly decimal.Decimal) (decimal.Decimal, error) {
	day := domain.DayOf(date)

	last, ok := series.Last()
	if !ok {
		return decimal.Zero, unavailable(series, day)
	}

	if day.After(last.Date) {
		if series.Kind != domain.SeriesKindInflation {
			return decimal.Zero, unavailable(series, day)
		}
		return extrapolate(series, day, fallbackMonthly), nil
	}

	return nearest(series.Points, day).Value, nil
}

// InflationFactor returns the cumulative growth of a series between two dates: end/start - 1.
// A missing value on either side propagates as ErrRateUnavailable.
func InflationFactor(series *domain.RateSeries, start, end time.Time, fallbackMonthly decimal.Decimal) (decimal.Decimal, error) {
	startValue, err := Resolve(series, start, fallbackMonthly)
	if err != nil {
		return decimal.Zero, err
	}
	endValue, err := Resolve(series, end, fallbackMonthly)
	if err != nil {
		return decimal.Zero, err
	}
	if startValue.IsZero() {
		return decimal.Zero, unavailable(series, domain.DayOf(start))
	}
	return endValue.Div(startValue).Sub(one), nil
}

// MonthlyGrowth is the growth rate used to extrapolate an inflation series past its last point:
// the exact decimal mean of the trailing transitions, or fallbackMonthly when there are too few points
func MonthlyGrowth(series *domain.RateSeries, fallbackMonthly decimal.Decimal) decimal.Decimal {
	growth, ok := trailingGrowth(series)
	if !ok {
		return fallbackMonthly
	}

	sum := decimal.Zero
	for _, g := range growth {
		sum = sum.Add(g)
	}
	return sum.Div(decimal.NewFromInt(int64(len(growth))))
}

// GrowthStats summarizes the trailing month-over-month growth as floats, for diagnostics only.
// Extrapolation never uses it.
func GrowthStats(series *domain.RateSeries) (mean, stdDev float64, ok bool) {
	growth, ok := trailingGrowth(series)
	if !ok {
		return 0, 0, false
	}
	values := make([]float64, len(growth))
	for i, g := range growth {
		values[i] = g.InexactFloat64()
	}
	mean, stdDev = stat.MeanStdDev(values, nil)
	return mean, stdDev, true
}

func trailingGrowth(series *domain.RateSeries) ([]decimal.Decimal, bool) {
	points := series.Points
	if len(points) < TrailingTransitions+1 {
		return nil, false
	}

	trailing := points[len(points)-TrailingTransitions-1:]
	growth := make([]decimal.Decimal, 0, TrailingTransitions)
	for i := 1; i < len(trailing); i++ {
		prev := trailing[i-1].Value
		if prev.IsZero() {
			return nil, false
		}
		growth = append(growth, trailing[i].Value.Div(prev).Sub(one))
	}
	return growth, true
}

// MonthsBetween counts calendar months from a to b, ignoring the day of month
func MonthsBetween(a, b time.Time) int {
	return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
}

func extrapolate(series *domain.RateSeries, day time.Time, fallbackMonthly decimal.Decimal) decimal.Decimal {
	last, _ := series.Last()
	months := MonthsBetween(last.Date, day)
	if months <= 0 {
		return last.Value
	}

	growth := MonthlyGrowth(series, fallbackMonthly)
	factor := one.Add(growth).Pow(decimal.NewFromInt(int64(months)))
	return last.Value.Mul(factor)
}

func nearest(points []domain.RatePoint, day time.Time) domain.RatePoint {
	i := sort.Search(len(points), func(i int) bool {
		return !points[i].Date.Before(day)
	})
	if i == 0 {
		return points[0]
	}
	if points[i].Date.Equal(day) {
		return points[i]
	}

	before, after := points[i-1], points[i]
	if day.Sub(before.Date) <= after.Date.Sub(day) {
		return before
	}
	return after
}

func unavailable(series *domain.RateSeries, day time.Time) error {
	name := ""
	if series != nil {
		name = series.Name
	}
	return &domain.RateUnavailableError{Series: name, Date: day}
}
