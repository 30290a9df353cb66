package rates

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/simaogato/realfolio-backend/internal/domain"
)

// Source resolves exchange rates and inflation factors by series name.
// The ledger and the return calculator receive one injected Source per run.
type Source interface {
	// Rate returns the value of a series (primary units per secondary unit for exchange rates)
	Rate(series string, date time.Time) (decimal.Decimal, error)

	// InflationFactor returns end/start - 1 for a price-index series
	InflationFactor(series string, start, end time.Time) (decimal.Decimal, error)
}

// Book is a read-only set of named series taken at the start of a run
type Book struct {
	series          map[string]*domain.RateSeries
	fallbackMonthly decimal.Decimal
}

// NewBook builds a Book from series; a later series with the same name replaces an earlier one
func NewBook(fallbackMonthly decimal.Decimal, series ...*domain.RateSeries) *Book {
	b := &Book{
		series:          make(map[string]*domain.RateSeries, len(series)),
		fallbackMonthly: fallbackMonthly,
	}
	for _, s := range series {
		if s != nil {
			b.series[s.Name] = s
		}
	}
	return b
}

// Series returns a registered series by name
func (b *Book) Series(name string) (*domain.RateSeries, bool) {
	s, ok := b.series[name]
	return s, ok
}

// Rate implements Source
func (b *Book) Rate(series string, date time.Time) (decimal.Decimal, error) {
	s, ok := b.series[series]
	if !ok {
		return decimal.Zero, &domain.RateUnavailableError{Series: series, Date: domain.DayOf(date)}
	}
	return Resolve(s, date, b.fallbackMonthly)
}

// InflationFactor implements Source
func (b *Book) InflationFactor(series string, start, end time.Time) (decimal.Decimal, error) {
	s, ok := b.series[series]
	if !ok {
		return decimal.Zero, &domain.RateUnavailableError{Series: series, Date: domain.DayOf(start)}
	}
	return InflationFactor(s, start, end, b.fallbackMonthly)
}
