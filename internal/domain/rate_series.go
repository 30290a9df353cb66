package domain

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// SeriesKind tells the resolver how a series behaves past its last known point
type SeriesKind string

const (
	// SeriesKindExchangeRate is never extrapolated
	SeriesKindExchangeRate SeriesKind = "exchange_rate"
	// SeriesKindInflation is a price index that may be extrapolated forward
	SeriesKindInflation SeriesKind = "inflation"
)

// Valid reports whether k is a known series kind
func (k SeriesKind) Valid() bool {
	return k == SeriesKindExchangeRate || k == SeriesKindInflation
}

// RatePoint is one observation of a named series
type RatePoint struct {
	Date  time.Time
	Value decimal.Decimal
}

// RateSeries is a date-ordered, date-unique sequence of observations.
// Exchange rates are expressed as primary-currency units per secondary-currency unit.
type RateSeries struct {
	Name   string
	Kind   SeriesKind
	Points []RatePoint
}

// NewRateSeries builds a series from unordered points; later duplicates of a day win
func NewRateSeries(name string, kind SeriesKind, points ...RatePoint) *RateSeries {
	s := &RateSeries{Name: name, Kind: kind}
	s.Upsert(points...)
	return s
}

// Upsert inserts points keeping the series sorted by day.
// A point for a day already present overwrites the existing value.
func (s *RateSeries) Upsert(points ...RatePoint) {
	for _, p := range points {
		day := DayOf(p.Date)
		i := sort.Search(len(s.Points), func(i int) bool {
			return !s.Points[i].Date.Before(day)
		})
		if i < len(s.Points) && s.Points[i].Date.Equal(day) {
			s.Points[i].Value = p.Value
			continue
		}
		s.Points = append(s.Points, RatePoint{})
		copy(s.Points[i+1:], s.Points[i:])
		s.Points[i] = RatePoint{Date: day, Value: p.Value}
	}
}

// Len returns the number of points
func (s *RateSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Points)
}

// Last returns the most recent point
func (s *RateSeries) Last() (RatePoint, bool) {
	if s.Len() == 0 {
		return RatePoint{}, false
	}
	return s.Points[len(s.Points)-1], true
}

// Validate ensures the series has a name, a known kind and positive values
func (s *RateSeries) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("rate series name cannot be empty")
	}
	if !s.Kind.Valid() {
		return fmt.Errorf("rate series %s has unknown kind %q", s.Name, s.Kind)
	}
	for _, p := range s.Points {
		if p.Value.LessThanOrEqual(decimal.Zero) {
			return fmt.Errorf("rate series %s has a non-positive value on %s", s.Name, p.Date.Format(DateLayout))
		}
	}
	return nil
}
