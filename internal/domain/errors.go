package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrRateUnavailable signals that a currency or index value could not be resolved for a date
	ErrRateUnavailable = errors.New("rate unavailable")

	// ErrInsufficientQuantity signals a sell larger than the open quantity of its ticker
	ErrInsufficientQuantity = errors.New("insufficient quantity")

	// ErrMalformedTransaction signals a transaction missing fields required by the ledger
	ErrMalformedTransaction = errors.New("malformed transaction")

	// ErrNotFound is returned by repositories when a record does not exist
	ErrNotFound = errors.New("not found")
)

// RateUnavailableError describes which series could not be resolved and for which date
type RateUnavailableError struct {
	Series string
	Date   time.Time
}

func (e *RateUnavailableError) Error() string {
	return fmt.Sprintf("rate unavailable: series %q has no value for %s", e.Series, e.Date.Format(DateLayout))
}

// Is lets errors.Is match ErrRateUnavailable
func (e *RateUnavailableError) Is(target error) bool {
	return target == ErrRateUnavailable
}

// InsufficientQuantityError describes a rejected sell
type InsufficientQuantityError struct {
	Ticker    string
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientQuantityError) Error() string {
	return fmt.Sprintf("insufficient quantity: cannot sell %s of %s, only %s open",
		e.Requested.String(), e.Ticker, e.Available.String())
}

// Is lets errors.Is match ErrInsufficientQuantity
func (e *InsufficientQuantityError) Is(target error) bool {
	return target == ErrInsufficientQuantity
}

// malformed wraps a validation message with ErrMalformedTransaction
func malformed(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrMalformedTransaction, fmt.Sprintf(format, args...))
}
