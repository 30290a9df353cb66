package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// RetryTask is a transaction that could not be applied because a rate was missing.
// It stays pending until a later run manages to apply it.
type RetryTask struct {
	ID          uuid.UUID
	Transaction Transaction
	Reason      string
	Attempts    int
	FirstSeen   time.Time
	LastAttempt time.Time
}

// Rejection pairs a transaction with the reason the ledger refused to apply it
type Rejection struct {
	Transaction Transaction
	Err         error
}

// Retryable reports whether the transaction may succeed later, once the missing rate is published
func (r Rejection) Retryable() bool {
	return errors.Is(r.Err, ErrRateUnavailable)
}

// Reason returns a stable machine-readable code for the rejection
func (r Rejection) Reason() string {
	switch {
	case errors.Is(r.Err, ErrRateUnavailable):
		return "RATE_UNAVAILABLE"
	case errors.Is(r.Err, ErrInsufficientQuantity):
		return "INSUFFICIENT_QUANTITY"
	case errors.Is(r.Err, ErrMalformedTransaction):
		return "MALFORMED_TRANSACTION"
	}
	return "UNKNOWN"
}
