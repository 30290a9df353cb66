package allocator

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Prorate splits a total amount proportionally to the given weights
// Returns one slice per weight, in the same order
// Logic:
//  1. Every slice except the last is total * weight / sum(weights)
//  2. The last slice receives total - sum(previous slices)
//
// Safety: Ensures the slices add up to the total exactly (no penny lost)
func Prorate(total decimal.Decimal, weights []decimal.Decimal) ([]decimal.Decimal, error) {
	if len(weights) == 0 {
		return nil, errors.New("weights list cannot be empty")
	}

	sum := decimal.Zero
	for _, w := range weights {
		if w.IsNegative() {
			return nil, errors.New("weights cannot be negative")
		}
		sum = sum.Add(w)
	}
	if sum.IsZero() {
		return nil, errors.New("weights must not all be zero")
	}

	slices := make([]decimal.Decimal, len(weights))
	allocated := decimal.Zero
	for i, w := range weights[:len(weights)-1] {
		slices[i] = total.Mul(w).Div(sum)
		allocated = allocated.Add(slices[i])
	}
	slices[len(weights)-1] = total.Sub(allocated)

	// Safety check: Ensure total allocation equals total amount exactly
	check := decimal.Zero
	for _, s := range slices {
		check = check.Add(s)
	}
	if !check.Equal(total) {
		return nil, errors.New("total allocation does not equal total amount")
	}

	return slices, nil
}
