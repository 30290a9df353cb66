package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// AssetCategory is the canonical asset class of an instrument
type AssetCategory string

const (
	CategoryEquity            AssetCategory = "EQUITY"
	CategoryDepositaryReceipt AssetCategory = "DEPOSITARY_RECEIPT"
	CategoryFixedIncome       AssetCategory = "FIXED_INCOME"
	CategoryOption            AssetCategory = "OPTION"
)

// AllCategories lists every known asset category in a stable order
var AllCategories = []AssetCategory{
	CategoryEquity,
	CategoryDepositaryReceipt,
	CategoryFixedIncome,
	CategoryOption,
}

// Valid reports whether c is one of the known categories
func (c AssetCategory) Valid() bool {
	switch c {
	case CategoryEquity, CategoryDepositaryReceipt, CategoryFixedIncome, CategoryOption:
		return true
	}
	return false
}

// CategoryProfile is the configuration record attached to an asset category.
// RateSeries names the exchange-rate series used to convert between the two
// currencies; LotSizeMultiplier scales quantity*price into a gross amount
// (e.g. 100 underlying units per option contract).
type CategoryProfile struct {
	RateSeries        string
	LotSizeMultiplier decimal.Decimal
}

// CategoryProfiles maps each asset category to its profile
type CategoryProfiles map[AssetCategory]CategoryProfile

// Profile returns the profile for a category
func (p CategoryProfiles) Profile(category AssetCategory) (CategoryProfile, error) {
	profile, ok := p[category]
	if !ok {
		return CategoryProfile{}, fmt.Errorf("no profile configured for category %s: %w", category, ErrMalformedTransaction)
	}
	return profile, nil
}

// Validate ensures every category has a profile with a series and a positive multiplier
func (p CategoryProfiles) Validate() error {
	for _, category := range AllCategories {
		profile, ok := p[category]
		if !ok {
			return fmt.Errorf("missing profile for category %s", category)
		}
		if profile.RateSeries == "" {
			return fmt.Errorf("profile for category %s must name a rate series", category)
		}
		if profile.LotSizeMultiplier.LessThanOrEqual(decimal.Zero) {
			return fmt.Errorf("profile for category %s must have a positive lot size multiplier", category)
		}
	}
	return nil
}
