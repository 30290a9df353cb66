package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Lot represents an open purchase whose quantity has not been fully sold.
// CostPrimary and CostSecondary always price exactly RemainingQuantity units.
type Lot struct {
	ID                  uuid.UUID
	Ticker              string
	OpenDate            time.Time
	RemainingQuantity   decimal.Decimal
	CostPrimary         decimal.Decimal
	CostSecondary       decimal.Decimal
	Category            AssetCategory
	Currency            Currency // currency of the originating buy
	SourceTransactionID string
	Option              *OptionDetails
}

// IsExpiredOption reports whether the lot is an option whose expiration is strictly before today
func (l *Lot) IsExpiredOption(today time.Time) bool {
	if l.Category != CategoryOption || l.Option == nil || l.Option.ExpirationDate.IsZero() {
		return false
	}
	return DayOf(l.Option.ExpirationDate).Before(DayOf(today))
}

// ClosedTrade is the immutable record of a sale (or expiration) consuming part or all of a lot.
// Quantity counts the units the sale matched. When the sale leaves only epsilon dust in the lot,
// the dust is closed with it: its cost is included but its units are not.
type ClosedTrade struct {
	ID                uuid.UUID
	Ticker            string
	Category          AssetCategory
	Quantity          decimal.Decimal
	BuyDate           time.Time
	SellDate          time.Time
	CostPrimary       decimal.Decimal
	CostSecondary     decimal.Decimal
	RevenuePrimary    decimal.Decimal
	RevenueSecondary  decimal.Decimal
	BuyTransactionID  string
	SellTransactionID string // empty when closed by expiration
	Expired           bool
}

// Cost returns the cost in the requested currency
func (c *ClosedTrade) Cost(currency Currency) decimal.Decimal {
	if currency == CurrencySecondary {
		return c.CostSecondary
	}
	return c.CostPrimary
}

// Revenue returns the revenue in the requested currency
func (c *ClosedTrade) Revenue(currency Currency) decimal.Decimal {
	if currency == CurrencySecondary {
		return c.RevenueSecondary
	}
	return c.RevenuePrimary
}

// Cost returns the remaining cost basis in the requested currency
func (l *Lot) Cost(currency Currency) decimal.Decimal {
	if currency == CurrencySecondary {
		return l.CostSecondary
	}
	return l.CostPrimary
}
