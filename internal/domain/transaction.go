package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar-day layout used for ledger dates
const DateLayout = "2006-01-02"

// Operation represents the side of a transaction
type Operation string

const (
	OperationBuy  Operation = "BUY"
	OperationSell Operation = "SELL"
)

// Currency identifies which of the two tracked currencies an amount is expressed in
type Currency string

const (
	CurrencyPrimary   Currency = "PRIMARY"
	CurrencySecondary Currency = "SECONDARY"
)

// OptionRight represents the right granted by an option contract
type OptionRight string

const (
	OptionCall OptionRight = "CALL"
	OptionPut  OptionRight = "PUT"
)

// OptionDetails holds the contract terms of an option-category instrument
type OptionDetails struct {
	Underlying     string
	Right          OptionRight
	StrikePrice    decimal.Decimal
	ExpirationDate time.Time
}

// Transaction represents one normalized buy/sell event.
// It is immutable once created and is the unit of replay idempotence (ID).
type Transaction struct {
	ID        string
	Timestamp time.Time
	Ticker    string
	Operation Operation
	Category  AssetCategory
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
	Currency  Currency
	MarketFee decimal.Decimal
	BrokerFee decimal.Decimal
	Tax       decimal.Decimal
	Option    *OptionDetails // only for CategoryOption
}

// Validate ensures the transaction carries everything the ledger needs.
// Every failure wraps ErrMalformedTransaction.
func (t *Transaction) Validate() error {
	if t.ID == "" {
		return malformed("transaction id cannot be empty")
	}
	if t.Ticker == "" {
		return malformed("transaction %s: ticker cannot be empty", t.ID)
	}
	if t.Timestamp.IsZero() {
		return malformed("transaction %s: timestamp is required", t.ID)
	}
	if t.Operation != OperationBuy && t.Operation != OperationSell {
		return malformed("transaction %s: operation must be BUY or SELL", t.ID)
	}
	if t.Currency != CurrencyPrimary && t.Currency != CurrencySecondary {
		return malformed("transaction %s: currency must be PRIMARY or SECONDARY", t.ID)
	}
	if !t.Category.Valid() {
		return malformed("transaction %s: unknown asset category %q", t.ID, t.Category)
	}
	if t.Quantity.LessThanOrEqual(decimal.Zero) {
		return malformed("transaction %s: quantity must be positive", t.ID)
	}
	if t.UnitPrice.IsNegative() {
		return malformed("transaction %s: unit price cannot be negative", t.ID)
	}
	if t.MarketFee.IsNegative() || t.BrokerFee.IsNegative() || t.Tax.IsNegative() {
		return malformed("transaction %s: fees and taxes cannot be negative", t.ID)
	}

	if t.Category == CategoryOption {
		if t.Option == nil {
			return malformed("transaction %s: option details are required for OPTION instruments", t.ID)
		}
		if t.Option.ExpirationDate.IsZero() {
			return malformed("transaction %s: option expiration date is required", t.ID)
		}
	}

	return nil
}

// GrossAmount is quantity * unit price * lot size multiplier, in the transaction currency
func (t *Transaction) GrossAmount(multiplier decimal.Decimal) decimal.Decimal {
	return t.Quantity.Mul(t.UnitPrice).Mul(multiplier)
}

// TotalFees is the sum of market fee, broker fee and tax, in the transaction currency
func (t *Transaction) TotalFees() decimal.Decimal {
	return t.MarketFee.Add(t.BrokerFee).Add(t.Tax)
}

// Day returns the calendar day of the transaction
func (t *Transaction) Day() time.Time {
	return DayOf(t.Timestamp)
}

// DayOf truncates a timestamp to midnight UTC of its calendar day
func DayOf(ts time.Time) time.Time {
	y, m, d := ts.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// WallClock keeps the local date and time of ts and drops its zone.
// Every ingestion path stores timestamps this way, so a trade keeps the calendar day it was made on.
func WallClock(ts time.Time) time.Time {
	return time.Date(ts.Year(), ts.Month(), ts.Day(), ts.Hour(), ts.Minute(), ts.Second(), ts.Nanosecond(), time.UTC)
}
