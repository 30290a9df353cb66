package returns

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/simaogato/realfolio-backend/internal/domain"
	"github.com/simaogato/realfolio-backend/internal/usecase/rates"
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// NominalReturnPct returns (revenue / cost - 1) * 100.
// A zero cost yields 0 instead of a division error.
func NominalReturnPct(cost, revenue decimal.Decimal) decimal.Decimal {
	if cost.IsZero() {
		return decimal.Zero
	}
	return revenue.Div(cost).Sub(one).Mul(hundred)
}

// RealReturnPct discounts a nominal return by the inflation over the same period:
// ((1 + nominal/100) / (1 + inflationFactor) - 1) * 100
func RealReturnPct(nominalPct, inflationFactor decimal.Decimal) decimal.NullDecimal {
	denominator := one.Add(inflationFactor)
	if !denominator.IsPositive() {
		return decimal.NullDecimal{}
	}
	growth := one.Add(nominalPct.Div(hundred))
	return valid(growth.Div(denominator).Sub(one).Mul(hundred))
}

// ClosedTradeReport is a closed trade with its nominal and real returns in both currencies
type ClosedTradeReport struct {
	Trade               domain.ClosedTrade
	NominalPrimaryPct   decimal.Decimal
	NominalSecondaryPct decimal.Decimal
	InflationPrimary    decimal.NullDecimal
	InflationSecondary  decimal.NullDecimal
	RealPrimaryPct      decimal.NullDecimal
	RealSecondaryPct    decimal.NullDecimal
}

// Quote is the current market price of a ticker
type Quote struct {
	Ticker   string
	Price    decimal.Decimal
	Currency domain.Currency
	AsOf     time.Time
}

// OpenLotReport is the mark-to-market view of an open lot.
// Values that could not be resolved (missing rate or index) are left invalid.
type OpenLotReport struct {
	Lot                  domain.Lot
	Price                decimal.Decimal
	PriceCurrency        domain.Currency
	MarketValuePrimary   decimal.NullDecimal
	MarketValueSecondary decimal.NullDecimal
	NominalPrimaryPct    decimal.NullDecimal
	NominalSecondaryPct  decimal.NullDecimal
	RealPrimaryPct       decimal.NullDecimal
	RealSecondaryPct     decimal.NullDecimal
	AgeDays              int
}

// Calculator derives nominal and real returns.
// PrimaryCPI and SecondaryCPI name the price-index series of each currency's economy.
type Calculator struct {
	Rates        rates.Source
	Profiles     domain.CategoryProfiles
	PrimaryCPI   string
	SecondaryCPI string
}

// NewCalculator creates a new Calculator instance
func NewCalculator(source rates.Source, profiles domain.CategoryProfiles, primaryCPI, secondaryCPI string) *Calculator {
	return &Calculator{
		Rates:        source,
		Profiles:     profiles,
		PrimaryCPI:   primaryCPI,
		SecondaryCPI: secondaryCPI,
	}
}

// ClosedTrade computes the returns of a closed trade between its buy and sell dates
func (c *Calculator) ClosedTrade(trade domain.ClosedTrade) ClosedTradeReport {
	report := ClosedTradeReport{
		Trade:               trade,
		NominalPrimaryPct:   NominalReturnPct(trade.CostPrimary, trade.RevenuePrimary),
		NominalSecondaryPct: NominalReturnPct(trade.CostSecondary, trade.RevenueSecondary),
	}

	report.InflationPrimary = c.inflation(c.PrimaryCPI, trade.BuyDate, trade.SellDate)
	report.InflationSecondary = c.inflation(c.SecondaryCPI, trade.BuyDate, trade.SellDate)
	report.RealPrimaryPct = realReturn(valid(report.NominalPrimaryPct), report.InflationPrimary)
	report.RealSecondaryPct = realReturn(valid(report.NominalSecondaryPct), report.InflationSecondary)
	return report
}

// OpenLot marks a lot to market with the given quote as of today
// Logic:
//  1. market value = remaining quantity * price * lot multiplier, in the quote currency
//  2. the other currency is converted through the lot category's rate series on today's date
//  3. nominal and real returns follow the closed-trade formulas with today as the sell date
func (c *Calculator) OpenLot(lot domain.Lot, quote Quote, today time.Time) (OpenLotReport, error) {
	profile, err := c.Profiles.Profile(lot.Category)
	if err != nil {
		return OpenLotReport{}, err
	}

	day := domain.DayOf(today)
	report := OpenLotReport{
		Lot:           lot,
		Price:         quote.Price,
		PriceCurrency: quote.Currency,
		AgeDays:       int(day.Sub(domain.DayOf(lot.OpenDate)).Hours() / 24),
	}

	value := lot.RemainingQuantity.Mul(quote.Price).Mul(profile.LotSizeMultiplier)
	rate, rateErr := c.Rates.Rate(profile.RateSeries, day)

	if quote.Currency == domain.CurrencySecondary {
		report.MarketValueSecondary = valid(value)
		if rateErr == nil {
			report.MarketValuePrimary = valid(value.Mul(rate))
		}
	} else {
		report.MarketValuePrimary = valid(value)
		if rateErr == nil && rate.IsPositive() {
			report.MarketValueSecondary = valid(value.Div(rate))
		}
	}

	if report.MarketValuePrimary.Valid {
		report.NominalPrimaryPct = valid(NominalReturnPct(lot.CostPrimary, report.MarketValuePrimary.Decimal))
	}
	if report.MarketValueSecondary.Valid {
		report.NominalSecondaryPct = valid(NominalReturnPct(lot.CostSecondary, report.MarketValueSecondary.Decimal))
	}

	report.RealPrimaryPct = realReturn(report.NominalPrimaryPct, c.inflation(c.PrimaryCPI, lot.OpenDate, day))
	report.RealSecondaryPct = realReturn(report.NominalSecondaryPct, c.inflation(c.SecondaryCPI, lot.OpenDate, day))
	return report, nil
}

func (c *Calculator) inflation(series string, start, end time.Time) decimal.NullDecimal {
	if series == "" {
		return decimal.NullDecimal{}
	}
	factor, err := c.Rates.InflationFactor(series, start, end)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return valid(factor)
}

func realReturn(nominal, inflation decimal.NullDecimal) decimal.NullDecimal {
	if !nominal.Valid || !inflation.Valid {
		return decimal.NullDecimal{}
	}
	return RealReturnPct(nominal.Decimal, inflation.Decimal)
}

func valid(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: d, Valid: true}
}
