package returns

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/simaogato/realfolio-backend/internal/domain"
)

// ConsolidatedPosition aggregates the open lots of one ticker
type ConsolidatedPosition struct {
	Ticker               string
	Category             domain.AssetCategory
	Lots                 int
	Quantity             decimal.Decimal
	CostPrimary          decimal.Decimal
	CostSecondary        decimal.Decimal
	MarketValuePrimary   decimal.NullDecimal
	MarketValueSecondary decimal.NullDecimal
	NominalPrimaryPct    decimal.NullDecimal
	NominalSecondaryPct  decimal.NullDecimal
	RealPrimaryPct       decimal.NullDecimal // cost-weighted across lots
	RealSecondaryPct     decimal.NullDecimal // cost-weighted across lots
	FirstBuyDate         time.Time
	AgeDays              int
}

// ClosedSummary aggregates the closed trades of one ticker
type ClosedSummary struct {
	Ticker              string
	Trades              int
	Quantity            decimal.Decimal
	CostPrimary         decimal.Decimal
	CostSecondary       decimal.Decimal
	RevenuePrimary      decimal.Decimal
	RevenueSecondary    decimal.Decimal
	NominalPrimaryPct   decimal.Decimal
	NominalSecondaryPct decimal.Decimal
	RealPrimaryPct      decimal.NullDecimal // cost-weighted across trades
	RealSecondaryPct    decimal.NullDecimal // cost-weighted across trades
	FirstBuyDate        time.Time
	LastSellDate        time.Time
}

// weighted accumulates a cost-weighted average; one missing value makes the whole average missing
type weighted struct {
	sum     decimal.Decimal
	weight  decimal.Decimal
	missing bool
}

func (w *weighted) add(value decimal.NullDecimal, cost decimal.Decimal) {
	if !value.Valid {
		w.missing = true
		return
	}
	w.sum = w.sum.Add(value.Decimal.Mul(cost))
	w.weight = w.weight.Add(cost)
}

func (w *weighted) result() decimal.NullDecimal {
	if w.missing || w.weight.IsZero() {
		return decimal.NullDecimal{}
	}
	return valid(w.sum.Div(w.weight))
}

// nullSum adds nullable values; one missing value makes the sum missing
func nullSum(a, b decimal.NullDecimal) decimal.NullDecimal {
	if !a.Valid || !b.Valid {
		return decimal.NullDecimal{}
	}
	return valid(a.Decimal.Add(b.Decimal))
}

// Consolidate groups open lot reports by ticker
// Logic:
//   - quantities, costs and market values are summed
//   - the first buy date is the earliest open date and drives AgeDays
//   - nominal returns are recomputed from the summed cost and value
//   - real returns are averaged weighting each lot by its cost in that currency
//
// Positions are returned sorted by ticker.
func Consolidate(reports []OpenLotReport) []ConsolidatedPosition {
	type acc struct {
		position      ConsolidatedPosition
		realPrimary   weighted
		realSecondary weighted
	}

	groups := make(map[string]*acc)
	for _, r := range reports {
		g, ok := groups[r.Lot.Ticker]
		if !ok {
			g = &acc{position: ConsolidatedPosition{
				Ticker:               r.Lot.Ticker,
				Category:             r.Lot.Category,
				Quantity:             decimal.Zero,
				CostPrimary:          decimal.Zero,
				CostSecondary:        decimal.Zero,
				MarketValuePrimary:   valid(decimal.Zero),
				MarketValueSecondary: valid(decimal.Zero),
				FirstBuyDate:         r.Lot.OpenDate,
				AgeDays:              r.AgeDays,
			}}
			groups[r.Lot.Ticker] = g
		}

		p := &g.position
		p.Lots++
		p.Quantity = p.Quantity.Add(r.Lot.RemainingQuantity)
		p.CostPrimary = p.CostPrimary.Add(r.Lot.CostPrimary)
		p.CostSecondary = p.CostSecondary.Add(r.Lot.CostSecondary)
		p.MarketValuePrimary = nullSum(p.MarketValuePrimary, r.MarketValuePrimary)
		p.MarketValueSecondary = nullSum(p.MarketValueSecondary, r.MarketValueSecondary)
		if r.Lot.OpenDate.Before(p.FirstBuyDate) {
			p.FirstBuyDate = r.Lot.OpenDate
			p.AgeDays = r.AgeDays
		}

		g.realPrimary.add(r.RealPrimaryPct, r.Lot.CostPrimary)
		g.realSecondary.add(r.RealSecondaryPct, r.Lot.CostSecondary)
	}

	positions := make([]ConsolidatedPosition, 0, len(groups))
	for _, g := range groups {
		p := g.position
		if p.MarketValuePrimary.Valid {
			p.NominalPrimaryPct = valid(NominalReturnPct(p.CostPrimary, p.MarketValuePrimary.Decimal))
		}
		if p.MarketValueSecondary.Valid {
			p.NominalSecondaryPct = valid(NominalReturnPct(p.CostSecondary, p.MarketValueSecondary.Decimal))
		}
		p.RealPrimaryPct = g.realPrimary.result()
		p.RealSecondaryPct = g.realSecondary.result()
		positions = append(positions, p)
	}

	sort.Slice(positions, func(i, j int) bool {
		return positions[i].Ticker < positions[j].Ticker
	})
	return positions
}

// ConsolidateClosed groups closed trade reports by ticker, sorted by ticker
func ConsolidateClosed(reports []ClosedTradeReport) []ClosedSummary {
	type acc struct {
		summary       ClosedSummary
		realPrimary   weighted
		realSecondary weighted
	}

	groups := make(map[string]*acc)
	for _, r := range reports {
		t := r.Trade
		g, ok := groups[t.Ticker]
		if !ok {
			g = &acc{summary: ClosedSummary{
				Ticker:           t.Ticker,
				Quantity:         decimal.Zero,
				CostPrimary:      decimal.Zero,
				CostSecondary:    decimal.Zero,
				RevenuePrimary:   decimal.Zero,
				RevenueSecondary: decimal.Zero,
				FirstBuyDate:     t.BuyDate,
				LastSellDate:     t.SellDate,
			}}
			groups[t.Ticker] = g
		}

		s := &g.summary
		s.Trades++
		s.Quantity = s.Quantity.Add(t.Quantity)
		s.CostPrimary = s.CostPrimary.Add(t.CostPrimary)
		s.CostSecondary = s.CostSecondary.Add(t.CostSecondary)
		s.RevenuePrimary = s.RevenuePrimary.Add(t.RevenuePrimary)
		s.RevenueSecondary = s.RevenueSecondary.Add(t.RevenueSecondary)
		if t.BuyDate.Before(s.FirstBuyDate) {
			s.FirstBuyDate = t.BuyDate
		}
		if t.SellDate.After(s.LastSellDate) {
			s.LastSellDate = t.SellDate
		}

		g.realPrimary.add(r.RealPrimaryPct, t.CostPrimary)
		g.realSecondary.add(r.RealSecondaryPct, t.CostSecondary)
	}

	summaries := make([]ClosedSummary, 0, len(groups))
	for _, g := range groups {
		s := g.summary
		s.NominalPrimaryPct = NominalReturnPct(s.CostPrimary, s.RevenuePrimary)
		s.NominalSecondaryPct = NominalReturnPct(s.CostSecondary, s.RevenueSecondary)
		s.RealPrimaryPct = g.realPrimary.result()
		s.RealSecondaryPct = g.realSecondary.result()
		summaries = append(summaries, s)
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Ticker < summaries[j].Ticker
	})
	return summaries
}
