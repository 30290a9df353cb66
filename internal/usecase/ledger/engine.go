package ledger

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/simaogato/realfolio-backend/internal/domain"
	"github.com/simaogato/realfolio-backend/internal/usecase/allocator"
	"github.com/simaogato/realfolio-backend/internal/usecase/rates"
)

// DefaultEpsilon is the remaining quantity at or below which a lot counts as closed
var DefaultEpsilon = decimal.RequireFromString("0.001")

// Engine applies transactions to a ledger snapshot.
// It performs no I/O: rates come from the injected Source and persistence is the caller's concern.
type Engine struct {
	Profiles domain.CategoryProfiles
	Rates    rates.Source
	Epsilon  decimal.Decimal
}

// NewEngine creates a new Engine instance
func NewEngine(profiles domain.CategoryProfiles, source rates.Source, epsilon decimal.Decimal) *Engine {
	if epsilon.LessThanOrEqual(decimal.Zero) {
		epsilon = DefaultEpsilon
	}
	return &Engine{
		Profiles: profiles,
		Rates:    source,
		Epsilon:  epsilon,
	}
}

// Result is the outcome of applying a batch of transactions
type Result struct {
	Snapshot     *domain.Snapshot
	Applied      []domain.Transaction
	Skipped      []domain.Transaction // already folded into the ledger, or repeated within the batch
	Rejected     []domain.Rejection
	ClosedTrades []domain.ClosedTrade // appended by this batch only
}

// Apply folds a batch into a copy of snap and returns the new snapshot.
// The input snapshot is never modified.
// Logic:
//  1. Sort the batch by timestamp (ties by id)
//  2. Skip ids already present in the ledger or earlier in the batch
//  3. Validate, then apply BUY/SELL; a failing transaction leaves the ledger as it was
func (e *Engine) Apply(snap *domain.Snapshot, txs []domain.Transaction) *Result {
	work := snap.Clone()
	closedBefore := len(work.ClosedTrades)
	guard := NewGuard(work)
	result := &Result{Snapshot: work}

	for _, tx := range SortBatch(txs) {
		if tx.ID != "" {
			if !guard.IsNew(tx.ID) {
				result.Skipped = append(result.Skipped, tx)
				continue
			}
			guard.Mark(tx.ID)
		}

		var err error
		switch tx.Operation {
		case domain.OperationBuy:
			err = e.ApplyBuy(work, tx)
		case domain.OperationSell:
			err = e.ApplySell(work, tx)
		default:
			err = tx.Validate()
		}

		if err != nil {
			result.Rejected = append(result.Rejected, domain.Rejection{Transaction: tx, Err: err})
			continue
		}
		result.Applied = append(result.Applied, tx)
	}

	result.ClosedTrades = append([]domain.ClosedTrade(nil), work.ClosedTrades[closedBefore:]...)
	return result
}

// ApplyBuy appends a new lot for a BUY transaction.
// total cost = quantity * unit price * lot multiplier + fees, in the transaction currency,
// converted to the other currency through the category's rate series.
// On error snap is left untouched.
func (e *Engine) ApplyBuy(snap *domain.Snapshot, tx domain.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	if tx.Operation != domain.OperationBuy {
		return fmt.Errorf("%w: transaction %s is not a BUY", domain.ErrMalformedTransaction, tx.ID)
	}

	profile, err := e.Profiles.Profile(tx.Category)
	if err != nil {
		return err
	}

	totalCost := tx.GrossAmount(profile.LotSizeMultiplier).Add(tx.TotalFees())
	costPrimary, costSecondary, err := e.convert(profile, tx, totalCost)
	if err != nil {
		return err
	}

	snap.Lots = append(snap.Lots, domain.Lot{
		ID:                  uuid.New(),
		Ticker:              tx.Ticker,
		OpenDate:            tx.Day(),
		RemainingQuantity:   tx.Quantity,
		CostPrimary:         costPrimary,
		CostSecondary:       costSecondary,
		Category:            tx.Category,
		Currency:            tx.Currency,
		SourceTransactionID: tx.ID,
		Option:              tx.Option,
	})
	return nil
}

// take is one planned FIFO consumption of a lot
type take struct {
	index    int
	quantity decimal.Decimal
}

// ApplySell consumes open lots of the ticker oldest-first and emits one ClosedTrade per consumption
// Logic:
//  1. Reject if the open quantity is smaller than the sell quantity
//  2. revenue = quantity * unit price * lot multiplier - fees, converted to both currencies
//  3. Walk lots by open date: cost slice = lot cost * take / remaining, revenue slice prorated by take
//  4. A lot left with a remaining quantity at or below epsilon is removed and its whole cost goes to the slice
//     (the slice keeps the sold quantity, so closed quantities always add up to the sell quantity)
//
// On error snap is left untouched.
func (e *Engine) ApplySell(snap *domain.Snapshot, tx domain.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	if tx.Operation != domain.OperationSell {
		return fmt.Errorf("%w: transaction %s is not a SELL", domain.ErrMalformedTransaction, tx.ID)
	}

	profile, err := e.Profiles.Profile(tx.Category)
	if err != nil {
		return err
	}

	order := e.fifo(snap, tx.Ticker)
	available := decimal.Zero
	for _, i := range order {
		available = available.Add(snap.Lots[i].RemainingQuantity)
	}
	if available.LessThan(tx.Quantity) {
		return &domain.InsufficientQuantityError{Ticker: tx.Ticker, Requested: tx.Quantity, Available: available}
	}

	totalRevenue := tx.GrossAmount(profile.LotSizeMultiplier).Sub(tx.TotalFees())
	revenuePrimary, revenueSecondary, err := e.convert(profile, tx, totalRevenue)
	if err != nil {
		return err
	}

	var takes []take
	toSell := tx.Quantity
	for _, i := range order {
		if !toSell.IsPositive() {
			break
		}
		q := decimal.Min(snap.Lots[i].RemainingQuantity, toSell)
		takes = append(takes, take{index: i, quantity: q})
		toSell = toSell.Sub(q)
	}

	weights := make([]decimal.Decimal, len(takes))
	for i, t := range takes {
		weights[i] = t.quantity
	}
	primarySlices, err := allocator.Prorate(revenuePrimary, weights)
	if err != nil {
		return err
	}
	secondarySlices, err := allocator.Prorate(revenueSecondary, weights)
	if err != nil {
		return err
	}

	// Build the new state aside and swap it in once every slice is known
	lots := make([]domain.Lot, len(snap.Lots))
	copy(lots, snap.Lots)
	removed := make(map[int]bool)
	closed := make([]domain.ClosedTrade, 0, len(takes))

	for n, t := range takes {
		lot := &lots[t.index]
		left := lot.RemainingQuantity.Sub(t.quantity)

		var slicePrimary, sliceSecondary decimal.Decimal
		if left.LessThanOrEqual(e.Epsilon) {
			slicePrimary, sliceSecondary = lot.CostPrimary, lot.CostSecondary
			removed[t.index] = true
		} else {
			slicePrimary = lot.CostPrimary.Mul(t.quantity).Div(lot.RemainingQuantity)
			sliceSecondary = lot.CostSecondary.Mul(t.quantity).Div(lot.RemainingQuantity)
			lot.RemainingQuantity = left
			lot.CostPrimary = lot.CostPrimary.Sub(slicePrimary)
			lot.CostSecondary = lot.CostSecondary.Sub(sliceSecondary)
		}

		closed = append(closed, domain.ClosedTrade{
			ID:                uuid.New(),
			Ticker:            tx.Ticker,
			Category:          lot.Category,
			Quantity:          t.quantity,
			BuyDate:           lot.OpenDate,
			SellDate:          tx.Day(),
			CostPrimary:       slicePrimary,
			CostSecondary:     sliceSecondary,
			RevenuePrimary:    primarySlices[n],
			RevenueSecondary:  secondarySlices[n],
			BuyTransactionID:  lot.SourceTransactionID,
			SellTransactionID: tx.ID,
		})
	}

	snap.Lots = compact(lots, removed)
	snap.ClosedTrades = append(snap.ClosedTrades, closed...)
	return nil
}

// ExpireOptions closes every option lot whose expiration date is strictly before today.
// Each lot is closed at zero revenue for its full remaining cost, dated on its expiration.
// Returns the emitted trades.
func (e *Engine) ExpireOptions(snap *domain.Snapshot, today time.Time) []domain.ClosedTrade {
	removed := make(map[int]bool)
	var closed []domain.ClosedTrade

	for i := range snap.Lots {
		lot := snap.Lots[i]
		if !lot.IsExpiredOption(today) {
			continue
		}
		removed[i] = true
		closed = append(closed, domain.ClosedTrade{
			ID:               uuid.New(),
			Ticker:           lot.Ticker,
			Category:         lot.Category,
			Quantity:         lot.RemainingQuantity,
			BuyDate:          lot.OpenDate,
			SellDate:         domain.DayOf(lot.Option.ExpirationDate),
			CostPrimary:      lot.CostPrimary,
			CostSecondary:    lot.CostSecondary,
			RevenuePrimary:   decimal.Zero,
			RevenueSecondary: decimal.Zero,
			BuyTransactionID: lot.SourceTransactionID,
			Expired:          true,
		})
	}

	if len(closed) == 0 {
		return nil
	}
	snap.Lots = compact(snap.Lots, removed)
	snap.ClosedTrades = append(snap.ClosedTrades, closed...)
	return closed
}

// convert expresses an amount in both currencies using the profile's rate series.
// Rates are primary units per secondary unit.
func (e *Engine) convert(profile domain.CategoryProfile, tx domain.Transaction, amount decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	rate, err := e.Rates.Rate(profile.RateSeries, tx.Timestamp)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	if !rate.IsPositive() {
		return decimal.Zero, decimal.Zero, &domain.RateUnavailableError{Series: profile.RateSeries, Date: tx.Day()}
	}

	if tx.Currency == domain.CurrencySecondary {
		return amount.Mul(rate), amount, nil
	}
	return amount, amount.Div(rate), nil
}

// fifo returns the indexes of the ticker's lots ordered by open date, ties kept in insertion order
func (e *Engine) fifo(snap *domain.Snapshot, ticker string) []int {
	var order []int
	for i := range snap.Lots {
		if snap.Lots[i].Ticker == ticker {
			order = append(order, i)
		}
	}
	sort.SliceStable(order, func(a, b int) bool {
		return snap.Lots[order[a]].OpenDate.Before(snap.Lots[order[b]].OpenDate)
	})
	return order
}

// SortBatch orders transactions by timestamp, then by id
func SortBatch(txs []domain.Transaction) []domain.Transaction {
	ordered := make([]domain.Transaction, len(txs))
	copy(ordered, txs)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].Timestamp.Equal(ordered[j].Timestamp) {
			return ordered[i].Timestamp.Before(ordered[j].Timestamp)
		}
		return ordered[i].ID < ordered[j].ID
	})
	return ordered
}

func compact(lots []domain.Lot, removed map[int]bool) []domain.Lot {
	kept := make([]domain.Lot, 0, len(lots)-len(removed))
	for i, lot := range lots {
		if !removed[i] {
			kept = append(kept, lot)
		}
	}
	return kept
}
