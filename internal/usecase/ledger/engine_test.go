package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/realfolio-backend/internal/domain"
	"github.com/simaogato/realfolio-backend/internal/usecase/rates"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func testProfiles() domain.CategoryProfiles {
	return domain.CategoryProfiles{
		domain.CategoryEquity:            {RateSeries: "dolar_mep", LotSizeMultiplier: decimal.NewFromInt(1)},
		domain.CategoryFixedIncome:       {RateSeries: "dolar_mep", LotSizeMultiplier: decimal.NewFromInt(1)},
		domain.CategoryOption:            {RateSeries: "dolar_mep", LotSizeMultiplier: decimal.NewFromInt(100)},
		domain.CategoryDepositaryReceipt: {RateSeries: "dolar_ccl", LotSizeMultiplier: decimal.NewFromInt(1)},
	}
}

// Flat rates through 2024: 1000 ARS per USD on MEP, 1100 on CCL
func testBook() *rates.Book {
	return rates.NewBook(rates.DefaultFallbackMonthly,
		domain.NewRateSeries("dolar_mep", domain.SeriesKindExchangeRate,
			domain.RatePoint{Date: day(2024, 1, 1), Value: dec("1000")},
			domain.RatePoint{Date: day(2024, 12, 31), Value: dec("1000")},
		),
		domain.NewRateSeries("dolar_ccl", domain.SeriesKindExchangeRate,
			domain.RatePoint{Date: day(2024, 1, 1), Value: dec("1100")},
			domain.RatePoint{Date: day(2024, 12, 31), Value: dec("1100")},
		),
	)
}

func testEngine() *Engine {
	return NewEngine(testProfiles(), testBook(), DefaultEpsilon)
}

func trade(id string, op domain.Operation, when time.Time, qty, price string) domain.Transaction {
	return domain.Transaction{
		ID:        id,
		Timestamp: when.Add(10 * time.Hour),
		Ticker:    "GGAL",
		Operation: op,
		Category:  domain.CategoryEquity,
		Quantity:  dec(qty),
		UnitPrice: dec(price),
		Currency:  domain.CurrencyPrimary,
	}
}

func TestApply_PartialConsumption(t *testing.T) {
	// Lot of 50 units costing 500, sell 20 units
	// Expected: lot keeps 30 units costing 300, one closed trade costing 200
	engine := testEngine()

	result := engine.Apply(&domain.Snapshot{}, []domain.Transaction{
		trade("buy-1", domain.OperationBuy, day(2024, 2, 1), "50", "10"),
		trade("sell-1", domain.OperationSell, day(2024, 3, 1), "20", "15"),
	})

	require.Empty(t, result.Rejected)
	require.Len(t, result.Snapshot.Lots, 1)
	lot := result.Snapshot.Lots[0]
	assert.True(t, dec("30").Equal(lot.RemainingQuantity))
	assert.True(t, dec("300").Equal(lot.CostPrimary), "got %s", lot.CostPrimary)
	assert.True(t, dec("0.3").Equal(lot.CostSecondary), "got %s", lot.CostSecondary)

	require.Len(t, result.ClosedTrades, 1)
	closed := result.ClosedTrades[0]
	assert.True(t, dec("20").Equal(closed.Quantity))
	assert.True(t, dec("200").Equal(closed.CostPrimary))
	assert.True(t, dec("0.2").Equal(closed.CostSecondary))
	assert.True(t, dec("300").Equal(closed.RevenuePrimary))
	assert.True(t, dec("0.3").Equal(closed.RevenueSecondary))
	assert.Equal(t, "buy-1", closed.BuyTransactionID)
	assert.Equal(t, "sell-1", closed.SellTransactionID)
	assert.Equal(t, day(2024, 2, 1), closed.BuyDate)
	assert.Equal(t, day(2024, 3, 1), closed.SellDate)
}

func TestApply_FIFOOrdering(t *testing.T) {
	engine := testEngine()

	result := engine.Apply(&domain.Snapshot{}, []domain.Transaction{
		trade("buy-jan", domain.OperationBuy, day(2024, 1, 10), "10", "10"),
		trade("buy-feb", domain.OperationBuy, day(2024, 2, 10), "10", "20"),
		trade("buy-mar", domain.OperationBuy, day(2024, 3, 10), "10", "30"),
		trade("sell-apr", domain.OperationSell, day(2024, 4, 1), "15", "40"),
	})

	require.Empty(t, result.Rejected)
	require.Len(t, result.ClosedTrades, 2)

	assert.Equal(t, "buy-jan", result.ClosedTrades[0].BuyTransactionID)
	assert.True(t, dec("10").Equal(result.ClosedTrades[0].Quantity))
	assert.True(t, dec("100").Equal(result.ClosedTrades[0].CostPrimary))
	assert.True(t, dec("400").Equal(result.ClosedTrades[0].RevenuePrimary))

	assert.Equal(t, "buy-feb", result.ClosedTrades[1].BuyTransactionID)
	assert.True(t, dec("5").Equal(result.ClosedTrades[1].Quantity))
	assert.True(t, dec("100").Equal(result.ClosedTrades[1].CostPrimary))
	assert.True(t, dec("200").Equal(result.ClosedTrades[1].RevenuePrimary))

	require.Len(t, result.Snapshot.Lots, 2)
	assert.Equal(t, "buy-feb", result.Snapshot.Lots[0].SourceTransactionID)
	assert.True(t, dec("5").Equal(result.Snapshot.Lots[0].RemainingQuantity))
	// newest lot keeps its full quantity
	assert.Equal(t, "buy-mar", result.Snapshot.Lots[1].SourceTransactionID)
	assert.True(t, dec("10").Equal(result.Snapshot.Lots[1].RemainingQuantity))
	assert.True(t, dec("300").Equal(result.Snapshot.Lots[1].CostPrimary))
}

func TestApply_FIFOUsesOpenDateAcrossRuns(t *testing.T) {
	// A later run brings an older purchase: it is still sold first
	engine := testEngine()

	first := engine.Apply(&domain.Snapshot{}, []domain.Transaction{
		trade("buy-mar", domain.OperationBuy, day(2024, 3, 1), "10", "30"),
	})
	second := engine.Apply(first.Snapshot, []domain.Transaction{
		trade("buy-jan", domain.OperationBuy, day(2024, 1, 1), "10", "10"),
		trade("sell-apr", domain.OperationSell, day(2024, 4, 1), "10", "50"),
	})

	require.Len(t, second.ClosedTrades, 1)
	assert.Equal(t, "buy-jan", second.ClosedTrades[0].BuyTransactionID)
	require.Len(t, second.Snapshot.Lots, 1)
	assert.Equal(t, "buy-mar", second.Snapshot.Lots[0].SourceTransactionID)
}

func TestApply_NoOversell(t *testing.T) {
	engine := testEngine()
	base := engine.Apply(&domain.Snapshot{}, []domain.Transaction{
		trade("buy-1", domain.OperationBuy, day(2024, 1, 10), "10", "10"),
	}).Snapshot

	result := engine.Apply(base, []domain.Transaction{
		trade("sell-1", domain.OperationSell, day(2024, 2, 1), "11", "10"),
	})

	require.Len(t, result.Rejected, 1)
	assert.True(t, errors.Is(result.Rejected[0].Err, domain.ErrInsufficientQuantity))
	var qtyErr *domain.InsufficientQuantityError
	require.True(t, errors.As(result.Rejected[0].Err, &qtyErr))
	assert.True(t, dec("10").Equal(qtyErr.Available))

	assert.Empty(t, result.Applied)
	assert.Equal(t, base, result.Snapshot, "rejected sell must leave the ledger unchanged")
}

func TestApply_IdempotentReplay(t *testing.T) {
	engine := testEngine()
	batch := []domain.Transaction{
		trade("buy-1", domain.OperationBuy, day(2024, 1, 10), "10", "10"),
		trade("buy-2", domain.OperationBuy, day(2024, 1, 20), "5", "12"),
		trade("sell-1", domain.OperationSell, day(2024, 2, 1), "12", "15"),
	}

	once := engine.Apply(&domain.Snapshot{}, batch)
	twice := engine.Apply(once.Snapshot, batch)

	assert.Len(t, once.Applied, 3)
	assert.Empty(t, twice.Applied)
	assert.Len(t, twice.Skipped, 3)
	assert.Empty(t, twice.ClosedTrades)
	assert.Equal(t, once.Snapshot, twice.Snapshot)
}

func TestApply_DuplicateWithinBatch(t *testing.T) {
	engine := testEngine()
	buy := trade("buy-1", domain.OperationBuy, day(2024, 1, 10), "10", "10")

	result := engine.Apply(&domain.Snapshot{}, []domain.Transaction{buy, buy})

	assert.Len(t, result.Applied, 1)
	assert.Len(t, result.Skipped, 1)
	assert.Len(t, result.Snapshot.Lots, 1)
}

func TestApply_InputSnapshotIsNotModified(t *testing.T) {
	engine := testEngine()
	base := engine.Apply(&domain.Snapshot{}, []domain.Transaction{
		trade("buy-1", domain.OperationBuy, day(2024, 1, 10), "10", "10"),
	}).Snapshot

	_ = engine.Apply(base, []domain.Transaction{
		trade("sell-1", domain.OperationSell, day(2024, 2, 1), "4", "10"),
	})

	require.Len(t, base.Lots, 1)
	assert.True(t, dec("10").Equal(base.Lots[0].RemainingQuantity))
	assert.Empty(t, base.ClosedTrades)
}

func TestApply_CostConservation(t *testing.T) {
	engine := testEngine()
	buy1 := trade("buy-1", domain.OperationBuy, day(2024, 1, 3), "7", "13.37")
	buy1.MarketFee = dec("1.11")
	buy2 := trade("buy-2", domain.OperationBuy, day(2024, 1, 9), "11", "9.99")
	buy2.BrokerFee = dec("0.5")
	buy2.Tax = dec("0.07")

	result := engine.Apply(&domain.Snapshot{}, []domain.Transaction{
		buy1,
		buy2,
		trade("sell-1", domain.OperationSell, day(2024, 2, 1), "5", "14"),
		trade("sell-2", domain.OperationSell, day(2024, 3, 1), "9", "11"),
		trade("sell-3", domain.OperationSell, day(2024, 4, 1), "3", "12"),
	})
	require.Empty(t, result.Rejected)

	// 7*13.37 + 1.11 + 11*9.99 + 0.5 + 0.07
	expected := dec("93.59").Add(dec("1.11")).Add(dec("109.89")).Add(dec("0.57"))

	total := decimal.Zero
	for _, ct := range result.Snapshot.ClosedTrades {
		total = total.Add(ct.CostPrimary)
	}
	for _, lot := range result.Snapshot.Lots {
		total = total.Add(lot.CostPrimary)
	}

	assert.True(t, expected.Equal(total), "expected %s, got %s", expected, total)
	assert.True(t, dec("1").Equal(result.Snapshot.OpenQuantity("GGAL")))
}

func TestApply_DustIsAbsorbed(t *testing.T) {
	engine := testEngine()

	result := engine.Apply(&domain.Snapshot{}, []domain.Transaction{
		trade("buy-1", domain.OperationBuy, day(2024, 1, 10), "10", "10"),
		trade("sell-1", domain.OperationSell, day(2024, 2, 1), "9.9995", "10"),
	})

	require.Empty(t, result.Rejected)
	assert.Empty(t, result.Snapshot.Lots)
	require.Len(t, result.ClosedTrades, 1)
	assert.True(t, dec("100").Equal(result.ClosedTrades[0].CostPrimary))
	// the dust's cost is closed, its units are not
	assert.True(t, dec("9.9995").Equal(result.ClosedTrades[0].Quantity))
}

func TestApply_DustAcrossLotsKeepsSoldQuantity(t *testing.T) {
	engine := testEngine()

	result := engine.Apply(&domain.Snapshot{}, []domain.Transaction{
		trade("buy-1", domain.OperationBuy, day(2024, 1, 10), "5", "10"),
		trade("buy-2", domain.OperationBuy, day(2024, 1, 11), "5", "20"),
		trade("sell-1", domain.OperationSell, day(2024, 2, 1), "9.9996", "30"),
	})

	require.Empty(t, result.Rejected)
	assert.Empty(t, result.Snapshot.Lots)
	require.Len(t, result.ClosedTrades, 2)

	sold := decimal.Zero
	cost := decimal.Zero
	for _, ct := range result.ClosedTrades {
		sold = sold.Add(ct.Quantity)
		cost = cost.Add(ct.CostPrimary)
	}
	assert.True(t, dec("9.9996").Equal(sold), "got %s", sold)
	assert.True(t, dec("150").Equal(cost), "got %s", cost)
	assert.True(t, dec("4.9996").Equal(result.ClosedTrades[1].Quantity))
	assert.True(t, dec("100").Equal(result.ClosedTrades[1].CostPrimary))
}

func TestApply_RateUnavailable(t *testing.T) {
	engine := testEngine()

	// dolar_mep ends on 2024-12-31 and exchange rates are never extrapolated
	result := engine.Apply(&domain.Snapshot{}, []domain.Transaction{
		trade("buy-1", domain.OperationBuy, day(2025, 2, 1), "10", "10"),
	})

	require.Len(t, result.Rejected, 1)
	assert.True(t, errors.Is(result.Rejected[0].Err, domain.ErrRateUnavailable))
	assert.True(t, result.Rejected[0].Retryable())
	assert.Empty(t, result.Snapshot.Lots)
}

func TestApply_SecondaryCurrencyUsesCategorySeries(t *testing.T) {
	engine := testEngine()
	buy := trade("buy-1", domain.OperationBuy, day(2024, 5, 2), "10", "5")
	buy.Ticker = "AAPL"
	buy.Category = domain.CategoryDepositaryReceipt
	buy.Currency = domain.CurrencySecondary

	result := engine.Apply(&domain.Snapshot{}, []domain.Transaction{buy})

	require.Len(t, result.Snapshot.Lots, 1)
	lot := result.Snapshot.Lots[0]
	assert.True(t, dec("50").Equal(lot.CostSecondary))
	assert.True(t, dec("55000").Equal(lot.CostPrimary), "got %s", lot.CostPrimary)
	assert.Equal(t, domain.CurrencySecondary, lot.Currency)
}

func TestApply_OptionMultiplier(t *testing.T) {
	engine := testEngine()
	buy := trade("opt-1", domain.OperationBuy, day(2024, 3, 1), "2", "1.5")
	buy.Ticker = "GFGC1234AB"
	buy.Category = domain.CategoryOption
	buy.MarketFee = dec("3")
	buy.Option = &domain.OptionDetails{
		Underlying:     "GGAL",
		Right:          domain.OptionCall,
		StrikePrice:    dec("1234"),
		ExpirationDate: day(2024, 4, 19),
	}

	result := engine.Apply(&domain.Snapshot{}, []domain.Transaction{buy})

	require.Len(t, result.Snapshot.Lots, 1)
	assert.True(t, dec("303").Equal(result.Snapshot.Lots[0].CostPrimary))
}

func TestApply_NegativeRevenueIsAllowed(t *testing.T) {
	engine := testEngine()
	sell := trade("sell-1", domain.OperationSell, day(2024, 2, 1), "1", "1")
	sell.BrokerFee = dec("5")

	result := engine.Apply(&domain.Snapshot{}, []domain.Transaction{
		trade("buy-1", domain.OperationBuy, day(2024, 1, 1), "1", "10"),
		sell,
	})

	require.Empty(t, result.Rejected)
	require.Len(t, result.ClosedTrades, 1)
	assert.True(t, dec("-4").Equal(result.ClosedTrades[0].RevenuePrimary))
}

func TestApply_BatchIsSortedByTimestamp(t *testing.T) {
	engine := testEngine()

	result := engine.Apply(&domain.Snapshot{}, []domain.Transaction{
		trade("sell-1", domain.OperationSell, day(2024, 2, 1), "5", "10"),
		trade("buy-1", domain.OperationBuy, day(2024, 1, 1), "5", "10"),
	})

	assert.Empty(t, result.Rejected)
	assert.Len(t, result.Applied, 2)
	assert.Equal(t, "buy-1", result.Applied[0].ID)
}

func TestApply_MalformedTransaction(t *testing.T) {
	engine := testEngine()
	bad := trade("buy-1", domain.OperationBuy, day(2024, 1, 1), "5", "10")
	bad.Ticker = ""

	result := engine.Apply(&domain.Snapshot{}, []domain.Transaction{bad})

	require.Len(t, result.Rejected, 1)
	assert.True(t, errors.Is(result.Rejected[0].Err, domain.ErrMalformedTransaction))
	assert.False(t, result.Rejected[0].Retryable())
}

func TestExpireOptions(t *testing.T) {
	engine := testEngine()
	option := trade("opt-1", domain.OperationBuy, day(2024, 3, 1), "1", "2")
	option.Ticker = "GFGC1234AB"
	option.Category = domain.CategoryOption
	option.Option = &domain.OptionDetails{
		Underlying:     "GGAL",
		Right:          domain.OptionCall,
		StrikePrice:    dec("1234"),
		ExpirationDate: day(2024, 4, 19),
	}

	snap := engine.Apply(&domain.Snapshot{}, []domain.Transaction{
		option,
		trade("buy-1", domain.OperationBuy, day(2024, 3, 1), "10", "10"),
	}).Snapshot

	// Expiration day itself is not "strictly before today"
	assert.Empty(t, engine.ExpireOptions(snap, day(2024, 4, 19)))
	assert.Len(t, snap.Lots, 2)

	closed := engine.ExpireOptions(snap, day(2024, 4, 20))

	require.Len(t, closed, 1)
	assert.True(t, closed[0].Expired)
	assert.Equal(t, day(2024, 4, 19), closed[0].SellDate)
	assert.True(t, closed[0].RevenuePrimary.IsZero())
	assert.True(t, closed[0].RevenueSecondary.IsZero())
	assert.True(t, dec("200").Equal(closed[0].CostPrimary))
	assert.Empty(t, closed[0].SellTransactionID)

	require.Len(t, snap.Lots, 1)
	assert.Equal(t, "GGAL", snap.Lots[0].Ticker)
	assert.Len(t, snap.ClosedTrades, 1)

	// The expired buy is still known to the replay guard
	assert.False(t, NewGuard(snap).IsNew("opt-1"))
}
