package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/realfolio-backend/internal/domain"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.EnsureSchema(context.Background()))
	return db
}

func testLot(ticker string, open time.Time, qty, cost string) domain.Lot {
	return domain.Lot{
		ID:                  uuid.New(),
		Ticker:              ticker,
		OpenDate:            open,
		RemainingQuantity:   dec(qty),
		CostPrimary:         dec(cost),
		CostSecondary:       dec(cost).Div(dec("1000")),
		Category:            domain.CategoryEquity,
		Currency:            domain.CurrencyPrimary,
		SourceTransactionID: "buy-" + ticker + "-" + open.Format(domain.DateLayout),
	}
}

func TestLedgerRepository_SaveAndLoad(t *testing.T) {
	ctx := context.Background()
	repo := NewLedgerRepository(newTestDB(t))

	option := testLot("GFGC1234AB", day(2024, 3, 1), "2", "300")
	option.Category = domain.CategoryOption
	option.Option = &domain.OptionDetails{
		Underlying:     "GGAL",
		Right:          domain.OptionCall,
		StrikePrice:    dec("1234.5"),
		ExpirationDate: day(2024, 4, 19),
	}

	// later lot first: insertion order wins over dates
	lots := []domain.Lot{
		testLot("GGAL", day(2024, 2, 1), "30", "300.123456789"),
		testLot("GGAL", day(2024, 1, 1), "10", "100"),
		option,
	}
	trade := domain.ClosedTrade{
		ID:                uuid.New(),
		Ticker:            "GGAL",
		Category:          domain.CategoryEquity,
		Quantity:          dec("20"),
		BuyDate:           day(2024, 1, 1),
		SellDate:          day(2024, 3, 10),
		CostPrimary:       dec("200"),
		CostSecondary:     dec("0.2"),
		RevenuePrimary:    dec("260"),
		RevenueSecondary:  dec("0.25"),
		BuyTransactionID:  "b1",
		SellTransactionID: "s1",
	}

	require.NoError(t, repo.Save(ctx, lots, []domain.ClosedTrade{trade}))

	snap, err := repo.Load(ctx)
	require.NoError(t, err)

	require.Len(t, snap.Lots, 3)
	assert.Equal(t, lots[0].ID, snap.Lots[0].ID)
	assert.Equal(t, lots[1].ID, snap.Lots[1].ID)
	assert.True(t, dec("300.123456789").Equal(snap.Lots[0].CostPrimary))
	assert.Equal(t, day(2024, 2, 1), snap.Lots[0].OpenDate)
	assert.Nil(t, snap.Lots[0].Option)
	require.NotNil(t, snap.Lots[2].Option)
	assert.Equal(t, day(2024, 4, 19), snap.Lots[2].Option.ExpirationDate)
	assert.True(t, dec("1234.5").Equal(snap.Lots[2].Option.StrikePrice))

	require.Len(t, snap.ClosedTrades, 1)
	assert.Equal(t, trade.ID, snap.ClosedTrades[0].ID)
	assert.True(t, dec("0.25").Equal(snap.ClosedTrades[0].RevenueSecondary))
	assert.False(t, snap.ClosedTrades[0].Expired)
}

func TestLedgerRepository_SaveReplacesLotsAndAppendsTrades(t *testing.T) {
	ctx := context.Background()
	repo := NewLedgerRepository(newTestDB(t))

	first := domain.ClosedTrade{ID: uuid.New(), Ticker: "KO", Category: domain.CategoryDepositaryReceipt,
		Quantity: dec("1"), BuyDate: day(2024, 1, 1), SellDate: day(2024, 2, 1),
		CostPrimary: dec("1"), CostSecondary: dec("1"), RevenuePrimary: dec("2"), RevenueSecondary: dec("2"),
		BuyTransactionID: "b1", SellTransactionID: "s1"}
	second := first
	second.ID = uuid.New()
	second.SellTransactionID = "s2"

	require.NoError(t, repo.Save(ctx, []domain.Lot{testLot("KO", day(2024, 1, 1), "5", "50")}, []domain.ClosedTrade{first}))

	// the first trade is passed again and must not be duplicated
	remaining := testLot("KO", day(2024, 1, 1), "3", "30")
	require.NoError(t, repo.Save(ctx, []domain.Lot{remaining}, []domain.ClosedTrade{first, second}))

	snap, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Lots, 1)
	assert.Equal(t, remaining.ID, snap.Lots[0].ID)
	require.Len(t, snap.ClosedTrades, 2)
	assert.Equal(t, "s1", snap.ClosedTrades[0].SellTransactionID)
	assert.Equal(t, "s2", snap.ClosedTrades[1].SellTransactionID)
}

func TestLedgerRepository_LoadEmpty(t *testing.T) {
	snap, err := NewLedgerRepository(newTestDB(t)).Load(context.Background())

	require.NoError(t, err)
	assert.Empty(t, snap.Lots)
	assert.Empty(t, snap.ClosedTrades)
}

func TestRateSeriesRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewRateSeriesRepository(newTestDB(t))

	require.NoError(t, repo.Register(ctx, "dolar_mep", domain.SeriesKindExchangeRate))
	require.NoError(t, repo.Register(ctx, "cpi_argentina", domain.SeriesKindExchangeRate))
	// re-registering updates the kind
	require.NoError(t, repo.Register(ctx, "cpi_argentina", domain.SeriesKindInflation))

	require.NoError(t, repo.Upsert(ctx, "dolar_mep", []domain.RatePoint{
		{Date: day(2024, 1, 3), Value: dec("1050")},
		{Date: day(2024, 1, 1), Value: dec("1000")},
	}))
	require.NoError(t, repo.Upsert(ctx, "dolar_mep", []domain.RatePoint{
		{Date: time.Date(2024, 1, 3, 18, 0, 0, 0, time.UTC), Value: dec("1060.5")},
	}))

	series, err := repo.Get(ctx, "dolar_mep")
	require.NoError(t, err)
	assert.Equal(t, domain.SeriesKindExchangeRate, series.Kind)
	require.Len(t, series.Points, 2)
	assert.Equal(t, day(2024, 1, 1), series.Points[0].Date)
	assert.True(t, dec("1060.5").Equal(series.Points[1].Value))

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "cpi_argentina", list[0].Name)
	assert.Equal(t, domain.SeriesKindInflation, list[0].Kind)
	assert.Empty(t, list[0].Points)
	assert.Len(t, list[1].Points, 2)
}

func TestRateSeriesRepository_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := NewRateSeriesRepository(newTestDB(t))

	_, err := repo.Get(ctx, "dolar_blue")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	err = repo.Upsert(ctx, "dolar_blue", []domain.RatePoint{{Date: day(2024, 1, 1), Value: dec("1")}})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestRetryRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewRetryRepository(newTestDB(t))
	seen := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	task := func(id string, ts time.Time) *domain.RetryTask {
		return &domain.RetryTask{
			ID: uuid.New(),
			Transaction: domain.Transaction{
				ID: id, Timestamp: ts, Ticker: "GGAL", Operation: domain.OperationBuy,
				Category: domain.CategoryEquity, Quantity: dec("1"), UnitPrice: dec("100"),
				Currency: domain.CurrencyPrimary, MarketFee: decimal.Zero, BrokerFee: decimal.Zero, Tax: decimal.Zero,
			},
			Reason:      "RATE_UNAVAILABLE",
			Attempts:    1,
			FirstSeen:   seen,
			LastAttempt: seen,
		}
	}

	later := task("t2", time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC))
	earlier := task("t1", time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, repo.Upsert(ctx, later))
	require.NoError(t, repo.Upsert(ctx, earlier))

	retried := *later
	retried.Attempts = 2
	retried.LastAttempt = seen.Add(time.Hour)
	require.NoError(t, repo.Upsert(ctx, &retried))

	tasks, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "t1", tasks[0].Transaction.ID)
	assert.Equal(t, "t2", tasks[1].Transaction.ID)
	assert.Equal(t, 2, tasks[1].Attempts)
	assert.Equal(t, later.ID, tasks[1].ID)
	assert.Equal(t, seen.Add(time.Hour), tasks[1].LastAttempt)
	assert.True(t, dec("100").Equal(tasks[0].Transaction.UnitPrice))

	require.NoError(t, repo.Delete(ctx, "t1"))
	require.NoError(t, repo.Delete(ctx, "missing"))

	tasks, err = repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "t2", tasks[0].Transaction.ID)
}

func TestNewDB_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "ledger.db")

	db, err := NewDB(path)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.EnsureSchema(context.Background()))
	// idempotent
	require.NoError(t, db.EnsureSchema(context.Background()))
}
