package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestSnapshot_KnownTransactionIDs(t *testing.T) {
	snap := &Snapshot{
		Lots: []Lot{
			{ID: uuid.New(), Ticker: "GGAL", SourceTransactionID: "buy-2", RemainingQuantity: decimal.NewFromInt(5)},
		},
		ClosedTrades: []ClosedTrade{
			{ID: uuid.New(), Ticker: "GGAL", BuyTransactionID: "buy-1", SellTransactionID: "sell-1"},
			{ID: uuid.New(), Ticker: "GGAL_OPT", BuyTransactionID: "buy-3", Expired: true},
		},
	}

	ids := snap.KnownTransactionIDs()

	assert.Len(t, ids, 4)
	for _, id := range []string{"buy-1", "buy-2", "buy-3", "sell-1"} {
		_, ok := ids[id]
		assert.True(t, ok, id)
	}
	_, ok := ids[""]
	assert.False(t, ok, "expired trades must not register an empty sell id")
}

func TestSnapshot_CloneIsIndependent(t *testing.T) {
	snap := &Snapshot{
		Lots: []Lot{{Ticker: "AAPL", RemainingQuantity: decimal.NewFromInt(10)}},
	}

	clone := snap.Clone()
	clone.Lots[0].RemainingQuantity = decimal.NewFromInt(3)
	clone.Lots = append(clone.Lots, Lot{Ticker: "KO"})

	assert.Len(t, snap.Lots, 1)
	assert.True(t, decimal.NewFromInt(10).Equal(snap.Lots[0].RemainingQuantity))
}

func TestSnapshot_OpenQuantity(t *testing.T) {
	snap := &Snapshot{
		Lots: []Lot{
			{Ticker: "AAPL", RemainingQuantity: decimal.NewFromInt(10)},
			{Ticker: "KO", RemainingQuantity: decimal.NewFromInt(7)},
			{Ticker: "AAPL", RemainingQuantity: decimal.RequireFromString("2.5")},
		},
	}

	assert.True(t, decimal.RequireFromString("12.5").Equal(snap.OpenQuantity("AAPL")))
	assert.Len(t, snap.LotsFor("AAPL"), 2)
	assert.True(t, snap.OpenQuantity("MSFT").IsZero())
}
