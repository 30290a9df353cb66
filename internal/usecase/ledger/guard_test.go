package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/simaogato/realfolio-backend/internal/domain"
)

func TestGuard(t *testing.T) {
	snap := &domain.Snapshot{
		Lots:         []domain.Lot{{SourceTransactionID: "buy-2"}},
		ClosedTrades: []domain.ClosedTrade{{BuyTransactionID: "buy-1", SellTransactionID: "sell-1"}},
	}

	guard := NewGuard(snap)

	assert.Equal(t, 3, guard.Len())
	assert.False(t, guard.IsNew("buy-1"))
	assert.False(t, guard.IsNew("buy-2"))
	assert.False(t, guard.IsNew("sell-1"))
	assert.True(t, guard.IsNew("sell-2"))

	guard.Mark("sell-2")
	assert.False(t, guard.IsNew("sell-2"))
}

func TestGuard_NilSnapshot(t *testing.T) {
	guard := NewGuard(nil)

	assert.True(t, guard.IsNew("anything"))
	assert.Equal(t, 0, guard.Len())
}
