package domain

import (
	"github.com/shopspring/decimal"
)

// Snapshot is the full ledger state: open lots in insertion order and the
// append-only history of closed trades. The ledger engine takes a snapshot in
// and hands a new one back; persistence happens outside.
type Snapshot struct {
	Lots         []Lot
	ClosedTrades []ClosedTrade
}

// Clone returns a copy that can be mutated without touching the receiver
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return &Snapshot{}
	}
	clone := &Snapshot{
		Lots:         make([]Lot, len(s.Lots)),
		ClosedTrades: make([]ClosedTrade, len(s.ClosedTrades)),
	}
	copy(clone.Lots, s.Lots)
	copy(clone.ClosedTrades, s.ClosedTrades)
	return clone
}

// LotsFor returns the open lots of a ticker in insertion order
func (s *Snapshot) LotsFor(ticker string) []Lot {
	var lots []Lot
	for _, lot := range s.Lots {
		if lot.Ticker == ticker {
			lots = append(lots, lot)
		}
	}
	return lots
}

// OpenQuantity sums the remaining quantity of a ticker across its lots
func (s *Snapshot) OpenQuantity(ticker string) decimal.Decimal {
	total := decimal.Zero
	for _, lot := range s.Lots {
		if lot.Ticker == ticker {
			total = total.Add(lot.RemainingQuantity)
		}
	}
	return total
}

// KnownTransactionIDs collects every source transaction id already folded into the snapshot.
// A transaction may be referenced by an open lot or by either side of a closed trade.
func (s *Snapshot) KnownTransactionIDs() map[string]struct{} {
	ids := make(map[string]struct{}, len(s.Lots)+2*len(s.ClosedTrades))
	for _, lot := range s.Lots {
		if lot.SourceTransactionID != "" {
			ids[lot.SourceTransactionID] = struct{}{}
		}
	}
	for _, trade := range s.ClosedTrades {
		if trade.BuyTransactionID != "" {
			ids[trade.BuyTransactionID] = struct{}{}
		}
		if trade.SellTransactionID != "" {
			ids[trade.SellTransactionID] = struct{}{}
		}
	}
	return ids
}
