package ledger

import (
	"github.com/simaogato/realfolio-backend/internal/domain"
)

// Guard remembers which transaction ids have already been folded into the ledger
// so that re-fetched or overlapping exports are applied at most once.
type Guard struct {
	seen map[string]struct{}
}

// NewGuard seeds the guard with every id referenced by the snapshot's lots and closed trades
func NewGuard(snap *domain.Snapshot) *Guard {
	if snap == nil {
		return &Guard{seen: make(map[string]struct{})}
	}
	return &Guard{seen: snap.KnownTransactionIDs()}
}

// IsNew reports whether the id has not been seen yet
func (g *Guard) IsNew(id string) bool {
	_, ok := g.seen[id]
	return !ok
}

// Mark records an id as seen
func (g *Guard) Mark(id string) {
	g.seen[id] = struct{}{}
}

// Len returns the number of known ids
func (g *Guard) Len() int {
	return len(g.seen)
}
