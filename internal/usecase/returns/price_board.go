package returns

import (
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
)

// DefaultPriceTTL is how long a published quote stays usable
const DefaultPriceTTL = 15 * time.Minute

// PriceBoard holds the latest published quote per ticker.
// Quotes older than the TTL are treated as missing, which excludes the position from reports.
type PriceBoard struct {
	quotes *cache.Cache
}

// NewPriceBoard creates a PriceBoard whose quotes expire after ttl
func NewPriceBoard(ttl time.Duration) *PriceBoard {
	if ttl <= 0 {
		ttl = DefaultPriceTTL
	}
	return &PriceBoard{
		quotes: cache.New(ttl, 2*ttl),
	}
}

// Publish stores quotes, replacing any previous quote of the same ticker
func (b *PriceBoard) Publish(quotes ...Quote) {
	for _, q := range quotes {
		if q.AsOf.IsZero() {
			q.AsOf = time.Now()
		}
		b.quotes.Set(key(q.Ticker), q, cache.DefaultExpiration)
	}
}

// Quote returns the current quote of a ticker, if any
func (b *PriceBoard) Quote(ticker string) (Quote, bool) {
	v, ok := b.quotes.Get(key(ticker))
	if !ok {
		return Quote{}, false
	}
	return v.(Quote), true
}

// Len returns the number of quotes held, including expired ones not yet evicted
func (b *PriceBoard) Len() int {
	return b.quotes.ItemCount()
}

func key(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}
