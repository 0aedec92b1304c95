package portfolio

import (
	"maps"
	"sync"
	"time"
)

// PriceBook holds the latest polled price per symbol. It lives only in
// memory and is replaced wholesale on every refresh.
type PriceBook struct {
	mu        sync.RWMutex
	prices    map[string]float64
	updatedAt time.Time
}

// NewPriceBook creates an empty price book
func NewPriceBook() *PriceBook {
	return &PriceBook{prices: map[string]float64{}}
}

// Replace swaps in a freshly built map. Symbols absent from prices are
// dropped, so a failed fetch values that symbol at zero until the next refresh.
func (b *PriceBook) Replace(prices map[string]float64, at time.Time) {
	next := maps.Clone(prices)
	if next == nil {
		next = map[string]float64{}
	}
	b.mu.Lock()
	b.prices = next
	b.updatedAt = at
	b.mu.Unlock()
}

// Set records a single price without disturbing the rest of the book
func (b *PriceBook) Set(symbol string, price float64) {
	b.mu.Lock()
	b.prices[symbol] = price
	b.mu.Unlock()
}

// Snapshot returns a copy of the prices and the time of the last refresh
func (b *PriceBook) Snapshot() (map[string]float64, time.Time) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return maps.Clone(b.prices), b.updatedAt
}
