package quote

import (
	"context"
	"strings"
	"sync"

	"github.com/bobmcallan/tickerwatch/internal/interfaces"
	"github.com/bobmcallan/tickerwatch/internal/models"
)

// DefaultConcurrency bounds in-flight fetches for one tick
const DefaultConcurrency = 8

// FetchResult holds the successes and failures of one FetchQuotes call
type FetchResult struct {
	Quotes map[string]*models.Quote
	Errors map[string]error
}

// Prices returns symbol -> price for the successful fetches
func (r FetchResult) Prices() map[string]float64 {
	prices := make(map[string]float64, len(r.Quotes))
	for sym, q := range r.Quotes {
		prices[sym] = q.Price
	}
	return prices
}

// UniqueSymbols upper-cases and de-duplicates symbols, keeping first-seen order
func UniqueSymbols(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// FetchQuotes quotes each distinct symbol once with at most concurrency
// requests in flight. A failure for one symbol never aborts the others.
// The gateway is expected to apply its own per-call timeout.
func FetchQuotes(ctx context.Context, gw interfaces.QuoteGateway, symbols []string, concurrency int) FetchResult {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	symbols = UniqueSymbols(symbols)

	res := FetchResult{
		Quotes: make(map[string]*models.Quote, len(symbols)),
		Errors: make(map[string]error),
	}

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, sym := range symbols {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			mu.Lock()
			res.Errors[sym] = ctx.Err()
			mu.Unlock()
			continue
		}
		wg.Add(1)
		go func(sym string) {
			defer wg.Done()
			defer func() { <-sem }()

			q, err := gw.GetQuote(ctx, sym)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.Errors[sym] = err
				return
			}
			res.Quotes[sym] = q
		}(sym)
	}

	wg.Wait()
	return res
}
