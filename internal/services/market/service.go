// Package market provides the market overview: top movers, the index
// ticker tape and history charts.
package market

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/bobmcallan/tickerwatch/internal/common"
	"github.com/bobmcallan/tickerwatch/internal/interfaces"
	"github.com/bobmcallan/tickerwatch/internal/models"
	"github.com/bobmcallan/tickerwatch/internal/services/quote"
)

// moversLimit is the length of each movers list
const moversLimit = 5

// Universe is the fixed symbol set scanned for movers
var Universe = []string{
	"NVDA", "TSLA", "AAPL", "MSFT", "GOOGL", "AMZN", "META", "NFLX", "AMD", "INTC",
	"RELIANCE.NS", "TCS.NS", "INFY.NS", "HDFCBANK.NS", "ICICIBANK.NS",
	"TATASTEEL.NS", "SBIN.NS", "ADANIENT.NS",
	"BTC-USD", "ETH-USD",
}

// Index is one entry of the ticker tape
type Index struct {
	Symbol string
	Name   string
}

// Indices is the ticker tape, in display order
var Indices = []Index{
	{"^NSEI", "NIFTY 50"},
	{"^BSESN", "SENSEX"},
	{"^GSPC", "S&P 500"},
	{"^IXIC", "NASDAQ"},
	{"^DJI", "DOW JONES"},
	{"BTC-USD", "BITCOIN"},
	{"GC=F", "GOLD"},
}

// Service implements MarketService
type Service struct {
	gateway     interfaces.QuoteGateway
	logger      *common.Logger
	concurrency int
	now         func() time.Time

	mu   sync.RWMutex
	tape models.IndexTape
}

// NewService creates a new market service
func NewService(gateway interfaces.QuoteGateway, logger *common.Logger) *Service {
	s := &Service{
		gateway:     gateway,
		logger:      logger,
		concurrency: quote.DefaultConcurrency,
		now:         time.Now,
	}
	s.tape = buildTape(nil, time.Time{})
	return s
}

// SetConcurrency bounds in-flight quote fetches per scan
func (s *Service) SetConcurrency(n int) {
	if n > 0 {
		s.concurrency = n
	}
}

// Movers quotes the universe and ranks it. Quotes without a change
// percentage are left out of every list.
func (s *Service) Movers(ctx context.Context) (*models.Movers, error) {
	res := quote.FetchQuotes(ctx, s.gateway, Universe, s.concurrency)
	if len(res.Errors) > 0 {
		s.logger.Debug().Int("failed", len(res.Errors)).Msg("Some market mover quotes failed")
	}
	if len(res.Quotes) == 0 && len(res.Errors) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, err := range res.Errors {
			return nil, err
		}
	}

	var quotes []models.Quote
	for _, sym := range Universe {
		if q, ok := res.Quotes[sym]; ok && q.ChangePercent.Valid {
			quotes = append(quotes, *q)
		}
	}
	return rankMovers(quotes, s.now().UTC()), nil
}

func rankMovers(quotes []models.Quote, at time.Time) *models.Movers {
	m := &models.Movers{
		Gainers:   []models.Quote{},
		Losers:    []models.Quote{},
		Active:    []models.Quote{},
		UpdatedAt: at,
	}
	for _, q := range quotes {
		switch {
		case q.ChangePercent.Value > 0:
			m.Gainers = append(m.Gainers, q)
		case q.ChangePercent.Value < 0:
			m.Losers = append(m.Losers, q)
		}
	}
	slices.SortStableFunc(m.Gainers, func(a, b models.Quote) int {
		return cmpFloat(b.ChangePercent.Value, a.ChangePercent.Value)
	})
	slices.SortStableFunc(m.Losers, func(a, b models.Quote) int {
		return cmpFloat(a.ChangePercent.Value, b.ChangePercent.Value)
	})

	m.Active = append(m.Active, quotes...)
	slices.SortStableFunc(m.Active, func(a, b models.Quote) int {
		return cmpInt(b.Volume.Or(0), a.Volume.Or(0))
	})

	m.Gainers = head(m.Gainers, moversLimit)
	m.Losers = head(m.Losers, moversLimit)
	m.Active = head(m.Active, moversLimit)
	return m
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func head(q []models.Quote, n int) []models.Quote {
	if len(q) > n {
		return q[:n]
	}
	return q
}

// RefreshIndices quotes every index and replaces the cached tape. Failed
// entries stay on the tape with unavailable values.
func (s *Service) RefreshIndices(ctx context.Context) error {
	symbols := make([]string, len(Indices))
	for i, idx := range Indices {
		symbols[i] = idx.Symbol
	}
	res := quote.FetchQuotes(ctx, s.gateway, symbols, s.concurrency)
	for sym, err := range res.Errors {
		s.logger.Debug().Err(err).Str("symbol", sym).Msg("Index quote failed")
	}

	tape := buildTape(res.Quotes, s.now().UTC())
	s.mu.Lock()
	s.tape = tape
	s.mu.Unlock()
	return ctx.Err()
}

func buildTape(quotes map[string]*models.Quote, at time.Time) models.IndexTape {
	tape := models.IndexTape{Indices: make([]models.IndexQuote, 0, len(Indices)), UpdatedAt: at}
	for _, idx := range Indices {
		entry := models.IndexQuote{Symbol: idx.Symbol, Name: idx.Name}
		if q, ok := quotes[idx.Symbol]; ok {
			entry.Price = models.Some(q.Price)
			entry.Change = q.Change
			entry.ChangePercent = q.ChangePercent
		}
		tape.Indices = append(tape.Indices, entry)
	}
	return tape
}

// Indices returns a copy of the latest tape
func (s *Service) Indices() models.IndexTape {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.IndexTape{
		Indices:   slices.Clone(s.tape.Indices),
		UpdatedAt: s.tape.UpdatedAt,
	}
}

// Ensure Service implements MarketService
var _ interfaces.MarketService = (*Service)(nil)
