// Package quote provides the quote gateway facade with automatic fallback
package quote

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/bobmcallan/tickerwatch/internal/common"
	"github.com/bobmcallan/tickerwatch/internal/interfaces"
	"github.com/bobmcallan/tickerwatch/internal/models"
)

// symbolPattern accepts Yahoo-style symbols: AAPL, RELIANCE.NS, BTC-USD, ^NSEI, GC=F
var symbolPattern = regexp.MustCompile(`^\^?[A-Z0-9][A-Z0-9.\-=&]{0,19}$`)

// NormalizeSymbol trims and upper-cases a symbol and rejects anything
// outside the safe character set with ErrUnknownSymbol.
func NormalizeSymbol(symbol string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if !symbolPattern.MatchString(s) {
		return "", common.UnknownSymbolError(symbol)
	}
	return s, nil
}

// Service implements QuoteGateway over a primary gateway and an optional fallback.
type Service struct {
	primary      interfaces.QuoteGateway
	primaryName  string
	fallback     interfaces.QuoteGateway
	fallbackName string
	timeout      time.Duration
	logger       *common.Logger
}

// Option configures a Service
type Option func(*Service)

// WithFallback sets the gateway tried when the primary fails transiently
func WithFallback(name string, gw interfaces.QuoteGateway) Option {
	return func(s *Service) {
		s.fallback = gw
		s.fallbackName = name
	}
}

// WithTimeout sets the per-call timeout
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// NewService creates a new quote service.
func NewService(name string, primary interfaces.QuoteGateway, logger *common.Logger, opts ...Option) *Service {
	s := &Service{
		primary:     primary,
		primaryName: name,
		timeout:     10 * time.Second,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// shouldFallback reports whether a primary failure is worth a second gateway.
// An unknown symbol is an answer, not a failure.
func (s *Service) shouldFallback(err error) bool {
	return s.fallback != nil && !common.IsUnknownSymbol(err) && !errors.Is(err, context.Canceled)
}

// GetQuote retrieves a live quote, trying the fallback gateway when the
// primary fails for any reason other than an unknown symbol.
func (s *Service) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	sym, err := NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}

	q, primaryErr := s.quoteFrom(ctx, s.primary, sym)
	if primaryErr == nil {
		if q.Source == "" {
			q.Source = s.primaryName
		}
		return q, nil
	}
	if !s.shouldFallback(primaryErr) {
		return nil, primaryErr
	}

	s.logger.Info().Err(primaryErr).Str("symbol", sym).Str("fallback", s.fallbackName).Msg("Primary gateway failed, trying fallback")

	q, fallbackErr := s.quoteFrom(ctx, s.fallback, sym)
	if fallbackErr != nil {
		s.logger.Warn().Err(fallbackErr).Str("symbol", sym).Msg("Fallback gateway failed")
		return nil, primaryErr
	}
	if q.Source == "" {
		q.Source = s.fallbackName
	}
	return q, nil
}

func (s *Service) quoteFrom(ctx context.Context, gw interfaces.QuoteGateway, symbol string) (*models.Quote, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	q, err := gw.GetQuote(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if q == nil {
		return nil, common.UnknownSymbolError(symbol)
	}
	q.Symbol = symbol
	return q, nil
}

// Search finds symbols matching query. A blank query returns no results
// without touching a gateway.
func (s *Service) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.SearchResult{}, nil
	}

	results, primaryErr := s.searchFrom(ctx, s.primary, query)
	if primaryErr == nil {
		return results, nil
	}
	if !s.shouldFallback(primaryErr) {
		return nil, primaryErr
	}

	results, err := s.searchFrom(ctx, s.fallback, query)
	if err != nil {
		s.logger.Warn().Err(err).Str("query", query).Msg("Fallback search failed")
		return nil, primaryErr
	}
	return results, nil
}

func (s *Service) searchFrom(ctx context.Context, gw interfaces.QuoteGateway, query string) ([]models.SearchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	results, err := gw.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	if results == nil {
		results = []models.SearchResult{}
	}
	return results, nil
}

// GetHistory retrieves closes for symbol, with the same fallback rules as GetQuote
func (s *Service) GetHistory(ctx context.Context, symbol, rng, interval string) ([]models.HistoryPoint, error) {
	sym, err := NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}

	points, primaryErr := s.historyFrom(ctx, s.primary, sym, rng, interval)
	if primaryErr == nil {
		return points, nil
	}
	if !s.shouldFallback(primaryErr) {
		return nil, primaryErr
	}

	points, err = s.historyFrom(ctx, s.fallback, sym, rng, interval)
	if err != nil {
		s.logger.Warn().Err(err).Str("symbol", sym).Msg("Fallback history failed")
		return nil, primaryErr
	}
	return points, nil
}

func (s *Service) historyFrom(ctx context.Context, gw interfaces.QuoteGateway, symbol, rng, interval string) ([]models.HistoryPoint, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	points, err := gw.GetHistory(ctx, symbol, rng, interval)
	if err != nil {
		return nil, err
	}
	if points == nil {
		points = []models.HistoryPoint{}
	}
	return points, nil
}

// Ensure Service implements QuoteGateway
var _ interfaces.QuoteGateway = (*Service)(nil)
