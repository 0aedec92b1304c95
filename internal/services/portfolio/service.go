// Package portfolio manages paper holdings and values them against live prices
package portfolio

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bobmcallan/tickerwatch/internal/common"
	"github.com/bobmcallan/tickerwatch/internal/interfaces"
	"github.com/bobmcallan/tickerwatch/internal/models"
	"github.com/bobmcallan/tickerwatch/internal/services/quote"
)

// Service implements PortfolioService over the stockPortfolio collection
type Service struct {
	holdings    interfaces.CollectionStore[models.Holding]
	gateway     interfaces.QuoteGateway
	ids         *common.IDSource
	book        *PriceBook
	logger      *common.Logger
	concurrency int
	now         func() time.Time // injectable clock for testing
}

// NewService creates a new portfolio service
func NewService(holdings interfaces.CollectionStore[models.Holding], gateway interfaces.QuoteGateway, ids *common.IDSource, logger *common.Logger) *Service {
	if ids == nil {
		ids = common.NewIDSource(nil)
	}
	return &Service{
		holdings:    holdings,
		gateway:     gateway,
		ids:         ids,
		book:        NewPriceBook(),
		logger:      logger,
		concurrency: quote.DefaultConcurrency,
		now:         time.Now,
	}
}

// SetConcurrency bounds in-flight quote fetches per refresh
func (s *Service) SetConcurrency(n int) {
	if n > 0 {
		s.concurrency = n
	}
}

// PriceBook exposes the in-memory price map
func (s *Service) PriceBook() *PriceBook {
	return s.book
}

// Add validates and stores a new holding. An empty purchase date means
// today. An empty stock name is filled from the gateway quote.
func (s *Service) Add(ctx context.Context, in models.HoldingInput) (*models.Holding, error) {
	now := s.now()

	if in.Quantity != math.Trunc(in.Quantity) || in.Quantity < 1 || in.Quantity > math.MaxInt32 {
		return nil, common.NewValidationError("quantity", "must be a whole number of at least 1")
	}
	h := models.Holding{
		Symbol:        strings.ToUpper(strings.TrimSpace(in.Symbol)),
		StockName:     strings.TrimSpace(in.StockName),
		PurchasePrice: in.PurchasePrice,
		Quantity:      int(in.Quantity),
		PurchaseDate:  strings.TrimSpace(in.PurchaseDate),
	}
	if h.PurchaseDate == "" {
		h.PurchaseDate = now.Format(models.DateLayout)
	}
	if err := h.Validate(now); err != nil {
		return nil, err
	}

	q, err := s.gateway.GetQuote(ctx, h.Symbol)
	switch {
	case err == nil:
		if h.StockName == "" {
			h.StockName = q.DisplayName()
		}
		s.book.Set(h.Symbol, q.Price)
	case common.IsUnknownSymbol(err):
		return nil, err
	default:
		s.logger.Warn().Err(err).Str("symbol", h.Symbol).Msg("Could not verify holding symbol, adding anyway")
	}
	if h.StockName == "" {
		h.StockName = h.Symbol
	}

	err = s.holdings.Update(ctx, func(current []models.Holding) ([]models.Holding, error) {
		for _, existing := range current {
			s.ids.Observe(existing.ID)
		}
		h.ID = s.ids.Next()
		h.AddedAt = now.UTC()
		return append(current, h), nil
	})
	if err != nil {
		return nil, fmt.Errorf("add holding: %w", err)
	}

	s.logger.Info().
		Int64("id", h.ID).
		Str("symbol", h.Symbol).
		Int("quantity", h.Quantity).
		Float64("price", h.PurchasePrice).
		Msg("Holding added")
	return &h, nil
}

// List returns every stored holding in insertion order
func (s *Service) List(ctx context.Context) ([]models.Holding, error) {
	return s.holdings.Load(ctx)
}

// Remove deletes a holding by id
func (s *Service) Remove(ctx context.Context, id int64) error {
	err := s.holdings.Update(ctx, func(current []models.Holding) ([]models.Holding, error) {
		kept := current[:0:0]
		for _, h := range current {
			if h.ID != id {
				kept = append(kept, h)
			}
		}
		if len(kept) == len(current) {
			return nil, fmt.Errorf("holding %d: %w", id, common.ErrNotFound)
		}
		return kept, nil
	})
	if err != nil {
		return err
	}
	s.logger.Info().Int64("id", id).Msg("Holding removed")
	return nil
}

// RefreshPrices re-reads holdings, quotes each distinct symbol and swaps
// in a new price book built from the successful fetches only.
func (s *Service) RefreshPrices(ctx context.Context) error {
	holdings, err := s.holdings.Load(ctx)
	if err != nil {
		return fmt.Errorf("load holdings: %w", err)
	}

	symbols := make([]string, 0, len(holdings))
	for _, h := range holdings {
		symbols = append(symbols, h.Symbol)
	}

	res := quote.FetchQuotes(ctx, s.gateway, symbols, s.concurrency)
	for sym, ferr := range res.Errors {
		if common.IsUnknownSymbol(ferr) {
			s.logger.Debug().Str("symbol", sym).Msg("Holding symbol unknown to gateway")
			continue
		}
		s.logger.Warn().Err(ferr).Str("symbol", sym).Msg("Holding price fetch failed")
	}

	s.book.Replace(res.Prices(), s.now().UTC())
	return nil
}

// Snapshot values every stored holding against the current price book
func (s *Service) Snapshot(ctx context.Context) (*models.PortfolioSnapshot, error) {
	holdings, err := s.holdings.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load holdings: %w", err)
	}
	prices, pricedAt := s.book.Snapshot()

	valued := make([]models.HoldingValuation, 0, len(holdings))
	for _, h := range holdings {
		valued = append(valued, ValueHolding(h, prices))
	}
	return &models.PortfolioSnapshot{
		Holdings: valued,
		Summary:  Summarize(holdings, prices),
		PricedAt: pricedAt,
	}, nil
}

// Ensure Service implements PortfolioService
var _ interfaces.PortfolioService = (*Service)(nil)
