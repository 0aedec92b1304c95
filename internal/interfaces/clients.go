// Package interfaces defines service contracts for tickerwatch
package interfaces

import (
	"context"

	"github.com/bobmcallan/tickerwatch/internal/models"
)

// QuoteGateway is a source of market data. Implementations return
// errors wrapping common.ErrUnknownSymbol or common.ErrTransientFetch.
type QuoteGateway interface {
	// GetQuote retrieves the latest quote for a symbol
	GetQuote(ctx context.Context, symbol string) (*models.Quote, error)

	// Search finds symbols matching a free-text query
	Search(ctx context.Context, query string) ([]models.SearchResult, error)

	// GetHistory retrieves closes for a range ("1d", "5d", "1mo", "6mo",
	// "ytd", "1y", "5y", "max") at an interval ("1d", "1wk", "1mo", ...)
	GetHistory(ctx context.Context, symbol, rng, interval string) ([]models.HistoryPoint, error)
}

// Notifier delivers a triggered-alert notification. Delivery is best-effort.
type Notifier interface {
	Notify(ctx context.Context, n models.AlertNotification) error
}

// EventPublisher pushes events to live subscribers
type EventPublisher interface {
	Publish(eventType string, payload any)
}
