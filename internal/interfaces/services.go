package interfaces

import (
	"context"

	"github.com/bobmcallan/tickerwatch/internal/models"
)

// AlertService manages price alerts and evaluates them
type AlertService interface {
	Create(ctx context.Context, in models.AlertInput) (*models.Alert, error)
	List(ctx context.Context) ([]models.Alert, error)
	Delete(ctx context.Context, id int64) error
	Evaluate(ctx context.Context) (models.Evaluation, error)
}

// PortfolioService manages holdings and values them
type PortfolioService interface {
	Add(ctx context.Context, in models.HoldingInput) (*models.Holding, error)
	List(ctx context.Context) ([]models.Holding, error)
	Remove(ctx context.Context, id int64) error
	RefreshPrices(ctx context.Context) error
	Snapshot(ctx context.Context) (*models.PortfolioSnapshot, error)
}

// MarketService provides the market overview
type MarketService interface {
	Movers(ctx context.Context) (*models.Movers, error)
	RefreshIndices(ctx context.Context) error
	Indices() models.IndexTape
	RenderHistoryChart(symbol string, points []models.HistoryPoint) ([]byte, error)
}
