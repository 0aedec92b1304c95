package models

import (
	"math"
	"time"

	"github.com/bobmcallan/tickerwatch/internal/common"
)

// DateLayout is the calendar-date format of Holding.PurchaseDate
const DateLayout = "2006-01-02"

// Holding is one purchase lot. Multiple lots of the same symbol are
// kept as separate records.
type Holding struct {
	ID            int64     `json:"id"`
	Symbol        string    `json:"symbol"`
	StockName     string    `json:"stockName"`
	PurchasePrice float64   `json:"purchasePrice"`
	Quantity      int       `json:"quantity"`
	PurchaseDate  string    `json:"purchaseDate"`
	AddedAt       time.Time `json:"addedAt"`
}

// Validate checks the holding against today's calendar date.
func (h *Holding) Validate(today time.Time) error {
	if h.Symbol == "" {
		return common.NewValidationError("symbol", "is required")
	}
	if math.IsNaN(h.PurchasePrice) || math.IsInf(h.PurchasePrice, 0) || h.PurchasePrice <= 0 {
		return common.NewValidationError("purchasePrice", "must be greater than zero")
	}
	if h.Quantity < 1 {
		return common.NewValidationError("quantity", "must be a whole number of at least 1")
	}
	d, err := time.Parse(DateLayout, h.PurchaseDate)
	if err != nil {
		return common.NewValidationError("purchaseDate", "must be a date in YYYY-MM-DD form")
	}
	y, m, day := today.Date()
	if d.After(time.Date(y, m, day, 0, 0, 0, 0, time.UTC)) {
		return common.NewValidationError("purchaseDate", "cannot be in the future")
	}
	return nil
}

// HoldingInput is the caller-supplied part of a new holding.
// Quantity is a float so fractional input can be rejected rather than
// truncated by the decoder.
type HoldingInput struct {
	Symbol        string  `json:"symbol"`
	StockName     string  `json:"stockName,omitempty"`
	PurchasePrice float64 `json:"purchasePrice"`
	Quantity      float64 `json:"quantity"`
	PurchaseDate  string  `json:"purchaseDate,omitempty"`
}

// HoldingValuation is one holding priced against the current price map
type HoldingValuation struct {
	Holding
	CurrentPrice      float64 `json:"currentPrice"`
	PriceAvailable    bool    `json:"priceAvailable"`
	Investment        float64 `json:"investment"`
	CurrentValue      float64 `json:"currentValue"`
	ProfitLoss        float64 `json:"profitLoss"`
	ProfitLossPercent float64 `json:"profitLossPercent"`
}

// PortfolioSummary aggregates every holding
type PortfolioSummary struct {
	TotalInvestment        float64 `json:"totalInvestment"`
	CurrentValue           float64 `json:"currentValue"`
	TotalProfitLoss        float64 `json:"totalProfitLoss"`
	TotalProfitLossPercent float64 `json:"totalProfitLossPercent"`
	Holdings               int     `json:"holdings"`
	PricedHoldings         int     `json:"pricedHoldings"`
}

// PortfolioSnapshot is the valued portfolio at one instant
type PortfolioSnapshot struct {
	Holdings []HoldingValuation `json:"holdings"`
	Summary  PortfolioSummary   `json:"summary"`
	PricedAt time.Time          `json:"pricedAt"`
}
