package portfolio

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/tickerwatch/internal/models"
)

var hundred = decimal.NewFromInt(100)

func round2(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

// percentOf returns part / whole * 100, or zero when whole is zero
func percentOf(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred)
}

type lot struct {
	investment decimal.Decimal
	value      decimal.Decimal
	price      decimal.Decimal
	priced     bool
}

func valueLot(h models.Holding, prices map[string]float64) lot {
	qty := decimal.NewFromInt(int64(h.Quantity))
	l := lot{investment: decimal.NewFromFloat(h.PurchasePrice).Mul(qty)}
	// Price maps are keyed the way quote.FetchQuotes keys them
	if p, ok := prices[strings.ToUpper(strings.TrimSpace(h.Symbol))]; ok {
		l.price = decimal.NewFromFloat(p)
		l.value = l.price.Mul(qty)
		l.priced = true
	}
	return l
}

// ValueHolding prices one holding. A symbol missing from prices is valued
// at zero and flagged with PriceAvailable=false.
func ValueHolding(h models.Holding, prices map[string]float64) models.HoldingValuation {
	l := valueLot(h, prices)
	pl := l.value.Sub(l.investment)
	return models.HoldingValuation{
		Holding:           h,
		CurrentPrice:      round2(l.price),
		PriceAvailable:    l.priced,
		Investment:        round2(l.investment),
		CurrentValue:      round2(l.value),
		ProfitLoss:        round2(pl),
		ProfitLossPercent: round2(percentOf(pl, l.investment)),
	}
}

// Summarize aggregates every holding against prices. Unpriced holdings
// count toward investment and contribute zero to current value. The
// percentage is zero for an empty portfolio.
func Summarize(holdings []models.Holding, prices map[string]float64) models.PortfolioSummary {
	investment := decimal.Zero
	value := decimal.Zero
	priced := 0
	for _, h := range holdings {
		l := valueLot(h, prices)
		investment = investment.Add(l.investment)
		value = value.Add(l.value)
		if l.priced {
			priced++
		}
	}
	pl := value.Sub(investment)
	return models.PortfolioSummary{
		TotalInvestment:        round2(investment),
		CurrentValue:           round2(value),
		TotalProfitLoss:        round2(pl),
		TotalProfitLossPercent: round2(percentOf(pl, investment)),
		Holdings:               len(holdings),
		PricedHoldings:         priced,
	}
}
