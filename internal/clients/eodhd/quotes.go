package eodhd

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/bobmcallan/tickerwatch/internal/models"
)

// realTimeResponse is the /real-time payload. EODHD reports "NA" for
// fields it has no value for.
type realTimeResponse struct {
	Code          string      `json:"code"`
	Timestamp     flexFloat64 `json:"timestamp"`
	Open          flexFloat64 `json:"open"`
	High          flexFloat64 `json:"high"`
	Low           flexFloat64 `json:"low"`
	Close         flexFloat64 `json:"close"`
	Volume        flexFloat64 `json:"volume"`
	PreviousClose flexFloat64 `json:"previousClose"`
	Change        flexFloat64 `json:"change"`
	ChangeP       flexFloat64 `json:"change_p"`
}

func nonZero(v flexFloat64) models.Optional[float64] {
	if v == 0 {
		return models.Optional[float64]{}
	}
	return models.Some(float64(v))
}

// GetQuote retrieves a live quote for a Yahoo-style symbol
func (c *Client) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	ticker := ToTicker(symbol)
	path := fmt.Sprintf("/real-time/%s", ticker)

	var resp realTimeResponse
	if err := c.get(ctx, path, nil, &resp); err != nil {
		return nil, classify(symbol, err)
	}
	// Unknown tickers come back as 200 with every field "NA"
	if resp.Close <= 0 {
		return nil, classify(symbol, &APIError{StatusCode: 404, Message: "no price", Endpoint: path})
	}

	q := &models.Quote{
		Symbol:        symbol,
		Price:         float64(resp.Close),
		Open:          nonZero(resp.Open),
		DayHigh:       nonZero(resp.High),
		DayLow:        nonZero(resp.Low),
		PreviousClose: nonZero(resp.PreviousClose),
		Source:        "eodhd",
	}
	if resp.Volume > 0 {
		q.Volume = models.Some(int64(resp.Volume))
	}
	if q.PreviousClose.Valid {
		q.Change = models.Some(float64(resp.Change))
		q.ChangePercent = models.Some(float64(resp.ChangeP))
	}
	if resp.Timestamp > 0 {
		q.Timestamp = time.Unix(int64(resp.Timestamp), 0).UTC()
	} else {
		q.Timestamp = c.now().UTC()
	}
	return q, nil
}

type searchResult struct {
	Code     string `json:"Code"`
	Exchange string `json:"Exchange"`
	Name     string `json:"Name"`
	Type     string `json:"Type"`
}

// Search finds tickers matching query
func (c *Client) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	if query == "" {
		return []models.SearchResult{}, nil
	}

	params := url.Values{}
	params.Set("limit", "10")

	var hits []searchResult
	if err := c.get(ctx, "/search/"+url.PathEscape(query), params, &hits); err != nil {
		return nil, classify(query, err)
	}

	results := make([]models.SearchResult, 0, len(hits))
	for _, h := range hits {
		results = append(results, models.SearchResult{
			Symbol:    FromTicker(h.Code, h.Exchange),
			ShortName: h.Name,
			LongName:  h.Name,
			Exchange:  h.Exchange,
			TypeDisp:  h.Type,
		})
	}
	return results, nil
}

// eodBarResponse represents the API response for EOD data
type eodBarResponse struct {
	Date          string  `json:"date"`
	Close         float64 `json:"close"`
	AdjustedClose float64 `json:"adjusted_close"`
}

// period maps a chart interval to the EODHD period parameter
func period(interval string) string {
	switch interval {
	case "1wk", "5d":
		return "w"
	case "1mo", "3mo":
		return "m"
	default:
		return "d"
	}
}

// GetHistory retrieves end-of-day closes. EODHD has no intraday data on
// this endpoint so short ranges return the last few daily bars.
func (c *Client) GetHistory(ctx context.Context, symbol, rng, interval string) ([]models.HistoryPoint, error) {
	now := c.now()
	from := models.RangeStart(rng, now)

	params := url.Values{}
	params.Set("period", period(interval))
	params.Set("order", "a")
	params.Set("from", from.Format("2006-01-02"))
	params.Set("to", now.Format("2006-01-02"))

	var bars []eodBarResponse
	if err := c.get(ctx, "/eod/"+ToTicker(symbol), params, &bars); err != nil {
		return nil, classify(symbol, err)
	}

	points := make([]models.HistoryPoint, 0, len(bars))
	for _, bar := range bars {
		date, err := time.Parse("2006-01-02", bar.Date)
		if err != nil {
			continue
		}
		points = append(points, models.HistoryPoint{Timestamp: date, Close: bar.Close})
	}
	return points, nil
}
