package yahoo

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bobmcallan/tickerwatch/internal/common"
	"github.com/bobmcallan/tickerwatch/internal/models"
)

// chartResponse is the /v8/finance/chart payload. Pointer fields are
// absent for some instruments (indices have no market cap, crypto no PE).
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta struct {
		Symbol               string   `json:"symbol"`
		Currency             string   `json:"currency"`
		ExchangeName         string   `json:"exchangeName"`
		FullExchangeName     string   `json:"fullExchangeName"`
		InstrumentType       string   `json:"instrumentType"`
		ShortName            string   `json:"shortName"`
		LongName             string   `json:"longName"`
		RegularMarketTime    int64    `json:"regularMarketTime"`
		RegularMarketPrice   *float64 `json:"regularMarketPrice"`
		ChartPreviousClose   *float64 `json:"chartPreviousClose"`
		PreviousClose        *float64 `json:"previousClose"`
		RegularMarketDayHigh *float64 `json:"regularMarketDayHigh"`
		RegularMarketDayLow  *float64 `json:"regularMarketDayLow"`
		RegularMarketVolume  *int64   `json:"regularMarketVolume"`
		FiftyTwoWeekHigh     *float64 `json:"fiftyTwoWeekHigh"`
		FiftyTwoWeekLow      *float64 `json:"fiftyTwoWeekLow"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open  []*float64 `json:"open"`
			Close []*float64 `json:"close"`
		} `json:"quote"`
	} `json:"indicators"`
}

func optional[T any](p *T) models.Optional[T] {
	if p == nil {
		return models.Optional[T]{}
	}
	return models.Some(*p)
}

func firstNonNil(values []*float64) *float64 {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

func (c *Client) chart(ctx context.Context, symbol string, params url.Values) (*chartResult, error) {
	path := "/v8/finance/chart/" + url.PathEscape(symbol)

	var resp chartResponse
	if err := c.get(ctx, path, params, &resp); err != nil {
		return nil, classify(symbol, err)
	}
	if resp.Chart.Error != nil {
		if strings.EqualFold(resp.Chart.Error.Code, "Not Found") {
			return nil, common.UnknownSymbolError(symbol)
		}
		return nil, common.TransientError(symbol, fmt.Errorf("%s: %s", resp.Chart.Error.Code, resp.Chart.Error.Description))
	}
	if len(resp.Chart.Result) == 0 {
		return nil, common.UnknownSymbolError(symbol)
	}
	return &resp.Chart.Result[0], nil
}

// GetQuote retrieves the current quote from the chart metadata
func (c *Client) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	params := url.Values{}
	params.Set("range", "1d")
	params.Set("interval", "1d")

	res, err := c.chart(ctx, symbol, params)
	if err != nil {
		return nil, err
	}
	meta := res.Meta
	if meta.RegularMarketPrice == nil {
		return nil, common.UnknownSymbolError(symbol)
	}

	q := &models.Quote{
		Symbol:           meta.Symbol,
		Price:            *meta.RegularMarketPrice,
		DayHigh:          optional(meta.RegularMarketDayHigh),
		DayLow:           optional(meta.RegularMarketDayLow),
		Volume:           optional(meta.RegularMarketVolume),
		FiftyTwoWeekHigh: optional(meta.FiftyTwoWeekHigh),
		FiftyTwoWeekLow:  optional(meta.FiftyTwoWeekLow),
		Currency:         meta.Currency,
		Exchange:         meta.FullExchangeName,
		QuoteType:        meta.InstrumentType,
		ShortName:        meta.ShortName,
		LongName:         meta.LongName,
		Source:           "yahoo",
	}
	if q.Symbol == "" {
		q.Symbol = symbol
	}
	if q.Exchange == "" {
		q.Exchange = meta.ExchangeName
	}
	if meta.RegularMarketTime > 0 {
		q.Timestamp = time.Unix(meta.RegularMarketTime, 0).UTC()
	} else {
		q.Timestamp = c.now().UTC()
	}
	if len(res.Indicators.Quote) > 0 {
		q.Open = optional(firstNonNil(res.Indicators.Quote[0].Open))
	}

	prev := meta.PreviousClose
	if prev == nil {
		prev = meta.ChartPreviousClose
	}
	if prev != nil && *prev != 0 {
		q.PreviousClose = models.Some(*prev)
		change := q.Price - *prev
		q.Change = models.Some(change)
		q.ChangePercent = models.Some(change / *prev * 100)
	}

	return q, nil
}

// GetHistory retrieves closes from period1 (derived from rng) until now.
// Bars with a null close are dropped.
func (c *Client) GetHistory(ctx context.Context, symbol, rng, interval string) ([]models.HistoryPoint, error) {
	if interval == "" {
		interval = "1d"
	}
	now := c.now()

	params := url.Values{}
	params.Set("period1", strconv.FormatInt(models.RangeStart(rng, now).Unix(), 10))
	params.Set("period2", strconv.FormatInt(now.Unix(), 10))
	params.Set("interval", interval)
	params.Set("includePrePost", "false")

	res, err := c.chart(ctx, symbol, params)
	if err != nil {
		return nil, err
	}

	points := make([]models.HistoryPoint, 0, len(res.Timestamp))
	if len(res.Indicators.Quote) == 0 {
		return points, nil
	}
	closes := res.Indicators.Quote[0].Close
	for i, ts := range res.Timestamp {
		if i >= len(closes) || closes[i] == nil {
			continue
		}
		points = append(points, models.HistoryPoint{
			Timestamp: time.Unix(ts, 0).UTC(),
			Close:     *closes[i],
		})
	}
	return points, nil
}
