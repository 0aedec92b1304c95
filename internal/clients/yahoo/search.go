package yahoo

import (
	"context"
	"net/url"
	"strings"

	"github.com/bobmcallan/tickerwatch/internal/common"
	"github.com/bobmcallan/tickerwatch/internal/models"
)

type searchResponse struct {
	Quotes []struct {
		Symbol    string `json:"symbol"`
		ShortName string `json:"shortname"`
		LongName  string `json:"longname"`
		Exchange  string `json:"exchange"`
		TypeDisp  string `json:"typeDisp"`
	} `json:"quotes"`
}

// Search finds symbols matching query. An empty query returns no results
// without contacting the API.
func (c *Client) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.SearchResult{}, nil
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("quotesCount", "10")
	params.Set("newsCount", "0")

	var resp searchResponse
	if err := c.get(ctx, "/v1/finance/search", params, &resp); err != nil {
		return nil, common.TransientError(query, err)
	}

	results := make([]models.SearchResult, 0, len(resp.Quotes))
	for _, q := range resp.Quotes {
		if q.Symbol == "" {
			continue
		}
		results = append(results, models.SearchResult{
			Symbol:    q.Symbol,
			ShortName: q.ShortName,
			LongName:  q.LongName,
			Exchange:  q.Exchange,
			TypeDisp:  q.TypeDisp,
		})
	}
	return results, nil
}
