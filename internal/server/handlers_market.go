package server

import (
	"net/http"
	"strings"

	"github.com/bobmcallan/tickerwatch/internal/models"
	"github.com/bobmcallan/tickerwatch/internal/services/quote"
)

// validChartRanges are the ranges the history endpoints accept.
var validChartRanges = map[string]bool{
	"1d": true, "5d": true, "1mo": true, "6mo": true,
	"ytd": true, "1y": true, "5y": true, "max": true,
}

// chartParams reads ?range=&interval= with the defaults 1mo and 1d.
// An unknown range is passed through and resolves to one year.
func chartParams(r *http.Request) (string, string) {
	rng := strings.ToLower(r.URL.Query().Get("range"))
	if rng == "" {
		rng = "1mo"
	}
	interval := strings.ToLower(r.URL.Query().Get("interval"))
	if interval == "" {
		interval = "1d"
	}
	return rng, interval
}

// handleStockQuote handles GET /api/stocks/{symbol}.
func (s *Server) handleStockQuote(w http.ResponseWriter, r *http.Request, raw string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	symbol, err := quote.NormalizeSymbol(raw)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	q, err := s.app.Gateway.GetQuote(r.Context(), symbol)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"quote": q})
}

// handleStockChart handles GET /api/stocks/{symbol}/chart.
func (s *Server) handleStockChart(w http.ResponseWriter, r *http.Request, raw string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	symbol, err := quote.NormalizeSymbol(raw)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	rng, interval := chartParams(r)

	points, err := s.app.Gateway.GetHistory(r.Context(), symbol, rng, interval)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if !validChartRanges[rng] {
		rng = "1y"
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"symbol":   symbol,
		"range":    rng,
		"interval": interval,
		"points":   points,
	})
}

// handleStockChartPNG handles GET /api/stocks/{symbol}/chart.png.
func (s *Server) handleStockChartPNG(w http.ResponseWriter, r *http.Request, raw string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	symbol, err := quote.NormalizeSymbol(raw)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	rng, interval := chartParams(r)

	points, err := s.app.Gateway.GetHistory(r.Context(), symbol, rng, interval)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	png, err := s.app.MarketService.RenderHistoryChart(symbol, points)
	if err != nil {
		WriteErrorWithCode(w, http.StatusNotFound, err.Error(), CodeNotFound)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "max-age=60")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// handleSearch handles GET /api/search?q=.
// A failed search answers with an empty result list.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	results := []models.SearchResult{}

	if query != "" {
		found, err := s.app.Gateway.Search(r.Context(), query)
		if err != nil {
			s.logger.Warn().Err(err).Str("query", query).Msg("Search failed")
		} else if found != nil {
			results = found
		}
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"query":   query,
		"results": results,
	})
}

// handleMarketMovers handles GET /api/market-movers.
func (s *Server) handleMarketMovers(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	movers, err := s.app.MarketService.Movers(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, movers)
}

// handleMarketIndices handles GET /api/market/indices.
func (s *Server) handleMarketIndices(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, s.app.MarketService.Indices())
}
