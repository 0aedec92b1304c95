package server

import (
	"net/http"
	"runtime"
	"strings"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/tickerwatch/internal/common"
)

// handleShutdown handles POST /api/shutdown (dev mode only).
func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if s.app.Config.IsProduction() {
		WriteError(w, http.StatusForbidden, "Shutdown endpoint disabled in production")
		return
	}

	s.logger.Info().Msg("Shutdown requested via HTTP endpoint")

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Shutting down gracefully...\n"))

	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	if s.shutdownChan != nil {
		go func() {
			time.Sleep(100 * time.Millisecond)
			s.shutdownChan <- struct{}{}
		}()
	}
}

// registerRoutes sets up all routes on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// System
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)
	mux.HandleFunc("/api/shutdown", s.handleShutdown)
	mux.HandleFunc("/debug/memstats", s.handleMemstats)

	// Market data
	mux.HandleFunc("/api/stocks/", s.routeStocks)
	mux.HandleFunc("/api/search", s.handleSearch)
	mux.HandleFunc("/api/market-movers", s.handleMarketMovers)
	mux.HandleFunc("/api/market/indices", s.handleMarketIndices)

	// Alerts
	mux.HandleFunc("/api/alerts/evaluate", s.handleAlertEvaluate)
	mux.HandleFunc("/api/alerts/", s.routeAlerts)
	mux.HandleFunc("/api/alerts", s.handleAlerts)

	// Portfolio
	mux.HandleFunc("/api/portfolio/holdings/", s.routeHoldings)
	mux.HandleFunc("/api/portfolio/holdings", s.handleHoldings)
	mux.HandleFunc("/api/portfolio", s.handlePortfolio)

	// Live events
	mux.HandleFunc("/ws", s.app.Hub.ServeWS)

	// MCP over Streamable HTTP
	mux.Handle("/mcp", mcpserver.NewStreamableHTTPServer(s.app.MCPServer,
		mcpserver.WithStateLess(true),
	))
}

// routeStocks dispatches /api/stocks/{symbol}[/chart|/chart.png].
func (s *Server) routeStocks(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/stocks/")
	if path == "" {
		WriteError(w, http.StatusBadRequest, "symbol is required in path")
		return
	}

	symbol, sub, _ := strings.Cut(path, "/")
	switch sub {
	case "":
		s.handleStockQuote(w, r, symbol)
	case "chart":
		s.handleStockChart(w, r, symbol)
	case "chart.png":
		s.handleStockChartPNG(w, r, symbol)
	default:
		WriteError(w, http.StatusNotFound, "Not found")
	}
}

// routeAlerts dispatches /api/alerts/{id}.
func (s *Server) routeAlerts(w http.ResponseWriter, r *http.Request) {
	raw := PathParam(r, "/api/alerts/", "")
	if raw == "" {
		s.handleAlerts(w, r)
		return
	}
	s.handleAlertDelete(w, r, raw)
}

// routeHoldings dispatches /api/portfolio/holdings/{id}.
func (s *Server) routeHoldings(w http.ResponseWriter, r *http.Request) {
	raw := PathParam(r, "/api/portfolio/holdings/", "")
	if raw == "" {
		s.handleHoldings(w, r)
		return
	}
	s.handleHoldingDelete(w, r, raw)
}

// --- System handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"build":   common.GetBuild(),
		"commit":  common.GetGitCommit(),
		"uptime":  time.Since(s.app.StartupTime).Round(time.Second).String(),
	})
}

// handleMemstats handles GET /debug/memstats (dev mode only).
func (s *Server) handleMemstats(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	if s.app.Config.IsProduction() {
		WriteError(w, http.StatusForbidden, "Disabled in production")
		return
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"alloc_mb":       float64(m.Alloc) / 1024 / 1024,
		"sys_mb":         float64(m.Sys) / 1024 / 1024,
		"num_gc":         m.NumGC,
		"goroutines":     runtime.NumGoroutine(),
		"ws_subscribers": s.app.Hub.ClientCount(),
	})
}
