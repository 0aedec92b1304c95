package server

import (
	"net/http"

	"github.com/bobmcallan/tickerwatch/internal/models"
)

// handlePortfolio handles GET /api/portfolio: every holding valued against
// the latest polled prices plus the summary.
func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	snap, err := s.app.PortfolioService.Snapshot(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, snap)
}

// handleHoldings handles GET and POST /api/portfolio/holdings.
func (s *Server) handleHoldings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		holdings, err := s.app.PortfolioService.List(r.Context())
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		if holdings == nil {
			holdings = []models.Holding{}
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{"holdings": holdings})

	case http.MethodPost:
		var in models.HoldingInput
		if !DecodeJSON(w, r, &in) {
			return
		}
		h, err := s.app.PortfolioService.Add(r.Context(), in)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		WriteJSON(w, http.StatusCreated, h)

	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPost)
	}
}

// handleHoldingDelete handles DELETE /api/portfolio/holdings/{id}.
func (s *Server) handleHoldingDelete(w http.ResponseWriter, r *http.Request, raw string) {
	if !RequireMethod(w, r, http.MethodDelete) {
		return
	}
	id, ok := parseID(w, raw)
	if !ok {
		return
	}
	if err := s.app.PortfolioService.Remove(r.Context(), id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"deleted": id})
}
