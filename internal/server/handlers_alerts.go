package server

import (
	"net/http"

	"github.com/bobmcallan/tickerwatch/internal/models"
)

// handleAlerts handles GET and POST /api/alerts.
func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		alerts, err := s.app.AlertService.List(r.Context())
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		if alerts == nil {
			alerts = []models.Alert{}
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{"alerts": alerts})

	case http.MethodPost:
		var in models.AlertInput
		if !DecodeJSON(w, r, &in) {
			return
		}
		alert, err := s.app.AlertService.Create(r.Context(), in)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		WriteJSON(w, http.StatusCreated, alert)

	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPost)
	}
}

// handleAlertDelete handles DELETE /api/alerts/{id}.
func (s *Server) handleAlertDelete(w http.ResponseWriter, r *http.Request, raw string) {
	if !RequireMethod(w, r, http.MethodDelete) {
		return
	}
	id, ok := parseID(w, raw)
	if !ok {
		return
	}
	if err := s.app.AlertService.Delete(r.Context(), id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"deleted": id})
}

// handleAlertEvaluate handles POST /api/alerts/evaluate, running one
// evaluation tick outside the schedule.
func (s *Server) handleAlertEvaluate(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	ev, err := s.app.AlertService.Evaluate(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, ev)
}
