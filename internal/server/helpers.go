package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/bobmcallan/tickerwatch/internal/common"
)

// ErrorResponse is the standard error format for REST API responses.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
	Field string `json:"field,omitempty"`
}

// Error codes returned in ErrorResponse.Code.
const (
	CodeValidation    = "validation"
	CodeNotFound      = "not_found"
	CodeUnknownSymbol = "unknown_symbol"
	CodeUpstream      = "upstream_unavailable"
)

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// WriteError writes a JSON error response.
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: message})
}

// WriteErrorWithCode writes a JSON error response with an error code.
func WriteErrorWithCode(w http.ResponseWriter, statusCode int, message, code string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: message, Code: code})
}

// writeServiceError maps a service error onto its HTTP status.
// Validation is 400, missing records and unknown symbols are 404 and
// upstream failures are 502. Anything else is a 500 and is logged.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *common.ValidationError
	switch {
	case errors.As(err, &ve):
		WriteJSON(w, http.StatusBadRequest, ErrorResponse{Error: ve.Error(), Code: CodeValidation, Field: ve.Field})
	case errors.Is(err, common.ErrNotFound):
		WriteErrorWithCode(w, http.StatusNotFound, err.Error(), CodeNotFound)
	case common.IsUnknownSymbol(err):
		WriteErrorWithCode(w, http.StatusNotFound, err.Error(), CodeUnknownSymbol)
	case errors.Is(err, common.ErrTransientFetch):
		WriteErrorWithCode(w, http.StatusBadGateway, err.Error(), CodeUpstream)
	default:
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
		WriteError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// RequireMethod validates the HTTP method and returns true if it matches.
// If it doesn't match, it writes a 405 response and returns false.
func RequireMethod(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	w.Header().Set("Allow", strings.Join(methods, ", "))
	WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	return false
}

// DecodeJSON reads and decodes JSON from the request body into v.
// Returns false and writes a 400 error if decoding fails.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if r.Body == nil || r.Body == http.NoBody {
		WriteError(w, http.StatusBadRequest, "Request body is required")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return false
	}
	return true
}

// PathParam extracts a path parameter from the URL path.
// For a pattern like /api/stocks/{symbol}/chart, calling PathParam(r, "/api/stocks/", "/chart")
// extracts the {symbol} part.
func PathParam(r *http.Request, prefix, suffix string) string {
	path := r.URL.Path
	if !strings.HasPrefix(path, prefix) {
		return ""
	}
	rest := path[len(prefix):]
	if suffix != "" {
		idx := strings.Index(rest, suffix)
		if idx < 0 {
			return rest
		}
		return rest[:idx]
	}
	// No suffix, return up to the next /
	if idx := strings.Index(rest, "/"); idx >= 0 {
		return rest[:idx]
	}
	return rest
}

// parseID parses a numeric record id from a path segment.
func parseID(w http.ResponseWriter, raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		WriteErrorWithCode(w, http.StatusBadRequest, "invalid id: "+raw, CodeValidation)
		return 0, false
	}
	return id, true
}
