package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"

	"portal/internal/api"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeUpstreamError maps upstream failures to the portal's status codes:
// rejected credentials turn into 401, anything else into 502.
func writeUpstreamError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, api.ErrUnauthorized) {
		slog.WarnContext(r.Context(), "Upstream rejected session", "error", err)
		writeError(w, http.StatusUnauthorized, "session expired or rejected")
		return
	}
	slog.ErrorContext(r.Context(), "Upstream call failed", "error", err)
	writeError(w, http.StatusBadGateway, "core banking service unavailable")
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// dollarsToCents converts a decimal amount from a JSON number to cents,
// rounding half away from zero.
func dollarsToCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
