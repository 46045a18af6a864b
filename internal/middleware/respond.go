package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/raakeshmj/coreenginedb/internal/audit"
)

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes {"error": reason} and records the reason for the
// request's activity entry.
func WriteError(w http.ResponseWriter, r *http.Request, status int, reason string) {
	audit.FromContext(r.Context()).SetReason(reason)
	WriteJSON(w, status, map[string]string{"error": reason})
}
