package web

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// queryLimit reads the "limit" query parameter, falling back to def and
// capping at max
func queryLimit(r *http.Request, def, max int) (int, bool) {

	s := r.URL.Query().Get("limit")

	if s == "" {
		return def, true
	}

	n, err := strconv.Atoi(s)

	if err != nil || n < 1 {
		return 0, false
	}

	if n > max {
		n = max
	}

	return n, true
}
