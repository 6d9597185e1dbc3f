// Package handlers implements the REST surface: registration, sessions,
// user and group listings, and history retrieval. Live messaging lives in
// internal/ws; these endpoints are plain reads and writes against the store.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/averho/banter/internal/store"
)

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// storeStatus maps a store failure to an HTTP status.
func storeStatus(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
