package api

import (
	"net/http"

	"github.com/ayusman/kuchipudi/internal/store"
)

// StatsHandler exposes row counts from the store for diagnostic consumers
// such as a settings page or the system tray.
type StatsHandler struct {
	store *store.Store
}

// NewStatsHandler creates a StatsHandler backed by the given store.
func NewStatsHandler(s *store.Store) *StatsHandler {
	return &StatsHandler{store: s}
}

func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats, err := h.store.Stats()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to gather stats")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}
