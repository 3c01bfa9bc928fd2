package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/ayusman/kuchipudi/internal/config"
)

// ConfigHandler exposes the gesture pipeline's tunable parameters: GET
// returns the configuration currently in effect; PUT accepts a full
// replacement and persists it to savePath for the next start. The running
// pipeline is never hot-reloaded, so a PUT takes effect only after a
// restart.
type ConfigHandler struct {
	mu       sync.RWMutex
	current  *config.Config
	savePath string
}

// NewConfigHandler creates a ConfigHandler seeded with cfg. If savePath is
// non-empty, PUT requests persist the updated configuration there.
func NewConfigHandler(cfg *config.Config, savePath string) *ConfigHandler {
	return &ConfigHandler{current: cfg, savePath: savePath}
}

func (h *ConfigHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.get(w, r)
	case http.MethodPut:
		h.put(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *ConfigHandler) get(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	writeJSON(w, http.StatusOK, h.current)
}

func (h *ConfigHandler) put(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	updated := *h.current
	if err := json.NewDecoder(r.Body).Decode(&updated); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if err := updated.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if h.savePath != "" {
		if err := updated.Save(h.savePath); err != nil {
			log.Printf("api: failed to persist config to %s: %v", h.savePath, err)
			writeError(w, http.StatusInternalServerError, "Failed to persist configuration")
			return
		}
	}

	h.current = &updated
	writeJSON(w, http.StatusOK, h.current)
}
