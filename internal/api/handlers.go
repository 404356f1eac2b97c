package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"grid-arena/internal/registry"
)

// REST handlers are read-only views over the registry. All mutation goes
// through the WebSocket command protocol.

func (h *routerHandlers) handleListSessions(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.registry.List()
	if err != nil {
		if errors.Is(err, registry.ErrNoGames) {
			writeJSON(w, map[string]interface{}{"list": []registry.Summary{}})
			return
		}
		writeError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, map[string]interface{}{"list": summaries})
}

func (h *routerHandlers) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	s, err := h.registry.Find(id)
	if err != nil {
		writeError(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]interface{}{
		"session":     s.Snapshot(),
		"subscribers": h.hub.SubscriberCount(id),
	})
}

func (h *routerHandlers) handleGetStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"sessions": h.registry.Count(),
	})
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
