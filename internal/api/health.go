package api

import (
	"net/http"

	respond "github.com/matoous/changelog/internal/api/respond"
)

const healthBody = "Alive and well."

// HealthHandler handles health check endpoints
type HealthHandler struct {
	ready func() bool
}

// NewHealthHandler creates a new health handler. ready reports whether
// dependencies are reachable; nil means always ready.
func NewHealthHandler(ready func() bool) *HealthHandler {
	if ready == nil {
		ready = func() bool { return true }
	}
	return &HealthHandler{ready: ready}
}

// CheckHealth handles GET /health. Liveness only: no dependency is consulted.
func (h *HealthHandler) CheckHealth(w http.ResponseWriter, r *http.Request) {
	respond.WriteText(w, http.StatusOK, healthBody)
}

// CheckReady handles GET /ready.
func (h *HealthHandler) CheckReady(w http.ResponseWriter, r *http.Request) {
	if h.ready() {
		respond.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
		return
	}
	respond.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
}
