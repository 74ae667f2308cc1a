package handlers

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/strengthworks/storefront-api/internal/platform/httpx"
)

// HealthHandlers serves liveness and readiness probes.
type HealthHandlers struct {
	started time.Time
	ready   atomic.Bool
}

// NewHealthHandlers constructs probe handlers; the service starts not ready.
func NewHealthHandlers() *HealthHandlers {
	return &HealthHandlers{started: time.Now()}
}

// SetReady flips the readiness state once dependencies are wired.
func (h *HealthHandlers) SetReady(ready bool) {
	h.ready.Store(ready)
}

// Healthz reports liveness.
func (h *HealthHandlers) Healthz(w http.ResponseWriter, _ *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"uptime":    time.Since(h.started).String(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Readyz reports readiness.
func (h *HealthHandlers) Readyz(w http.ResponseWriter, _ *http.Request) {
	if !h.ready.Load() {
		httpx.WriteJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "starting"})
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}
