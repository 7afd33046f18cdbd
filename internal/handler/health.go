package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/peachytask/peachytask-go/internal/middleware"
)

// Pinger checks store connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports whether the service can reach its store.
type HealthHandler struct {
	store  Pinger
	driver string
}

// NewHealthHandler creates a new HealthHandler. driver names the store
// backend in responses.
func NewHealthHandler(store Pinger, driver string) *HealthHandler {
	return &HealthHandler{store: store, driver: driver}
}

// HandleHealth handles GET /health requests.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		middleware.LoggerFromContext(r.Context()).Warn("health check failed", "store", h.driver, "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "store": h.driver})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "store": h.driver})
}
