package handlers

import (
	"context"
	"net/http"

	"github.com/roadmaphq/triage/internal/api/response"
)

// Pinger checks database reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health and readiness checks.
type HealthHandler struct {
	db Pinger
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

// HealthResponse is the body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// Check handles GET /health. It fails when the database is unreachable.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		if err := h.db.Ping(r.Context()); err != nil {
			response.RespondJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "degraded"})

			return
		}
	}

	response.RespondJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}
