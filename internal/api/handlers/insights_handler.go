package handlers

import (
	"context"
	"net/http"

	"github.com/roadmaphq/triage/internal/api/response"
	"github.com/roadmaphq/triage/internal/service"
)

// InsightsReporter computes the portfolio roll-up.
type InsightsReporter interface {
	Report(ctx context.Context) (service.InsightsReport, error)
}

// InsightsHandler serves the portfolio insights report.
type InsightsHandler struct {
	insights InsightsReporter
}

// NewInsightsHandler creates a new insights handler.
func NewInsightsHandler(insights InsightsReporter) *InsightsHandler {
	return &InsightsHandler{insights: insights}
}

// Report handles GET /v1/insights.
func (h *InsightsHandler) Report(w http.ResponseWriter, r *http.Request) {
	report, err := h.insights.Report(r.Context())
	if err != nil {
		response.RespondInternalServerError(w, "failed to compute insights")

		return
	}

	response.RespondJSON(w, http.StatusOK, report)
}
