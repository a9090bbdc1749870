package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/roadmaphq/triage/internal/api/response"
	"github.com/roadmaphq/triage/internal/service"
)

// LinkManager maintains feedback-idea links and the derived idea metrics.
type LinkManager interface {
	Accept(ctx context.Context, feedbackID, ideaID uuid.UUID, confidence *float64) (service.IdeaMetrics, error)
	Unlink(ctx context.Context, feedbackID, ideaID uuid.UUID) (service.IdeaMetrics, error)
}

// LinksHandler accepts and removes feedback-idea links.
type LinksHandler struct {
	links LinkManager
}

// NewLinksHandler creates a new links handler.
func NewLinksHandler(links LinkManager) *LinksHandler {
	return &LinksHandler{links: links}
}

// LinkRequest is the body for POST and DELETE /v1/links.
type LinkRequest struct {
	FeedbackID uuid.UUID `json:"feedback_id"`
	IdeaID     uuid.UUID `json:"idea_id"`
	Confidence *float64  `json:"confidence,omitempty"`
}

// LinkResponse reports the idea's recomputed metrics after a link change.
type LinkResponse struct {
	FeedbackCount int     `json:"feedback_count"`
	TotalARR      float64 `json:"total_arr"`
	CustomerCount int     `json:"customer_count"`
	Score         int     `json:"score"`
}

// Accept handles POST /v1/links.
func (h *LinksHandler) Accept(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeLinkRequest(w, r)
	if !ok {
		return
	}

	metrics, err := h.links.Accept(r.Context(), req.FeedbackID, req.IdeaID, req.Confidence)
	if err != nil {
		response.RespondInternalServerError(w, "failed to accept link")

		return
	}

	response.RespondJSON(w, http.StatusOK, linkResponse(metrics))
}

// Unlink handles DELETE /v1/links.
func (h *LinksHandler) Unlink(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeLinkRequest(w, r)
	if !ok {
		return
	}

	metrics, err := h.links.Unlink(r.Context(), req.FeedbackID, req.IdeaID)
	if err != nil {
		response.RespondInternalServerError(w, "failed to remove link")

		return
	}

	response.RespondJSON(w, http.StatusOK, linkResponse(metrics))
}

func decodeLinkRequest(w http.ResponseWriter, r *http.Request) (LinkRequest, bool) {
	var req LinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.RespondBadRequest(w, "invalid request body")

		return LinkRequest{}, false
	}

	if req.FeedbackID == uuid.Nil || req.IdeaID == uuid.Nil {
		response.RespondUnprocessableEntity(w, "feedback_id and idea_id are required")

		return LinkRequest{}, false
	}

	return req, true
}

func linkResponse(metrics service.IdeaMetrics) LinkResponse {
	return LinkResponse{
		FeedbackCount: metrics.FeedbackCount,
		TotalARR:      metrics.TotalARR,
		CustomerCount: metrics.CustomerCount,
		Score:         metrics.Score,
	}
}
