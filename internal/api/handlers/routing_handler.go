package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/roadmaphq/triage/internal/api/response"
	"github.com/roadmaphq/triage/internal/models"
	"github.com/roadmaphq/triage/internal/repository"
	"github.com/roadmaphq/triage/internal/service"
)

const maxRoutingBatch = 200

// OwnerRoutingService matches feedback items to product areas.
type OwnerRoutingService interface {
	Route(
		ctx context.Context,
		items []models.FeedbackItem,
		areas []models.ProductArea,
		progress service.OwnerProgressFunc,
	) ([]models.OwnerSuggestion, error)
}

// ProductAreaLister lists all product areas.
type ProductAreaLister interface {
	List(ctx context.Context) ([]models.ProductArea, error)
}

// SuggestionWriter persists owner suggestions on feedback rows.
type SuggestionWriter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.FeedbackItem, error)
	SetOwnerSuggestion(ctx context.Context, id uuid.UUID, productAreaID, ownerID *uuid.UUID, confidence float64) error
}

// RoutingHandler runs batch owner routing for feedback items.
type RoutingHandler struct {
	router   OwnerRoutingService
	areas    ProductAreaLister
	feedback SuggestionWriter
}

// NewRoutingHandler creates a new routing handler.
func NewRoutingHandler(router OwnerRoutingService, areas ProductAreaLister, feedback SuggestionWriter) *RoutingHandler {
	return &RoutingHandler{router: router, areas: areas, feedback: feedback}
}

// RoutingRequest is the body for POST /v1/feedback/owner-suggestions.
type RoutingRequest struct {
	FeedbackIDs []uuid.UUID `json:"feedback_ids"`
}

// RoutingResponse carries one suggestion per requested feedback item, in
// request order.
type RoutingResponse struct {
	Suggestions []models.OwnerSuggestion `json:"suggestions"`
}

// SuggestOwners handles POST /v1/feedback/owner-suggestions. Suggestions that
// clear the display threshold are persisted on the feedback rows; the rest are
// returned but not stored.
func (h *RoutingHandler) SuggestOwners(w http.ResponseWriter, r *http.Request) {
	var req RoutingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.RespondBadRequest(w, "invalid request body")

		return
	}

	if len(req.FeedbackIDs) == 0 {
		response.RespondUnprocessableEntity(w, "feedback_ids is required")

		return
	}

	if len(req.FeedbackIDs) > maxRoutingBatch {
		response.RespondUnprocessableEntity(w, "too many feedback_ids in one request")

		return
	}

	items := make([]models.FeedbackItem, 0, len(req.FeedbackIDs))

	for _, id := range req.FeedbackIDs {
		item, err := h.feedback.GetByID(r.Context(), id)
		if err != nil {
			if errors.Is(err, repository.ErrFeedbackNotFound) {
				response.RespondNotFound(w, "feedback item "+id.String()+" not found")

				return
			}

			response.RespondInternalServerError(w, "failed to load feedback items")

			return
		}

		items = append(items, *item)
	}

	areas, err := h.areas.List(r.Context())
	if err != nil {
		response.RespondInternalServerError(w, "failed to load product areas")

		return
	}

	suggestions, err := h.router.Route(r.Context(), items, areas, nil)
	if err != nil {
		response.RespondInternalServerError(w, "owner routing failed")

		return
	}

	for _, s := range suggestions {
		if !service.Displayable(s.Confidence) || s.ProductAreaID == nil {
			continue
		}

		err := h.feedback.SetOwnerSuggestion(r.Context(), s.FeedbackID, s.ProductAreaID, s.OwnerID, s.Confidence)
		if err != nil {
			response.RespondInternalServerError(w, "failed to store owner suggestions")

			return
		}
	}

	response.RespondJSON(w, http.StatusOK, RoutingResponse{Suggestions: suggestions})
}
