package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/roadmaphq/triage/internal/api/response"
	"github.com/roadmaphq/triage/internal/api/validation"
	"github.com/roadmaphq/triage/internal/models"
)

// RecordCreator creates feedback items and ideas and schedules their
// embedding jobs.
type RecordCreator interface {
	CreateFeedback(ctx context.Context, f *models.FeedbackItem) (*models.FeedbackItem, error)
	CreateIdea(ctx context.Context, idea *models.Idea) (*models.Idea, error)
}

// RecordsHandler exposes feedback and idea creation.
type RecordsHandler struct {
	records RecordCreator
}

// NewRecordsHandler creates a new records handler.
func NewRecordsHandler(records RecordCreator) *RecordsHandler {
	return &RecordsHandler{records: records}
}

// CreateFeedbackRequest is the body for POST /v1/feedback.
type CreateFeedbackRequest struct {
	Title          *string  `json:"title" validate:"omitempty,max=500,no_null_bytes"`
	Description    string   `json:"description" validate:"required,max=10000,no_null_bytes"`
	AccountName    *string  `json:"account_name" validate:"omitempty,max=500,no_null_bytes"`
	AccountSegment *string  `json:"account_segment" validate:"omitempty,max=100,no_null_bytes"`
	AccountStatus  *string  `json:"account_status" validate:"omitempty,max=100,no_null_bytes"`
	AccountARR     *float64 `json:"account_arr" validate:"omitempty,gte=0"`
	PotentialARR   *float64 `json:"potential_arr" validate:"omitempty,gte=0"`
	Importance     string   `json:"importance" validate:"omitempty,oneof=High Medium Low"`
}

// CreateFeedback handles POST /v1/feedback.
func (h *RecordsHandler) CreateFeedback(w http.ResponseWriter, r *http.Request) {
	var req CreateFeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.RespondBadRequest(w, "invalid request body")

		return
	}

	if err := validation.ValidateStruct(&req); err != nil {
		validation.RespondValidationError(w, err)

		return
	}

	item := &models.FeedbackItem{
		Title:          req.Title,
		Description:    req.Description,
		AccountName:    req.AccountName,
		AccountSegment: req.AccountSegment,
		AccountStatus:  req.AccountStatus,
		AccountARR:     req.AccountARR,
		PotentialARR:   req.PotentialARR,
		Importance:     models.Importance(req.Importance),
	}

	created, err := h.records.CreateFeedback(r.Context(), item)
	if err != nil {
		response.RespondInternalServerError(w, "failed to create feedback item")

		return
	}

	response.RespondJSON(w, http.StatusCreated, created)
}

// CreateIdeaRequest is the body for POST /v1/ideas.
type CreateIdeaRequest struct {
	Title       string `json:"title" validate:"required,max=500,no_null_bytes"`
	Description string `json:"description" validate:"omitempty,max=10000,no_null_bytes"`
	Status      string `json:"status" validate:"omitempty,oneof=backlog under_consideration planned in_progress shipped wont_do"`
}

// CreateIdea handles POST /v1/ideas.
func (h *RecordsHandler) CreateIdea(w http.ResponseWriter, r *http.Request) {
	var req CreateIdeaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.RespondBadRequest(w, "invalid request body")

		return
	}

	if err := validation.ValidateStruct(&req); err != nil {
		validation.RespondValidationError(w, err)

		return
	}

	idea := &models.Idea{
		Title:       req.Title,
		Description: req.Description,
		Status:      models.IdeaStatus(req.Status),
	}

	created, err := h.records.CreateIdea(r.Context(), idea)
	if err != nil {
		response.RespondInternalServerError(w, "failed to create idea")

		return
	}

	response.RespondJSON(w, http.StatusCreated, created)
}
