package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/roadmaphq/triage/internal/api/response"
	"github.com/roadmaphq/triage/internal/models"
	"github.com/roadmaphq/triage/internal/repository"
	"github.com/roadmaphq/triage/internal/service"
)

// MatcherService runs the two-stage matching pipeline.
type MatcherService interface {
	FindEvidenceForIdea(ctx context.Context, idea *models.Idea) ([]models.EvidenceMatch, error)
	SuggestIdeasForFeedback(ctx context.Context, item *models.FeedbackItem) (models.IdeaSuggestions, error)
}

// SummarizerService produces idea summaries from linked feedback.
type SummarizerService interface {
	Summarize(ctx context.Context, linked []models.FeedbackItem) (string, error)
}

// IdeaStore is the idea access the matching handler needs.
type IdeaStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Idea, error)
	SetSummary(ctx context.Context, id uuid.UUID, summary string, generatedAt time.Time) error
}

// FeedbackStore is the feedback access the matching handler needs.
type FeedbackStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.FeedbackItem, error)
}

// LinkedFeedbackStore lists feedback linked to an idea.
type LinkedFeedbackStore interface {
	ListFeedbackByIdea(ctx context.Context, ideaID uuid.UUID) ([]models.FeedbackItem, error)
}

// MatchingHandler exposes evidence finding, idea suggestion, and idea
// summarization.
type MatchingHandler struct {
	matcher    MatcherService
	summarizer SummarizerService
	ideas      IdeaStore
	feedback   FeedbackStore
	links      LinkedFeedbackStore
}

// NewMatchingHandler creates a new matching handler.
func NewMatchingHandler(
	matcher MatcherService,
	summarizer SummarizerService,
	ideas IdeaStore,
	feedback FeedbackStore,
	links LinkedFeedbackStore,
) *MatchingHandler {
	return &MatchingHandler{matcher: matcher, summarizer: summarizer, ideas: ideas, feedback: feedback, links: links}
}

// EvidenceResponse is the body for POST /v1/ideas/{id}/evidence.
// AIAvailable false is a normal state, not an error: it means no provider is
// configured and the caller should present "AI unavailable" calmly.
type EvidenceResponse struct {
	Matches     []models.EvidenceMatch `json:"matches"`
	AIAvailable bool                   `json:"ai_available"`
}

// FindEvidence handles POST /v1/ideas/{id}/evidence.
func (h *MatchingHandler) FindEvidence(w http.ResponseWriter, r *http.Request) {
	ideaID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	idea, err := h.ideas.GetByID(r.Context(), ideaID)
	if err != nil {
		if errors.Is(err, repository.ErrIdeaNotFound) {
			response.RespondNotFound(w, "idea not found")

			return
		}

		response.RespondInternalServerError(w, "failed to load idea")

		return
	}

	matches, err := h.matcher.FindEvidenceForIdea(r.Context(), idea)
	if err != nil {
		if errors.Is(err, service.ErrAIUnavailable) {
			response.RespondJSON(w, http.StatusOK, EvidenceResponse{Matches: []models.EvidenceMatch{}})

			return
		}

		response.RespondInternalServerError(w, "evidence search failed")

		return
	}

	if matches == nil {
		matches = []models.EvidenceMatch{}
	}

	response.RespondJSON(w, http.StatusOK, EvidenceResponse{Matches: matches, AIAvailable: true})
}

// SuggestionsResponse is the body for POST /v1/feedback/{id}/suggest-ideas.
type SuggestionsResponse struct {
	Matches          []models.IdeaMatch       `json:"matches"`
	SuggestedNewIdea *models.SuggestedNewIdea `json:"suggested_new_idea,omitempty"`
	AIAvailable      bool                     `json:"ai_available"`
}

// SuggestIdeas handles POST /v1/feedback/{id}/suggest-ideas.
func (h *MatchingHandler) SuggestIdeas(w http.ResponseWriter, r *http.Request) {
	feedbackID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	item, err := h.feedback.GetByID(r.Context(), feedbackID)
	if err != nil {
		if errors.Is(err, repository.ErrFeedbackNotFound) {
			response.RespondNotFound(w, "feedback item not found")

			return
		}

		response.RespondInternalServerError(w, "failed to load feedback item")

		return
	}

	suggestions, err := h.matcher.SuggestIdeasForFeedback(r.Context(), item)
	if err != nil {
		if errors.Is(err, service.ErrAIUnavailable) {
			response.RespondJSON(w, http.StatusOK, SuggestionsResponse{Matches: []models.IdeaMatch{}})

			return
		}

		response.RespondInternalServerError(w, "idea suggestion failed")

		return
	}

	matches := suggestions.Matches
	if matches == nil {
		matches = []models.IdeaMatch{}
	}

	response.RespondJSON(w, http.StatusOK, SuggestionsResponse{
		Matches:          matches,
		SuggestedNewIdea: suggestions.SuggestedNewIdea,
		AIAvailable:      true,
	})
}

// SummaryResponse is the body for POST /v1/ideas/{id}/summary.
type SummaryResponse struct {
	Summary     string    `json:"summary"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Summarize handles POST /v1/ideas/{id}/summary: regenerates the idea's
// summary from currently linked feedback and persists it.
func (h *MatchingHandler) Summarize(w http.ResponseWriter, r *http.Request) {
	ideaID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	if _, err := h.ideas.GetByID(r.Context(), ideaID); err != nil {
		if errors.Is(err, repository.ErrIdeaNotFound) {
			response.RespondNotFound(w, "idea not found")

			return
		}

		response.RespondInternalServerError(w, "failed to load idea")

		return
	}

	linked, err := h.links.ListFeedbackByIdea(r.Context(), ideaID)
	if err != nil {
		response.RespondInternalServerError(w, "failed to load linked feedback")

		return
	}

	summary, err := h.summarizer.Summarize(r.Context(), linked)
	if err != nil {
		response.RespondInternalServerError(w, "summary generation failed")

		return
	}

	generatedAt := time.Now().UTC()

	if summary != "" {
		if err := h.ideas.SetSummary(r.Context(), ideaID, summary, generatedAt); err != nil {
			response.RespondInternalServerError(w, "failed to store summary")

			return
		}
	}

	response.RespondJSON(w, http.StatusOK, SummaryResponse{Summary: summary, GeneratedAt: generatedAt})
}

// pathUUID parses a UUID path parameter, writing a 400 on failure.
func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		response.RespondBadRequest(w, name+" must be a valid UUID")

		return uuid.Nil, false
	}

	return id, true
}
