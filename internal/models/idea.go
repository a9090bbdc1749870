package models

import (
	"time"

	"github.com/google/uuid"
)

// IdeaStatus is the roadmap state of an idea. The set is fixed and ordered;
// IdeaStatusOrder defines the display order used by status breakdowns.
type IdeaStatus string

const (
	IdeaStatusBacklog            IdeaStatus = "backlog"
	IdeaStatusUnderConsideration IdeaStatus = "under_consideration"
	IdeaStatusPlanned            IdeaStatus = "planned"
	IdeaStatusInProgress         IdeaStatus = "in_progress"
	IdeaStatusShipped            IdeaStatus = "shipped"
	IdeaStatusWontDo             IdeaStatus = "wont_do"
)

// IdeaStatusOrder is the canonical ordering of idea statuses.
var IdeaStatusOrder = []IdeaStatus{
	IdeaStatusBacklog,
	IdeaStatusUnderConsideration,
	IdeaStatusPlanned,
	IdeaStatusInProgress,
	IdeaStatusShipped,
	IdeaStatusWontDo,
}

// Idea is a product hypothesis that feedback items provide evidence for.
// FeedbackCount, TotalARR, and CustomerCount are cached roll-ups; the link
// table is the source of truth and they are recomputed from it.
type Idea struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      IdeaStatus `json:"status"`

	// Embedding is generated at creation time from title and description.
	Embedding []float32 `json:"-"`

	Summary            *string    `json:"summary,omitempty"`
	SummaryGeneratedAt *time.Time `json:"summary_generated_at,omitempty"`

	FeedbackCount int     `json:"feedback_count"`
	TotalARR      float64 `json:"total_arr"`
	CustomerCount int     `json:"customer_count"`

	CreatedAt time.Time `json:"created_at"`
}

// IdeaWithScore is an idea paired with a similarity score (0..1) from a
// vector search.
type IdeaWithScore struct {
	Idea  Idea    `json:"idea"`
	Score float64 `json:"score"`
}

// FeedbackIdeaLink joins a feedback item to an idea it supports. At most one
// link per (feedback, idea) pair is meaningful; inserts are idempotent and
// duplicates never double-count in aggregation.
type FeedbackIdeaLink struct {
	FeedbackID uuid.UUID `json:"feedback_id"`
	IdeaID     uuid.UUID `json:"idea_id"`
	Confidence *float64  `json:"confidence,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
