package models

import (
	"github.com/google/uuid"
)

// EvidenceMatch is a transient match between an idea and a candidate feedback
// item. Produced by the matching pipeline and consumed immediately by the
// caller; it is only persisted when materialized as a FeedbackIdeaLink.
type EvidenceMatch struct {
	FeedbackID uuid.UUID    `json:"feedback_id"`
	Confidence float64      `json:"confidence"`
	Reason     string       `json:"reason"`
	Feedback   FeedbackItem `json:"feedback"`
}

// IdeaMatch is a transient match between a feedback item and a candidate idea.
type IdeaMatch struct {
	IdeaID     uuid.UUID `json:"idea_id"`
	Confidence float64   `json:"confidence"`
	Reason     string    `json:"reason"`
	Idea       Idea      `json:"idea"`
}

// SuggestedNewIdea is the "should we create a new idea" hint attached to an
// idea-suggestion result when no existing idea is a confident match.
type SuggestedNewIdea struct {
	ShouldCreate bool   `json:"should_create"`
	Title        string `json:"title"`
	Description  string `json:"description"`
}

// IdeaSuggestions is the result of matching one feedback item against the
// idea corpus.
type IdeaSuggestions struct {
	Matches          []IdeaMatch       `json:"matches"`
	SuggestedNewIdea *SuggestedNewIdea `json:"suggested_new_idea,omitempty"`
}

// OwnerSuggestion is the routing result for one feedback item. Every input
// item produces exactly one suggestion; when no area clears the confidence
// floor, ProductAreaID and OwnerID are nil and Reasoning explains why.
type OwnerSuggestion struct {
	FeedbackID      uuid.UUID  `json:"feedback_id"`
	ProductAreaID   *uuid.UUID `json:"product_area_id"`
	ProductAreaName string     `json:"product_area_name,omitempty"`
	OwnerID         *uuid.UUID `json:"owner_id"`
	Confidence      float64    `json:"confidence"`
	Reasoning       string     `json:"reasoning"`
}
