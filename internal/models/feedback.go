package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TriageStatus is the workflow state of a feedback item.
// Transitions are monotonic: new -> triaged or new -> archived.
type TriageStatus string

const (
	TriageStatusNew      TriageStatus = "new"
	TriageStatusTriaged  TriageStatus = "triaged"
	TriageStatusArchived TriageStatus = "archived"

	// triageStatusLinked is a legacy value still present in older rows.
	// It is collapsed into "triaged" at the data-access boundary and must
	// never surface as a distinct status.
	triageStatusLinked = "linked"
)

// NormalizeTriageStatus maps legacy status values onto the canonical set.
// Unknown values are returned unchanged.
func NormalizeTriageStatus(s string) TriageStatus {
	if strings.EqualFold(s, triageStatusLinked) {
		return TriageStatusTriaged
	}

	return TriageStatus(s)
}

// Triaged reports whether the item has left the "new" bucket. Archived items
// count as handled for triage-progress purposes.
func (s TriageStatus) Triaged() bool {
	return s != TriageStatusNew && s != ""
}

// Importance is the ordinal business importance of a feedback item.
type Importance string

const (
	ImportanceHigh   Importance = "High"
	ImportanceMedium Importance = "Medium"
	ImportanceLow    Importance = "Low"
)

// FeedbackItem is a single customer-reported note needing triage.
// Business fields are immutable after creation; triage fields (status,
// assignment, suggestions) and the embedding are populated later.
type FeedbackItem struct {
	ID          uuid.UUID `json:"id"`
	Title       *string   `json:"title,omitempty"`
	Description string    `json:"description"`

	// Embedding is populated asynchronously post-creation; nil until then.
	Embedding []float32 `json:"-"`

	AccountName    *string  `json:"account_name,omitempty"`
	AccountSegment *string  `json:"account_segment,omitempty"`
	AccountStatus  *string  `json:"account_status,omitempty"`
	AccountARR     *float64 `json:"account_arr,omitempty"`
	PotentialARR   *float64 `json:"potential_arr,omitempty"`

	Importance   Importance   `json:"importance,omitempty"`
	TriageStatus TriageStatus `json:"triage_status"`

	AssignedTo             *uuid.UUID `json:"assigned_to,omitempty"`
	SuggestedOwnerID       *uuid.UUID `json:"suggested_owner_id,omitempty"`
	SuggestionConfidence   *float64   `json:"suggestion_confidence,omitempty"`
	ProductAreaID          *uuid.UUID `json:"product_area_id,omitempty"`
	SuggestedProductAreaID *uuid.UUID `json:"suggested_product_area_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// ARR returns the account ARR, treating an absent value as 0.
func (f *FeedbackItem) ARR() float64 {
	if f.AccountARR == nil {
		return 0
	}

	return *f.AccountARR
}

// PotentialARRValue returns the potential ARR, treating an absent value as 0.
func (f *FeedbackItem) PotentialARRValue() float64 {
	if f.PotentialARR == nil {
		return 0
	}

	return *f.PotentialARR
}

// FeedbackWithScore is a feedback item paired with a similarity score (0..1)
// from a vector search.
type FeedbackWithScore struct {
	Feedback FeedbackItem `json:"feedback"`
	Score    float64      `json:"score"`
}
