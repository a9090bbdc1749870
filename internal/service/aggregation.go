package service

import (
	"math"

	"github.com/roadmaphq/triage/internal/models"
)

// Confidence policy thresholds shared across the matching and routing
// surfaces. These are product decisions multiple callers depend on, so they
// live here as named constants.
const (
	// ConfidenceDisplayThreshold is the minimum confidence at which a
	// suggestion is shown at all (owner-suggestion badges and the like).
	ConfidenceDisplayThreshold = 0.5
	// ConfidenceMatchFloor is the hard floor for any match the pipeline
	// returns. The rubric calls everything below this "not a real match".
	ConfidenceMatchFloor = 0.6
	// ConfidenceAutoAcceptThreshold marks a suggestion safe to pre-select
	// in a human-review flow.
	ConfidenceAutoAcceptThreshold = 0.8
)

// Idea score weights: 15 points per linked request, one point per $10,000
// ARR, 20 points per distinct customer.
const (
	scoreWeightFeedback = 15
	scoreWeightARR      = 0.0001
	scoreWeightCustomer = 20
)

// Displayable reports whether a suggestion clears the display threshold.
func Displayable(confidence float64) bool {
	return confidence >= ConfidenceDisplayThreshold
}

// AutoAcceptable reports whether a suggestion clears the auto-accept
// threshold.
func AutoAcceptable(confidence float64) bool {
	return confidence >= ConfidenceAutoAcceptThreshold
}

// IdeaScore is the prioritization score for an idea given its rolled-up
// metrics, rounded to the nearest integer.
func IdeaScore(feedbackCount int, totalARR float64, customerCount int) int {
	score := float64(feedbackCount)*scoreWeightFeedback +
		totalARR*scoreWeightARR +
		float64(customerCount)*scoreWeightCustomer

	return int(math.Round(score))
}

// DedupedARR rolls up ARR across feedback items, grouping by account name
// and taking the maximum ARR seen per account so one noisy account never
// inflates the total. Items without an account name contribute nothing here;
// they still count toward plain request totals.
func DedupedARR(items []models.FeedbackItem) (totalARR float64, customerCount int) {
	maxByAccount := make(map[string]float64)

	for i := range items {
		item := &items[i]
		if item.AccountName == nil || *item.AccountName == "" {
			continue
		}

		maxByAccount[*item.AccountName] = math.Max(maxByAccount[*item.AccountName], item.ARR())
	}

	for _, arr := range maxByAccount {
		totalARR += arr
	}

	return totalARR, len(maxByAccount)
}

// DedupedPotentialARR rolls up potential ARR with the same per-account
// dedupe as DedupedARR. The potential value is taken from the row carrying
// the account's maximum ARR, not maximized independently.
func DedupedPotentialARR(items []models.FeedbackItem) float64 {
	type accountRow struct {
		arr       float64
		potential float64
	}

	rowByAccount := make(map[string]accountRow)

	for i := range items {
		item := &items[i]
		if item.AccountName == nil || *item.AccountName == "" {
			continue
		}

		existing, seen := rowByAccount[*item.AccountName]
		if !seen || item.ARR() > existing.arr {
			rowByAccount[*item.AccountName] = accountRow{
				arr:       item.ARR(),
				potential: item.PotentialARRValue(),
			}
		}
	}

	var total float64
	for _, row := range rowByAccount {
		total += row.potential
	}

	return total
}

// IdeaMetrics are the derived roll-up values for one idea, recomputed from
// its linked feedback.
type IdeaMetrics struct {
	FeedbackCount int     `json:"feedback_count"`
	TotalARR      float64 `json:"total_arr"`
	CustomerCount int     `json:"customer_count"`
	Score         int     `json:"score"`
}

// ComputeIdeaMetrics derives an idea's metrics from its currently linked
// feedback.
func ComputeIdeaMetrics(linked []models.FeedbackItem) IdeaMetrics {
	totalARR, customers := DedupedARR(linked)

	return IdeaMetrics{
		FeedbackCount: len(linked),
		TotalARR:      totalARR,
		CustomerCount: customers,
		Score:         IdeaScore(len(linked), totalARR, customers),
	}
}

// PercentTriaged is the share of feedback items no longer in the "new"
// status, as a whole percentage. Legacy "linked" rows count as triaged.
func PercentTriaged(items []models.FeedbackItem) int {
	if len(items) == 0 {
		return 0
	}

	triaged := 0

	for i := range items {
		if items[i].TriageStatus.Triaged() {
			triaged++
		}
	}

	return int(math.Round(float64(triaged) / float64(len(items)) * 100))
}
