package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/roadmaphq/triage/internal/models"
)

// topIdeasLimit caps the top-ideas list in the insights report.
const topIdeasLimit = 5

// FeedbackReader reads the full feedback corpus for roll-ups.
type FeedbackReader interface {
	ListAll(ctx context.Context) ([]models.FeedbackItem, error)
}

// IdeaReader reads the full idea corpus for roll-ups.
type IdeaReader interface {
	ListAll(ctx context.Context) ([]models.Idea, error)
}

// LinkedFeedbackReader reads link rows and linked feedback.
type LinkedFeedbackReader interface {
	ListAll(ctx context.Context) ([]models.FeedbackIdeaLink, error)
	ListFeedbackByIdea(ctx context.Context, ideaID uuid.UUID) ([]models.FeedbackItem, error)
}

// IdeaStatusCount is one row of the idea status breakdown.
type IdeaStatusCount struct {
	Status models.IdeaStatus `json:"status"`
	Count  int               `json:"count"`
}

// TopIdea is one entry in the insights top-ideas list.
type TopIdea struct {
	Idea  models.Idea `json:"idea"`
	Score int         `json:"score"`
}

// InsightsReport is the portfolio-level roll-up across all feedback and
// ideas.
type InsightsReport struct {
	TotalFeedback    int               `json:"total_feedback"`
	PercentTriaged   int               `json:"percent_triaged"`
	LinkedARR        float64           `json:"linked_arr"`
	LinkedPotential  float64           `json:"linked_potential_arr"`
	StatusBreakdown  []IdeaStatusCount `json:"status_breakdown"`
	TopIdeas         []TopIdea         `json:"top_ideas"`
}

// InsightsService computes the portfolio roll-up. Pure reads; all arithmetic
// is in the aggregation functions.
type InsightsService struct {
	feedback FeedbackReader
	ideas    IdeaReader
	links    LinkedFeedbackReader
	logger   *slog.Logger
}

// InsightsServiceParams configures InsightsService.
type InsightsServiceParams struct {
	Feedback FeedbackReader
	Ideas    IdeaReader
	Links    LinkedFeedbackReader
	Logger   *slog.Logger
}

// NewInsightsService creates an InsightsService.
func NewInsightsService(p InsightsServiceParams) *InsightsService {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &InsightsService{feedback: p.Feedback, ideas: p.Ideas, links: p.Links, logger: logger}
}

// Report computes the insights roll-up: total and triaged feedback, ARR
// across linked accounts (max per account), idea status breakdown in the
// canonical status order, and the highest-ARR ideas.
func (s *InsightsService) Report(ctx context.Context) (InsightsReport, error) {
	feedback, err := s.feedback.ListAll(ctx)
	if err != nil {
		return InsightsReport{}, fmt.Errorf("list feedback: %w", err)
	}

	ideas, err := s.ideas.ListAll(ctx)
	if err != nil {
		return InsightsReport{}, fmt.Errorf("list ideas: %w", err)
	}

	links, err := s.links.ListAll(ctx)
	if err != nil {
		return InsightsReport{}, fmt.Errorf("list links: %w", err)
	}

	linkedIDs := make(map[uuid.UUID]struct{}, len(links))
	for _, l := range links {
		linkedIDs[l.FeedbackID] = struct{}{}
	}

	linked := make([]models.FeedbackItem, 0, len(linkedIDs))

	for i := range feedback {
		if _, ok := linkedIDs[feedback[i].ID]; ok {
			linked = append(linked, feedback[i])
		}
	}

	linkedARR, _ := DedupedARR(linked)

	report := InsightsReport{
		TotalFeedback:   len(feedback),
		PercentTriaged:  PercentTriaged(feedback),
		LinkedARR:       linkedARR,
		LinkedPotential: DedupedPotentialARR(linked),
		StatusBreakdown: statusBreakdown(ideas),
		TopIdeas:        topIdeas(ideas),
	}

	return report, nil
}

func statusBreakdown(ideas []models.Idea) []IdeaStatusCount {
	counts := make(map[models.IdeaStatus]int, len(models.IdeaStatusOrder))
	for i := range ideas {
		counts[ideas[i].Status]++
	}

	breakdown := make([]IdeaStatusCount, 0, len(models.IdeaStatusOrder))
	for _, status := range models.IdeaStatusOrder {
		breakdown = append(breakdown, IdeaStatusCount{Status: status, Count: counts[status]})
	}

	return breakdown
}

func topIdeas(ideas []models.Idea) []TopIdea {
	sorted := make([]models.Idea, len(ideas))
	copy(sorted, ideas)

	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].TotalARR > sorted[j].TotalARR })

	if len(sorted) > topIdeasLimit {
		sorted = sorted[:topIdeasLimit]
	}

	top := make([]TopIdea, 0, len(sorted))
	for _, idea := range sorted {
		top = append(top, TopIdea{
			Idea:  idea,
			Score: IdeaScore(idea.FeedbackCount, idea.TotalARR, idea.CustomerCount),
		})
	}

	return top
}
