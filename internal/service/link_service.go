package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/roadmaphq/triage/internal/models"
)

// LinkWriter creates and removes feedback-idea links. Upsert is idempotent:
// re-linking an existing pair is a no-op.
type LinkWriter interface {
	Upsert(ctx context.Context, feedbackID, ideaID uuid.UUID, confidence *float64) error
	Delete(ctx context.Context, feedbackID, ideaID uuid.UUID) error
	ListFeedbackByIdea(ctx context.Context, ideaID uuid.UUID) ([]models.FeedbackItem, error)
}

// IdeaMetricsStore persists recomputed idea roll-up columns.
type IdeaMetricsStore interface {
	UpdateDerivedMetrics(ctx context.Context, id uuid.UUID, feedbackCount int, totalARR float64, customerCount int) error
}

// FeedbackStatusStore moves feedback items between triage statuses.
type FeedbackStatusStore interface {
	SetTriageStatus(ctx context.Context, id uuid.UUID, status models.TriageStatus) error
}

// LinkService materializes accepted matches as links and keeps the idea
// roll-up columns in sync with the link table, which stays the source of
// truth.
type LinkService struct {
	links    LinkWriter
	ideas    IdeaMetricsStore
	feedback FeedbackStatusStore
	logger   *slog.Logger
}

// LinkServiceParams configures LinkService.
type LinkServiceParams struct {
	Links    LinkWriter
	Ideas    IdeaMetricsStore
	Feedback FeedbackStatusStore
	Logger   *slog.Logger
}

// NewLinkService creates a LinkService.
func NewLinkService(p LinkServiceParams) *LinkService {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &LinkService{links: p.Links, ideas: p.Ideas, feedback: p.Feedback, logger: logger}
}

// Accept links a feedback item to an idea, marks the item triaged, and
// recomputes the idea's metrics. Accepting the same suggestion twice never
// double-counts.
func (s *LinkService) Accept(
	ctx context.Context, feedbackID, ideaID uuid.UUID, confidence *float64,
) (IdeaMetrics, error) {
	if err := s.links.Upsert(ctx, feedbackID, ideaID, confidence); err != nil {
		return IdeaMetrics{}, fmt.Errorf("link feedback to idea: %w", err)
	}

	if err := s.feedback.SetTriageStatus(ctx, feedbackID, models.TriageStatusTriaged); err != nil {
		return IdeaMetrics{}, fmt.Errorf("mark feedback triaged: %w", err)
	}

	metrics, err := s.Recompute(ctx, ideaID)
	if err != nil {
		return IdeaMetrics{}, err
	}

	s.logger.Info("link accepted",
		"feedbackId", feedbackID.String(), "ideaId", ideaID.String(), "feedbackCount", metrics.FeedbackCount)

	return metrics, nil
}

// Unlink removes a link and recomputes the idea's metrics.
func (s *LinkService) Unlink(ctx context.Context, feedbackID, ideaID uuid.UUID) (IdeaMetrics, error) {
	if err := s.links.Delete(ctx, feedbackID, ideaID); err != nil {
		return IdeaMetrics{}, fmt.Errorf("unlink feedback from idea: %w", err)
	}

	return s.Recompute(ctx, ideaID)
}

// Recompute rebuilds an idea's cached roll-up columns from its current
// links.
func (s *LinkService) Recompute(ctx context.Context, ideaID uuid.UUID) (IdeaMetrics, error) {
	linked, err := s.links.ListFeedbackByIdea(ctx, ideaID)
	if err != nil {
		return IdeaMetrics{}, fmt.Errorf("list linked feedback: %w", err)
	}

	metrics := ComputeIdeaMetrics(linked)

	err = s.ideas.UpdateDerivedMetrics(ctx, ideaID, metrics.FeedbackCount, metrics.TotalARR, metrics.CustomerCount)
	if err != nil {
		return IdeaMetrics{}, fmt.Errorf("update idea metrics: %w", err)
	}

	return metrics, nil
}
