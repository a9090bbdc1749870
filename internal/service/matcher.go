package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/roadmaphq/triage/internal/models"
)

// ErrAIUnavailable means no chat provider is configured. Callers present
// this as a normal "AI unavailable" state, not a failure.
var ErrAIUnavailable = errors.New("no AI provider configured")

// FeedbackCandidateStore supplies the raw feedback corpus for the fallback
// path.
type FeedbackCandidateStore interface {
	ListCandidates(ctx context.Context, limit int) ([]models.FeedbackItem, error)
}

// IdeaCandidateStore supplies the raw idea corpus for the fallback path.
type IdeaCandidateStore interface {
	ListCandidates(ctx context.Context, limit int) ([]models.Idea, error)
}

// LinkReader reads existing links so matched-before items are excluded from
// candidate pools.
type LinkReader interface {
	ListLinkedFeedbackIDs(ctx context.Context, ideaID uuid.UUID) ([]uuid.UUID, error)
	ListIdeaIDsForFeedback(ctx context.Context, feedbackID uuid.UUID) ([]uuid.UUID, error)
}

// Matcher is the entry point for matching operations. It runs the two-stage
// pipeline and degrades to the LLM-only fallback when retrieval cannot run
// or finds nothing.
type Matcher struct {
	refiner   *MatchRefiner
	fallback  *FallbackMatcher
	feedback  FeedbackCandidateStore
	ideas     IdeaCandidateStore
	links     LinkReader
	available bool
	logger    *slog.Logger
}

// MatcherParams configures Matcher. Available reports whether a chat
// provider is configured; when false every matching call returns
// ErrAIUnavailable.
type MatcherParams struct {
	Refiner   *MatchRefiner
	Fallback  *FallbackMatcher
	Feedback  FeedbackCandidateStore
	Ideas     IdeaCandidateStore
	Links     LinkReader
	Available bool
	Logger    *slog.Logger
}

// NewMatcher creates a Matcher.
func NewMatcher(p MatcherParams) *Matcher {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Matcher{
		refiner:   p.Refiner,
		fallback:  p.Fallback,
		feedback:  p.Feedback,
		ideas:     p.Ideas,
		links:     p.Links,
		available: p.Available,
		logger:    logger,
	}
}

// FindEvidenceForIdea returns confidence-ranked feedback evidence for the
// idea. Feedback already linked to the idea is excluded before retrieval.
// When embeddings are unavailable or retrieval finds nothing, the LLM-only
// fallback runs over a bounded slice of the raw corpus.
func (m *Matcher) FindEvidenceForIdea(ctx context.Context, idea *models.Idea) ([]models.EvidenceMatch, error) {
	if !m.available {
		return nil, ErrAIUnavailable
	}

	excludeIDs, err := m.links.ListLinkedFeedbackIDs(ctx, idea.ID)
	if err != nil {
		return nil, fmt.Errorf("list linked feedback: %w", err)
	}

	matches, err := m.refiner.FindEvidence(ctx, idea.Title, idea.Description, excludeIDs)
	if err == nil {
		return matches, nil
	}

	if !errors.Is(err, ErrEmbeddingUnavailable) && !errors.Is(err, ErrNoCandidates) {
		return nil, err
	}

	m.logger.Info("matching: falling back to LLM-only evidence search", "ideaId", idea.ID.String(), "cause", err)

	corpus, err := m.feedback.ListCandidates(ctx, fallbackCorpusCap)
	if err != nil {
		return nil, fmt.Errorf("list fallback corpus: %w", err)
	}

	return m.fallback.FindEvidence(ctx, idea.Title, idea.Description, excludeFeedback(corpus, excludeIDs))
}

// SuggestIdeasForFeedback returns confidence-ranked idea matches for the
// feedback item, plus a new-idea hint when nothing fits well. Ideas the item
// is already linked to are excluded before retrieval.
func (m *Matcher) SuggestIdeasForFeedback(
	ctx context.Context, item *models.FeedbackItem,
) (models.IdeaSuggestions, error) {
	if !m.available {
		return models.IdeaSuggestions{}, ErrAIUnavailable
	}

	excludeIDs, err := m.links.ListIdeaIDsForFeedback(ctx, item.ID)
	if err != nil {
		return models.IdeaSuggestions{}, fmt.Errorf("list linked ideas: %w", err)
	}

	suggestions, err := m.refiner.SuggestIdeas(ctx, item.Description, excludeIDs)
	if err == nil {
		return suggestions, nil
	}

	if !errors.Is(err, ErrEmbeddingUnavailable) && !errors.Is(err, ErrNoCandidates) {
		return models.IdeaSuggestions{}, err
	}

	m.logger.Info("matching: falling back to LLM-only idea suggestion", "feedbackId", item.ID.String(), "cause", err)

	corpus, err := m.ideas.ListCandidates(ctx, fallbackCorpusCap)
	if err != nil {
		return models.IdeaSuggestions{}, fmt.Errorf("list fallback corpus: %w", err)
	}

	return m.fallback.SuggestIdeas(ctx, item.Description, excludeIdeas(corpus, excludeIDs))
}

func excludeFeedback(items []models.FeedbackItem, excludeIDs []uuid.UUID) []models.FeedbackItem {
	if len(excludeIDs) == 0 {
		return items
	}

	excluded := make(map[uuid.UUID]struct{}, len(excludeIDs))
	for _, id := range excludeIDs {
		excluded[id] = struct{}{}
	}

	kept := items[:0]

	for _, item := range items {
		if _, skip := excluded[item.ID]; !skip {
			kept = append(kept, item)
		}
	}

	return kept
}

func excludeIdeas(ideas []models.Idea, excludeIDs []uuid.UUID) []models.Idea {
	if len(excludeIDs) == 0 {
		return ideas
	}

	excluded := make(map[uuid.UUID]struct{}, len(excludeIDs))
	for _, id := range excludeIDs {
		excluded[id] = struct{}{}
	}

	kept := ideas[:0]

	for _, idea := range ideas {
		if _, skip := excluded[idea.ID]; !skip {
			kept = append(kept, idea)
		}
	}

	return kept
}
