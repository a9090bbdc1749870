package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roadmaphq/triage/internal/llm"
	"github.com/roadmaphq/triage/internal/models"
)

func TestMatcherFindEvidenceForIdea(t *testing.T) {
	idea := &models.Idea{ID: uuid.New(), Title: "CSV export", Description: "export data"}

	t.Run("unavailable AI is a calm sentinel", func(t *testing.T) {
		matcher := NewMatcher(MatcherParams{Available: false})

		_, err := matcher.FindEvidenceForIdea(context.Background(), idea)
		assert.ErrorIs(t, err, ErrAIUnavailable)
	})

	t.Run("empty retrieval routes to the fallback corpus", func(t *testing.T) {
		linked := feedbackItem("Linked Corp", 0)
		fresh := feedbackItem("Fresh Corp", 0)

		llmClient := &mockLLM{
			completeFunc: func(_ context.Context, messages []llm.Message) (string, error) {
				prompt := messages[len(messages)-1].Content
				assert.Contains(t, prompt, "Fresh Corp")
				assert.NotContains(t, prompt, "Linked Corp")

				return fmt.Sprintf(`{"matches": [{"id": %q, "confidence": 0.9, "reason": "direct"}]}`, fresh.ID), nil
			},
		}

		embedder, _ := newTestEmbedder([]float32{1, 0})

		refiner := NewMatchRefiner(MatchRefinerParams{
			Embedder: embedder,
			LLM:      llmClient,
			FeedbackIndex: &mockFeedbackIndex{
				nearestFunc: func(
					context.Context, []float32, float64, int, []uuid.UUID,
				) ([]models.FeedbackWithScore, error) {
					return nil, nil
				},
			},
		})

		matcher := NewMatcher(MatcherParams{
			Refiner:  refiner,
			Fallback: NewFallbackMatcher(FallbackMatcherParams{LLM: llmClient}),
			Feedback: &mockFeedbackCandidates{
				listFunc: func(context.Context, int) ([]models.FeedbackItem, error) {
					return []models.FeedbackItem{linked, fresh}, nil
				},
			},
			Links: &mockLinkReader{
				linkedFeedbackFunc: func(context.Context, uuid.UUID) ([]uuid.UUID, error) {
					return []uuid.UUID{linked.ID}, nil
				},
			},
			Available: true,
		})

		matches, err := matcher.FindEvidenceForIdea(context.Background(), idea)
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, fresh.ID, matches[0].FeedbackID)
	})

	t.Run("successful two-stage result skips the fallback", func(t *testing.T) {
		candidate := scoredFeedback(0.9)

		llmClient := &mockLLM{
			completeFunc: func(context.Context, []llm.Message) (string, error) {
				return fmt.Sprintf(`{"matches": [{"id": %q, "confidence": 0.9, "reason": "direct"}]}`,
					candidate.Feedback.ID), nil
			},
		}

		embedder, _ := newTestEmbedder([]float32{1, 0})

		refiner := NewMatchRefiner(MatchRefinerParams{
			Embedder: embedder,
			LLM:      llmClient,
			FeedbackIndex: &mockFeedbackIndex{
				nearestFunc: func(
					context.Context, []float32, float64, int, []uuid.UUID,
				) ([]models.FeedbackWithScore, error) {
					return []models.FeedbackWithScore{candidate}, nil
				},
			},
		})

		matcher := NewMatcher(MatcherParams{
			Refiner:  refiner,
			Fallback: NewFallbackMatcher(FallbackMatcherParams{LLM: llmClient}),
			Feedback: &mockFeedbackCandidates{
				listFunc: func(context.Context, int) ([]models.FeedbackItem, error) {
					t.Fatal("fallback corpus must not be loaded when stage 1 succeeds")

					return nil, nil
				},
			},
			Links:     &mockLinkReader{},
			Available: true,
		})

		matches, err := matcher.FindEvidenceForIdea(context.Background(), idea)
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, 1, llmClient.calls)
	})
}

func TestMatcherSuggestIdeasForFeedback(t *testing.T) {
	item := feedbackItem("Acme", 0)

	t.Run("no embeddings routes to the fallback corpus", func(t *testing.T) {
		existing := models.Idea{ID: uuid.New(), Title: "CSV export", Description: "export data"}

		llmClient := &mockLLM{
			completeFunc: func(context.Context, []llm.Message) (string, error) {
				return fmt.Sprintf(`{"matches": [{"id": %q, "confidence": 0.8, "reason": "pain point"}]}`,
					existing.ID), nil
			},
		}

		refiner := NewMatchRefiner(MatchRefinerParams{
			Embedder: NewEmbeddingService(EmbeddingServiceParams{Client: nil}),
			LLM:      llmClient,
		})

		matcher := NewMatcher(MatcherParams{
			Refiner:  refiner,
			Fallback: NewFallbackMatcher(FallbackMatcherParams{LLM: llmClient}),
			Ideas: &mockIdeaCandidates{
				listFunc: func(context.Context, int) ([]models.Idea, error) {
					return []models.Idea{existing}, nil
				},
			},
			Links:     &mockLinkReader{},
			Available: true,
		})

		result, err := matcher.SuggestIdeasForFeedback(context.Background(), &item)
		require.NoError(t, err)
		require.Len(t, result.Matches, 1)
		assert.Equal(t, existing.ID, result.Matches[0].IdeaID)
	})
}
