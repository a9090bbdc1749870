package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roadmaphq/triage/internal/llm"
	"github.com/roadmaphq/triage/internal/models"
)

func scoredFeedback(score float64) models.FeedbackWithScore {
	return models.FeedbackWithScore{
		Feedback: models.FeedbackItem{ID: uuid.New(), Description: "customers keep asking for exports"},
		Score:    score,
	}
}

func newEvidenceRefiner(t *testing.T, llmClient llm.Client, candidates []models.FeedbackWithScore) *MatchRefiner {
	t.Helper()

	embedder, _ := newTestEmbedder([]float32{1, 0, 0})

	return NewMatchRefiner(MatchRefinerParams{
		Embedder: embedder,
		LLM:      llmClient,
		FeedbackIndex: &mockFeedbackIndex{
			nearestFunc: func(
				_ context.Context, _ []float32, _ float64, _ int, _ []uuid.UUID,
			) ([]models.FeedbackWithScore, error) {
				return candidates, nil
			},
		},
	})
}

func TestMatchRefinerFindEvidence(t *testing.T) {
	t.Run("reranked matches are floored sorted and enriched", func(t *testing.T) {
		candidates := []models.FeedbackWithScore{scoredFeedback(0.5), scoredFeedback(0.6), scoredFeedback(0.9)}

		llmClient := &mockLLM{
			completeFunc: func(context.Context, []llm.Message) (string, error) {
				return fmt.Sprintf(`{"matches": [
					{"id": %q, "confidence": 0.75, "reason": "related use case"},
					{"id": %q, "confidence": 0.95, "reason": "direct request"},
					{"id": %q, "confidence": 0.4, "reason": "weak"}
				]}`, candidates[0].Feedback.ID, candidates[1].Feedback.ID, candidates[2].Feedback.ID), nil
			},
		}

		refiner := newEvidenceRefiner(t, llmClient, candidates)

		matches, err := refiner.FindEvidence(context.Background(), "CSV export", "export data to CSV", nil)
		require.NoError(t, err)
		require.Len(t, matches, 2)

		assert.Equal(t, candidates[1].Feedback.ID, matches[0].FeedbackID)
		assert.InDelta(t, 0.95, matches[0].Confidence, 1e-9)
		assert.Equal(t, "direct request", matches[0].Reason)
		assert.Equal(t, candidates[1].Feedback.Description, matches[0].Feedback.Description)

		assert.Equal(t, candidates[0].Feedback.ID, matches[1].FeedbackID)

		for _, m := range matches {
			assert.GreaterOrEqual(t, m.Confidence, ConfidenceMatchFloor)
			assert.LessOrEqual(t, m.Confidence, 1.0)
		}
	})

	t.Run("zero stage-1 candidates never calls the LLM", func(t *testing.T) {
		llmClient := &mockLLM{
			completeFunc: func(context.Context, []llm.Message) (string, error) {
				t.Fatal("LLM must not be called with zero candidates")

				return "", nil
			},
		}

		refiner := newEvidenceRefiner(t, llmClient, nil)

		_, err := refiner.FindEvidence(context.Background(), "CSV export", "export data", nil)
		assert.ErrorIs(t, err, ErrNoCandidates)
		assert.Zero(t, llmClient.calls)
	})

	t.Run("unparseable response falls back to similarity", func(t *testing.T) {
		candidates := []models.FeedbackWithScore{scoredFeedback(0.88), scoredFeedback(0.47)}

		llmClient := &mockLLM{
			completeFunc: func(context.Context, []llm.Message) (string, error) {
				return "I could not produce a structured answer.", nil
			},
		}

		refiner := newEvidenceRefiner(t, llmClient, candidates)

		matches, err := refiner.FindEvidence(context.Background(), "CSV export", "export data", nil)
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.InDelta(t, 0.88, matches[0].Confidence, 1e-9)
		assert.Equal(t, "semantically similar, AI refinement unavailable", matches[0].Reason)
	})

	t.Run("provider failure falls back to similarity", func(t *testing.T) {
		candidates := []models.FeedbackWithScore{scoredFeedback(0.7)}

		llmClient := &mockLLM{
			completeFunc: func(context.Context, []llm.Message) (string, error) {
				return "", errors.New("upstream 500")
			},
		}

		refiner := newEvidenceRefiner(t, llmClient, candidates)

		matches, err := refiner.FindEvidence(context.Background(), "CSV export", "export data", nil)
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, "semantically similar, AI refinement unavailable", matches[0].Reason)
	})

	t.Run("hallucinated candidate ids are dropped", func(t *testing.T) {
		candidates := []models.FeedbackWithScore{scoredFeedback(0.8)}

		llmClient := &mockLLM{
			completeFunc: func(context.Context, []llm.Message) (string, error) {
				return fmt.Sprintf(`{"matches": [
					{"id": %q, "confidence": 0.9, "reason": "made up"},
					{"id": %q, "confidence": 0.8, "reason": "real"}
				]}`, uuid.New(), candidates[0].Feedback.ID), nil
			},
		}

		refiner := newEvidenceRefiner(t, llmClient, candidates)

		matches, err := refiner.FindEvidence(context.Background(), "t", "d", nil)
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, candidates[0].Feedback.ID, matches[0].FeedbackID)
	})

	t.Run("exclusion set reaches the index", func(t *testing.T) {
		excluded := uuid.New()

		var gotExclude []uuid.UUID

		embedder, _ := newTestEmbedder([]float32{1, 0, 0})
		refiner := NewMatchRefiner(MatchRefinerParams{
			Embedder: embedder,
			LLM:      &mockLLM{completeFunc: func(context.Context, []llm.Message) (string, error) { return "{}", nil }},
			FeedbackIndex: &mockFeedbackIndex{
				nearestFunc: func(
					_ context.Context, _ []float32, threshold float64, limit int, excludeIDs []uuid.UUID,
				) ([]models.FeedbackWithScore, error) {
					gotExclude = excludeIDs

					assert.InDelta(t, 0.45, threshold, 1e-9)
					assert.Equal(t, 30, limit)

					return nil, nil
				},
			},
		})

		_, err := refiner.FindEvidence(context.Background(), "t", "d", []uuid.UUID{excluded})
		assert.ErrorIs(t, err, ErrNoCandidates)
		assert.Equal(t, []uuid.UUID{excluded}, gotExclude)
	})

	t.Run("no embedding provider", func(t *testing.T) {
		refiner := NewMatchRefiner(MatchRefinerParams{
			Embedder: NewEmbeddingService(EmbeddingServiceParams{Client: nil}),
			LLM:      &mockLLM{completeFunc: func(context.Context, []llm.Message) (string, error) { return "", nil }},
		})

		_, err := refiner.FindEvidence(context.Background(), "t", "d", nil)
		assert.ErrorIs(t, err, ErrEmbeddingUnavailable)
	})
}

func TestMatchRefinerSuggestIdeas(t *testing.T) {
	newRefiner := func(llmClient llm.Client, candidates []models.IdeaWithScore) *MatchRefiner {
		embedder, _ := newTestEmbedder([]float32{1, 0, 0})

		return NewMatchRefiner(MatchRefinerParams{
			Embedder: embedder,
			LLM:      llmClient,
			IdeaIndex: &mockIdeaIndex{
				nearestFunc: func(
					_ context.Context, _ []float32, _ float64, limit int, _ []uuid.UUID,
				) ([]models.IdeaWithScore, error) {
					assert.Equal(t, 10, limit)

					return candidates, nil
				},
			},
		})
	}

	idea := models.IdeaWithScore{
		Idea:  models.Idea{ID: uuid.New(), Title: "CSV export", Description: "export data"},
		Score: 0.8,
	}

	t.Run("strong match carries no new-idea hint", func(t *testing.T) {
		llmClient := &mockLLM{
			completeFunc: func(context.Context, []llm.Message) (string, error) {
				return fmt.Sprintf(`{"matches": [{"id": %q, "confidence": 0.9, "reason": "direct"}],
					"suggested_new_idea": {"title": "Exports", "description": "export data"}}`, idea.Idea.ID), nil
			},
		}

		result, err := newRefiner(llmClient, []models.IdeaWithScore{idea}).
			SuggestIdeas(context.Background(), "please add CSV export", nil)
		require.NoError(t, err)
		require.Len(t, result.Matches, 1)
		require.NotNil(t, result.SuggestedNewIdea)
		assert.False(t, result.SuggestedNewIdea.ShouldCreate)
	})

	t.Run("weak best match sets the new-idea hint", func(t *testing.T) {
		llmClient := &mockLLM{
			completeFunc: func(context.Context, []llm.Message) (string, error) {
				return fmt.Sprintf(`{"matches": [{"id": %q, "confidence": 0.65, "reason": "tangential"}],
					"suggested_new_idea": {"title": "Webhook exports", "description": "push data out"}}`, idea.Idea.ID), nil
			},
		}

		result, err := newRefiner(llmClient, []models.IdeaWithScore{idea}).
			SuggestIdeas(context.Background(), "push my data to a webhook", nil)
		require.NoError(t, err)
		require.NotNil(t, result.SuggestedNewIdea)
		assert.True(t, result.SuggestedNewIdea.ShouldCreate)
		assert.Equal(t, "Webhook exports", result.SuggestedNewIdea.Title)
	})

	t.Run("all matches floored still yields a hint", func(t *testing.T) {
		llmClient := &mockLLM{
			completeFunc: func(context.Context, []llm.Message) (string, error) {
				return `{"matches": []}`, nil
			},
		}

		result, err := newRefiner(llmClient, []models.IdeaWithScore{idea}).
			SuggestIdeas(context.Background(), "something entirely new", nil)
		require.NoError(t, err)
		assert.Empty(t, result.Matches)
		require.NotNil(t, result.SuggestedNewIdea)
		assert.True(t, result.SuggestedNewIdea.ShouldCreate)
	})
}

func TestMatchRefinerQueryCacheReusesEmbedding(t *testing.T) {
	client := &mockEmbeddingClient{
		createFunc: func(context.Context, string) ([]float32, error) { return []float32{1, 0}, nil },
	}

	cache := newQueryCache(t)

	refiner := NewMatchRefiner(MatchRefinerParams{
		Embedder:   NewEmbeddingService(EmbeddingServiceParams{Client: client}),
		LLM:        &mockLLM{completeFunc: func(context.Context, []llm.Message) (string, error) { return "{}", nil }},
		QueryCache: cache,
		FeedbackIndex: &mockFeedbackIndex{
			nearestFunc: func(
				context.Context, []float32, float64, int, []uuid.UUID,
			) ([]models.FeedbackWithScore, error) {
				return nil, nil
			},
		},
	})

	for range 3 {
		_, err := refiner.FindEvidence(context.Background(), "same", "query", nil)
		assert.ErrorIs(t, err, ErrNoCandidates)
	}

	assert.Equal(t, 1, client.calls)
}
