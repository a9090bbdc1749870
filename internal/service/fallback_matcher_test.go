package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roadmaphq/triage/internal/llm"
	"github.com/roadmaphq/triage/internal/models"
)

func TestFallbackMatcherFindEvidence(t *testing.T) {
	t.Run("empty corpus skips the LLM", func(t *testing.T) {
		llmClient := &mockLLM{
			completeFunc: func(context.Context, []llm.Message) (string, error) {
				t.Fatal("LLM must not be called with an empty corpus")

				return "", nil
			},
		}

		matcher := NewFallbackMatcher(FallbackMatcherParams{LLM: llmClient})

		matches, err := matcher.FindEvidence(context.Background(), "t", "d", nil)
		require.NoError(t, err)
		assert.Empty(t, matches)
		assert.Zero(t, llmClient.calls)
	})

	t.Run("oversized corpus is capped in the prompt", func(t *testing.T) {
		corpus := make([]models.FeedbackItem, 80)
		for i := range corpus {
			corpus[i] = feedbackItem(fmt.Sprintf("account-%d", i), 0)
		}

		llmClient := &mockLLM{
			completeFunc: func(_ context.Context, messages []llm.Message) (string, error) {
				prompt := messages[len(messages)-1].Content
				assert.Contains(t, prompt, "account-49")
				assert.NotContains(t, prompt, "account-50")

				return `{"matches": []}`, nil
			},
		}

		matcher := NewFallbackMatcher(FallbackMatcherParams{LLM: llmClient})

		_, err := matcher.FindEvidence(context.Background(), "t", "d", corpus)
		require.NoError(t, err)
		assert.Equal(t, 1, llmClient.calls)
	})

	t.Run("floor applies and matches are enriched", func(t *testing.T) {
		corpus := []models.FeedbackItem{feedbackItem("Acme", 100), feedbackItem("Globex", 200)}

		llmClient := &mockLLM{
			completeFunc: func(context.Context, []llm.Message) (string, error) {
				return fmt.Sprintf(`{"matches": [
					{"id": %q, "confidence": 0.85, "reason": "clear pain point"},
					{"id": %q, "confidence": 0.55, "reason": "weak"}
				]}`, corpus[0].ID, corpus[1].ID), nil
			},
		}

		matcher := NewFallbackMatcher(FallbackMatcherParams{LLM: llmClient})

		matches, err := matcher.FindEvidence(context.Background(), "t", "d", corpus)
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, corpus[0].ID, matches[0].FeedbackID)
		assert.Equal(t, "Acme", *matches[0].Feedback.AccountName)
	})

	t.Run("unparseable response yields no matches not an error", func(t *testing.T) {
		corpus := []models.FeedbackItem{feedbackItem("Acme", 0)}

		llmClient := &mockLLM{
			completeFunc: func(context.Context, []llm.Message) (string, error) { return "nope", nil },
		}

		matcher := NewFallbackMatcher(FallbackMatcherParams{LLM: llmClient})

		matches, err := matcher.FindEvidence(context.Background(), "t", "d", corpus)
		require.NoError(t, err)
		assert.Empty(t, matches)
	})
}

func TestFallbackMatcherSuggestIdeas(t *testing.T) {
	corpus := []models.Idea{{ID: uuid.New(), Title: "CSV export", Description: "export data"}}

	t.Run("weak result carries the new-idea hint", func(t *testing.T) {
		llmClient := &mockLLM{
			completeFunc: func(context.Context, []llm.Message) (string, error) {
				return `{"matches": [], "suggested_new_idea": {"title": "SSO", "description": "single sign-on"}}`, nil
			},
		}

		matcher := NewFallbackMatcher(FallbackMatcherParams{LLM: llmClient})

		result, err := matcher.SuggestIdeas(context.Background(), "we need SSO", corpus)
		require.NoError(t, err)
		assert.Empty(t, result.Matches)
		require.NotNil(t, result.SuggestedNewIdea)
		assert.True(t, result.SuggestedNewIdea.ShouldCreate)
		assert.Equal(t, "SSO", result.SuggestedNewIdea.Title)
	})

	t.Run("empty corpus still produces a hint", func(t *testing.T) {
		matcher := NewFallbackMatcher(FallbackMatcherParams{
			LLM: &mockLLM{completeFunc: func(context.Context, []llm.Message) (string, error) { return "", nil }},
		})

		description := strings.Repeat("a very long feedback text ", 10)

		result, err := matcher.SuggestIdeas(context.Background(), description, nil)
		require.NoError(t, err)
		require.NotNil(t, result.SuggestedNewIdea)
		assert.True(t, result.SuggestedNewIdea.ShouldCreate)
	})
}
