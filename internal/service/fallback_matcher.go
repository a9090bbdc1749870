package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/roadmaphq/triage/internal/llm"
	"github.com/roadmaphq/triage/internal/models"
)

// fallbackCorpusCap bounds how much of the raw corpus is inlined into the
// single-call prompt. Prompt size, not recall, is the constraint here.
const fallbackCorpusCap = 50

// FallbackMatcher is the LLM-only matching path used when embeddings are
// unavailable or stage-1 retrieval finds nothing. No retrieval phase: a
// bounded slice of the raw corpus goes straight into one completion call
// with the same rubric and confidence floor as the two-stage pipeline.
type FallbackMatcher struct {
	llm    llm.Client
	logger *slog.Logger
}

// FallbackMatcherParams configures FallbackMatcher.
type FallbackMatcherParams struct {
	LLM    llm.Client
	Logger *slog.Logger
}

// NewFallbackMatcher creates a FallbackMatcher.
func NewFallbackMatcher(p FallbackMatcherParams) *FallbackMatcher {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &FallbackMatcher{llm: p.LLM, logger: logger}
}

// FindEvidence matches an idea against a raw feedback corpus with a single
// LLM call. An empty corpus yields an empty result without calling the
// model.
func (f *FallbackMatcher) FindEvidence(
	ctx context.Context, title, description string, corpus []models.FeedbackItem,
) ([]models.EvidenceMatch, error) {
	if len(corpus) == 0 {
		return nil, nil
	}

	if len(corpus) > fallbackCorpusCap {
		corpus = corpus[:fallbackCorpusCap]
	}

	userPrompt := fmt.Sprintf("Idea: %s\n%s\n\nCandidate feedback:\n%s",
		title, description, formatFeedbackCorpus(corpus))

	response, err := f.llm.Complete(ctx, []llm.Message{
		llm.SystemMessage(evidenceSystemPrompt),
		llm.UserMessage(userPrompt),
	})
	if err != nil {
		return nil, fmt.Errorf("fallback matching: %w", err)
	}

	var parsed evidenceResponse
	if err := decodeJSONObject(response, &parsed); err != nil {
		f.logger.Warn("fallback matching: response unparseable", "error", err)

		return nil, nil
	}

	byID := make(map[string]models.FeedbackItem, len(corpus))
	for _, item := range corpus {
		byID[item.ID.String()] = item
	}

	matches := make([]models.EvidenceMatch, 0, len(parsed.Matches))

	for _, lm := range parsed.Matches {
		item, ok := byID[lm.ID]
		if !ok {
			continue
		}

		confidence := clampConfidence(lm.Confidence)
		if confidence < ConfidenceMatchFloor {
			continue
		}

		matches = append(matches, models.EvidenceMatch{
			FeedbackID: item.ID,
			Confidence: confidence,
			Reason:     lm.Reason,
			Feedback:   item,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Confidence > matches[j].Confidence })

	return matches, nil
}

// SuggestIdeas matches a feedback description against a raw idea corpus with
// a single LLM call.
func (f *FallbackMatcher) SuggestIdeas(
	ctx context.Context, description string, corpus []models.Idea,
) (models.IdeaSuggestions, error) {
	result := models.IdeaSuggestions{}

	if len(corpus) == 0 {
		attachNewIdeaHint(&result, description)

		return result, nil
	}

	if len(corpus) > fallbackCorpusCap {
		corpus = corpus[:fallbackCorpusCap]
	}

	userPrompt := fmt.Sprintf("Feedback:\n%s\n\nCandidate ideas:\n%s",
		description, formatIdeaCorpus(corpus))

	response, err := f.llm.Complete(ctx, []llm.Message{
		llm.SystemMessage(suggestSystemPrompt),
		llm.UserMessage(userPrompt),
	})
	if err != nil {
		return models.IdeaSuggestions{}, fmt.Errorf("fallback matching: %w", err)
	}

	var parsed suggestResponse
	if err := decodeJSONObject(response, &parsed); err != nil {
		f.logger.Warn("fallback matching: response unparseable", "error", err)

		attachNewIdeaHint(&result, description)

		return result, nil
	}

	byID := make(map[string]models.Idea, len(corpus))
	for _, idea := range corpus {
		byID[idea.ID.String()] = idea
	}

	for _, lm := range parsed.Matches {
		idea, ok := byID[lm.ID]
		if !ok {
			continue
		}

		confidence := clampConfidence(lm.Confidence)
		if confidence < ConfidenceMatchFloor {
			continue
		}

		result.Matches = append(result.Matches, models.IdeaMatch{
			IdeaID:     idea.ID,
			Confidence: confidence,
			Reason:     lm.Reason,
			Idea:       idea,
		})
	}

	sort.SliceStable(result.Matches, func(i, j int) bool {
		return result.Matches[i].Confidence > result.Matches[j].Confidence
	})

	if parsed.SuggestedNewIdea != nil {
		result.SuggestedNewIdea = &models.SuggestedNewIdea{
			Title:       parsed.SuggestedNewIdea.Title,
			Description: parsed.SuggestedNewIdea.Description,
		}
	}

	attachNewIdeaHint(&result, description)

	return result, nil
}
