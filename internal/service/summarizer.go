package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roadmaphq/triage/internal/llm"
	"github.com/roadmaphq/triage/internal/models"
)

// summaryItemCap bounds how many linked items go into one summary prompt.
const summaryItemCap = 50

// Summarizer produces a short thematic summary of the feedback linked to an
// idea.
type Summarizer struct {
	llm    llm.Client
	logger *slog.Logger
}

// SummarizerParams configures Summarizer.
type SummarizerParams struct {
	LLM    llm.Client
	Logger *slog.Logger
}

// NewSummarizer creates a Summarizer.
func NewSummarizer(p SummarizerParams) *Summarizer {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Summarizer{llm: p.LLM, logger: logger}
}

// Summarize returns a concise summary of the linked feedback. An empty input
// yields an empty summary without calling the model.
func (s *Summarizer) Summarize(ctx context.Context, linked []models.FeedbackItem) (string, error) {
	if len(linked) == 0 {
		return "", nil
	}

	if len(linked) > summaryItemCap {
		linked = linked[:summaryItemCap]
	}

	var b strings.Builder

	for i := range linked {
		item := &linked[i]

		account := ""
		if item.AccountName != nil && *item.AccountName != "" {
			account = " (" + *item.AccountName + ")"
		}

		fmt.Fprintf(&b, "- %s%s\n", truncateForPrompt(item.Description, candidateDescriptionBudget), account)
	}

	summary, err := s.llm.Complete(ctx, []llm.Message{
		llm.SystemMessage(summarizeSystemPrompt),
		llm.UserMessage("Customer feedback:\n" + b.String()),
	})
	if err != nil {
		return "", fmt.Errorf("summarize feedback: %w", err)
	}

	return strings.TrimSpace(summary), nil
}
