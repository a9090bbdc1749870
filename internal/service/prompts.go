package service

import (
	"fmt"
	"strings"

	"github.com/roadmaphq/triage/internal/models"
)

// Shared scoring rubric for the re-ranking prompts. The bands matter: the
// post-filter drops everything below ConfidenceMatchFloor, so the model is
// told the same cutoff it will be held to.
const scoringRubric = `Score each candidate's relevance on this scale:
- 0.9-1.0: directly requests this exact capability
- 0.8-0.9: describes a clear pain point this would solve
- 0.7-0.8: describes a related use case or adjacent need
- 0.6-0.7: tangentially related
- below 0.6: not a real match, exclude it entirely`

const evidenceSystemPrompt = `You are a product analyst matching customer feedback to a product idea.
You will receive one idea and a list of candidate feedback items that are semantically similar to it.
` + scoringRubric + `

Respond with JSON only, in this exact shape:
{"matches": [{"id": "<feedback id>", "confidence": <0-1>, "reason": "<one short sentence>"}]}
Include only candidates scoring 0.6 or above.`

const suggestSystemPrompt = `You are a product analyst matching a piece of customer feedback to existing product ideas.
You will receive one feedback item and a list of candidate ideas that are semantically similar to it.
` + scoringRubric + `

Respond with JSON only, in this exact shape:
{"matches": [{"id": "<idea id>", "confidence": <0-1>, "reason": "<one short sentence>"}],
 "suggested_new_idea": {"title": "<short title>", "description": "<one sentence>"}}
Include only candidates scoring 0.6 or above. Always fill suggested_new_idea with your best
synthesis of the feedback as a new idea, in case none of the candidates fit well.`

const summarizeSystemPrompt = `You are a product analyst. Summarize key themes from customer feedback. Be concise.`

const candidateDescriptionBudget = 300

func truncateForPrompt(s string, budget int) string {
	s = strings.TrimSpace(s)
	if len(s) <= budget {
		return s
	}

	return s[:budget] + "..."
}

func formatFeedbackCandidates(candidates []models.FeedbackWithScore) string {
	var b strings.Builder

	for i, c := range candidates {
		item := c.Feedback

		account := "unknown account"
		if item.AccountName != nil && *item.AccountName != "" {
			account = *item.AccountName
		}

		segment := ""
		if item.AccountSegment != nil && *item.AccountSegment != "" {
			segment = ", segment: " + *item.AccountSegment
		}

		fmt.Fprintf(&b, "%d. id: %s | account: %s (ARR $%.0f%s) | similarity: %.2f\n   %s\n",
			i+1, item.ID, account, item.ARR(), segment, c.Score,
			truncateForPrompt(item.Description, candidateDescriptionBudget))
	}

	return b.String()
}

func formatIdeaCandidates(candidates []models.IdeaWithScore) string {
	var b strings.Builder

	for i, c := range candidates {
		fmt.Fprintf(&b, "%d. id: %s | title: %s | status: %s | similarity: %.2f\n   %s\n",
			i+1, c.Idea.ID, c.Idea.Title, c.Idea.Status, c.Score,
			truncateForPrompt(c.Idea.Description, candidateDescriptionBudget))
	}

	return b.String()
}

func formatFeedbackCorpus(items []models.FeedbackItem) string {
	var b strings.Builder

	for i, item := range items {
		account := "unknown account"
		if item.AccountName != nil && *item.AccountName != "" {
			account = *item.AccountName
		}

		fmt.Fprintf(&b, "%d. id: %s | account: %s (ARR $%.0f)\n   %s\n",
			i+1, item.ID, account, item.ARR(),
			truncateForPrompt(item.Description, candidateDescriptionBudget))
	}

	return b.String()
}

func formatIdeaCorpus(ideas []models.Idea) string {
	var b strings.Builder

	for i, idea := range ideas {
		fmt.Fprintf(&b, "%d. id: %s | title: %s | status: %s\n   %s\n",
			i+1, idea.ID, idea.Title, idea.Status,
			truncateForPrompt(idea.Description, candidateDescriptionBudget))
	}

	return b.String()
}
