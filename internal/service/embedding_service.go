package service

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/roadmaphq/triage/internal/embeddings"
	"github.com/roadmaphq/triage/internal/models"
)

// maxEmbeddingChars bounds the text sent to embedding providers. Roughly
// 2000 tokens, safely under every backing model's input limit.
const maxEmbeddingChars = 8000

// NormalizeEmbeddingText collapses runs of whitespace, trims, and truncates
// to the provider character budget. Truncation backs up to a rune boundary
// so multi-byte characters are never split.
func NormalizeEmbeddingText(text string) string {
	normalized := strings.Join(strings.Fields(text), " ")
	if len(normalized) > maxEmbeddingChars {
		cut := maxEmbeddingChars
		for cut > 0 && !utf8.RuneStart(normalized[cut]) {
			cut--
		}

		normalized = normalized[:cut]
	}

	return normalized
}

// FeedbackEmbeddingText builds the embedding input for a feedback item:
// title and description joined, title first when present.
func FeedbackEmbeddingText(item *models.FeedbackItem) string {
	if item.Title != nil && strings.TrimSpace(*item.Title) != "" {
		return strings.TrimSpace(*item.Title) + ". " + strings.TrimSpace(item.Description)
	}

	return strings.TrimSpace(item.Description)
}

// IdeaEmbeddingText builds the embedding input for an idea.
func IdeaEmbeddingText(idea *models.Idea) string {
	return strings.TrimSpace(idea.Title + ". " + idea.Description)
}

// ProductAreaEmbeddingText builds the embedding input for a product area:
// name, description, and keywords joined with ". " so keyword hits pull the
// area toward matching feedback.
func ProductAreaEmbeddingText(area *models.ProductArea) string {
	parts := make([]string, 0, 2+len(area.Keywords))
	parts = append(parts, area.Name)

	if strings.TrimSpace(area.Description) != "" {
		parts = append(parts, strings.TrimSpace(area.Description))
	}

	for _, kw := range area.Keywords {
		if strings.TrimSpace(kw) != "" {
			parts = append(parts, strings.TrimSpace(kw))
		}
	}

	return strings.Join(parts, ". ")
}

// EmbeddingService wraps an embedding client with the text-normalization and
// null-on-failure policy the matching pipeline relies on. Client may be nil
// when no provider is configured.
type EmbeddingService struct {
	client embeddings.Client
	logger *slog.Logger
}

// EmbeddingServiceParams configures EmbeddingService.
type EmbeddingServiceParams struct {
	Client embeddings.Client
	Logger *slog.Logger
}

// NewEmbeddingService creates an EmbeddingService.
func NewEmbeddingService(p EmbeddingServiceParams) *EmbeddingService {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &EmbeddingService{client: p.Client, logger: logger}
}

// Configured reports whether a backing embedding provider is available.
func (s *EmbeddingService) Configured() bool {
	return s.client != nil
}

// Embed normalizes text and returns its embedding. Returns nil (never an
// error) when no provider is configured, the normalized text is empty, or
// the provider call fails. Embedding is an optimization for the matching
// pipeline, so callers treat nil as "skip" and keep going.
func (s *EmbeddingService) Embed(ctx context.Context, text string) []float32 {
	if s.client == nil {
		return nil
	}

	normalized := NormalizeEmbeddingText(text)
	if normalized == "" {
		return nil
	}

	vec, err := s.client.CreateEmbedding(ctx, normalized)
	if err != nil {
		s.logger.Warn("embedding: provider call failed, skipping", "error", err, "textLen", len(normalized))

		return nil
	}

	return vec
}
