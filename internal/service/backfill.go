package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/roadmaphq/triage/internal/models"
)

// backfillBatchSize is how many pending records each pass picks up.
const backfillBatchSize = 500

// FeedbackEmbeddingStore lists feedback items missing embeddings and persists
// generated ones.
type FeedbackEmbeddingStore interface {
	ListUnembedded(ctx context.Context, limit int) ([]models.FeedbackItem, error)
	SetEmbedding(ctx context.Context, id uuid.UUID, embedding []float32) error
}

// IdeaEmbeddingStore lists ideas missing embeddings and persists generated ones.
type IdeaEmbeddingStore interface {
	ListUnembedded(ctx context.Context, limit int) ([]models.Idea, error)
	SetEmbedding(ctx context.Context, id uuid.UUID, embedding []float32) error
}

// ProductAreaEmbeddingStore lists product areas missing embeddings and
// persists generated ones.
type ProductAreaEmbeddingStore interface {
	ListUnembedded(ctx context.Context, limit int) ([]models.ProductArea, error)
	SetEmbedding(ctx context.Context, id uuid.UUID, embedding []float32) error
}

// BackfillResult reports how many records a backfill pass embedded out of
// those it found pending.
type BackfillResult struct {
	Processed int `json:"processed"`
	Total     int `json:"total"`
}

// BackfillProgressFunc receives progress after each record. May be nil.
type BackfillProgressFunc func(processed, total int)

// Backfiller generates embeddings for records created before a provider was
// configured, or whose async embedding job failed. Provider calls are paced
// by the limiter to stay under rate limits.
type Backfiller struct {
	embedder *EmbeddingService
	feedback FeedbackEmbeddingStore
	ideas    IdeaEmbeddingStore
	areas    ProductAreaEmbeddingStore
	limiter  *rate.Limiter
	logger   *slog.Logger
}

// BackfillerParams configures Backfiller. Limiter may be nil (no pacing,
// tests only).
type BackfillerParams struct {
	Embedder *EmbeddingService
	Feedback FeedbackEmbeddingStore
	Ideas    IdeaEmbeddingStore
	Areas    ProductAreaEmbeddingStore
	Limiter  *rate.Limiter
	Logger   *slog.Logger
}

// NewBackfiller creates a Backfiller.
func NewBackfiller(p BackfillerParams) *Backfiller {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Backfiller{
		embedder: p.Embedder,
		feedback: p.Feedback,
		ideas:    p.Ideas,
		areas:    p.Areas,
		limiter:  p.Limiter,
		logger:   logger,
	}
}

func (b *Backfiller) pace(ctx context.Context) error {
	if b.limiter == nil {
		return nil
	}

	if err := b.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	return nil
}

// BackfillFeedback embeds feedback items missing embeddings. A failed item is
// logged and skipped; the pass keeps going.
func (b *Backfiller) BackfillFeedback(ctx context.Context, progress BackfillProgressFunc) (BackfillResult, error) {
	items, err := b.feedback.ListUnembedded(ctx, backfillBatchSize)
	if err != nil {
		return BackfillResult{}, fmt.Errorf("list unembedded feedback: %w", err)
	}

	result := BackfillResult{Total: len(items)}

	for _, item := range items {
		if err := b.pace(ctx); err != nil {
			return result, err
		}

		vec := b.embedder.Embed(ctx, FeedbackEmbeddingText(&item))
		if vec == nil {
			b.logger.Warn("backfill: feedback item skipped", "feedbackId", item.ID.String())
			b.report(progress, result)

			continue
		}

		if err := b.feedback.SetEmbedding(ctx, item.ID, vec); err != nil {
			b.logger.Error("backfill: store feedback embedding failed", "error", err, "feedbackId", item.ID.String())
			b.report(progress, result)

			continue
		}

		result.Processed++
		b.report(progress, result)
	}

	return result, nil
}

// BackfillIdeas embeds ideas missing embeddings.
func (b *Backfiller) BackfillIdeas(ctx context.Context, progress BackfillProgressFunc) (BackfillResult, error) {
	ideas, err := b.ideas.ListUnembedded(ctx, backfillBatchSize)
	if err != nil {
		return BackfillResult{}, fmt.Errorf("list unembedded ideas: %w", err)
	}

	result := BackfillResult{Total: len(ideas)}

	for _, idea := range ideas {
		if err := b.pace(ctx); err != nil {
			return result, err
		}

		vec := b.embedder.Embed(ctx, IdeaEmbeddingText(&idea))
		if vec == nil {
			b.logger.Warn("backfill: idea skipped", "ideaId", idea.ID.String())
			b.report(progress, result)

			continue
		}

		if err := b.ideas.SetEmbedding(ctx, idea.ID, vec); err != nil {
			b.logger.Error("backfill: store idea embedding failed", "error", err, "ideaId", idea.ID.String())
			b.report(progress, result)

			continue
		}

		result.Processed++
		b.report(progress, result)
	}

	return result, nil
}

// BackfillProductAreas embeds product areas missing embeddings.
func (b *Backfiller) BackfillProductAreas(ctx context.Context, progress BackfillProgressFunc) (BackfillResult, error) {
	areas, err := b.areas.ListUnembedded(ctx, backfillBatchSize)
	if err != nil {
		return BackfillResult{}, fmt.Errorf("list unembedded product areas: %w", err)
	}

	result := BackfillResult{Total: len(areas)}

	for _, area := range areas {
		if err := b.pace(ctx); err != nil {
			return result, err
		}

		vec := b.embedder.Embed(ctx, ProductAreaEmbeddingText(&area))
		if vec == nil {
			b.logger.Warn("backfill: product area skipped", "productAreaId", area.ID.String())
			b.report(progress, result)

			continue
		}

		if err := b.areas.SetEmbedding(ctx, area.ID, vec); err != nil {
			b.logger.Error("backfill: store product area embedding failed", "error", err, "productAreaId", area.ID.String())
			b.report(progress, result)

			continue
		}

		result.Processed++
		b.report(progress, result)
	}

	return result, nil
}

func (b *Backfiller) report(progress BackfillProgressFunc, r BackfillResult) {
	if progress != nil {
		progress(r.Processed, r.Total)
	}
}
