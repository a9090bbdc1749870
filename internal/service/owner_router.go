package service

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/roadmaphq/triage/internal/models"
	"github.com/roadmaphq/triage/pkg/vectormath"
)

// Owner routing policy. Raw cosine values run conservative for this domain,
// so similarity gets a fixed linear boost before the accept check.
const (
	ownerConfidenceBoost = 1.2
	// ownerAcceptFloor is intentionally far below the matching floor:
	// routing only picks a reviewer, it never links records.
	ownerAcceptFloor = 0.3
	ownerBatchSize   = 20
)

const noConfidentAreaReasoning = "no product area matched with enough confidence"

// OwnerProgressFunc receives each completed batch of suggestions. Batches
// arrive in order; an item's result never depends on batch boundaries.
type OwnerProgressFunc func(completed []models.OwnerSuggestion, processed, total int)

// OwnerRouter assigns feedback items to product areas (and so to owners)
// with embedding similarity alone. This is the fast path: no LLM call.
type OwnerRouter struct {
	embedder *EmbeddingService
	limiter  *rate.Limiter
	logger   *slog.Logger
}

// OwnerRouterParams configures OwnerRouter. Limiter paces embedding calls
// for items that have no stored embedding; may be nil (tests).
type OwnerRouterParams struct {
	Embedder *EmbeddingService
	Limiter  *rate.Limiter
	Logger   *slog.Logger
}

// NewOwnerRouter creates an OwnerRouter.
func NewOwnerRouter(p OwnerRouterParams) *OwnerRouter {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &OwnerRouter{embedder: p.Embedder, limiter: p.Limiter, logger: logger}
}

// OwnerConfidence converts a cosine similarity into a routing confidence.
func OwnerConfidence(similarity float64) float64 {
	return clampConfidence(similarity * ownerConfidenceBoost)
}

// Route matches every feedback item to its best product area. Exactly one
// suggestion comes back per input, in input order; items with no confident
// area carry nil IDs and an explanation. Items are processed in fixed-size
// sequential batches, with progress reported after each batch.
func (r *OwnerRouter) Route(
	ctx context.Context, items []models.FeedbackItem, areas []models.ProductArea, progress OwnerProgressFunc,
) ([]models.OwnerSuggestion, error) {
	routable := make([]models.ProductArea, 0, len(areas))

	for _, area := range areas {
		if area.Routable() {
			routable = append(routable, area)
		}
	}

	suggestions := make([]models.OwnerSuggestion, 0, len(items))

	for start := 0; start < len(items); start += ownerBatchSize {
		end := start + ownerBatchSize
		if end > len(items) {
			end = len(items)
		}

		batch := make([]models.OwnerSuggestion, 0, end-start)

		for i := start; i < end; i++ {
			suggestion, err := r.routeOne(ctx, &items[i], routable)
			if err != nil {
				return suggestions, err
			}

			batch = append(batch, suggestion)
		}

		suggestions = append(suggestions, batch...)

		if progress != nil {
			progress(batch, len(suggestions), len(items))
		}
	}

	return suggestions, nil
}

// routeOne classifies a single item. Every path returns a suggestion; only
// context cancellation during pacing is an error.
func (r *OwnerRouter) routeOne(
	ctx context.Context, item *models.FeedbackItem, areas []models.ProductArea,
) (models.OwnerSuggestion, error) {
	none := models.OwnerSuggestion{
		FeedbackID: item.ID,
		Confidence: 0,
		Reasoning:  noConfidentAreaReasoning,
	}

	if len(areas) == 0 {
		return none, nil
	}

	embedding := item.Embedding

	if embedding == nil {
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				return none, fmt.Errorf("rate limiter: %w", err)
			}
		}

		embedding = r.embedder.Embed(ctx, FeedbackEmbeddingText(item))
		if embedding == nil {
			none.Reasoning = "feedback item could not be embedded"

			return none, nil
		}
	}

	var (
		best           *models.ProductArea
		bestSimilarity float64
	)

	for i := range areas {
		similarity := vectormath.CosineSimilarity(embedding, areas[i].Embedding)
		if best == nil || similarity > bestSimilarity {
			best = &areas[i]
			bestSimilarity = similarity
		}
	}

	confidence := OwnerConfidence(bestSimilarity)
	if confidence < ownerAcceptFloor {
		none.Confidence = confidence

		return none, nil
	}

	return models.OwnerSuggestion{
		FeedbackID:      item.ID,
		ProductAreaID:   &best.ID,
		ProductAreaName: best.Name,
		OwnerID:         best.OwnerID,
		Confidence:      confidence,
		Reasoning:       fmt.Sprintf("closest product area is %q (similarity %.2f)", best.Name, bestSimilarity),
	}, nil
}
