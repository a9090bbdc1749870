// backfill-embeddings generates embeddings for feedback items, ideas, and
// product areas that have none: rows created before a provider was
// configured, or whose async embedding job exhausted its retries. Provider
// calls are rate limited, so large corpora take a while; progress is logged
// per batch.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/time/rate"

	"github.com/roadmaphq/triage/internal/config"
	"github.com/roadmaphq/triage/internal/embeddings"
	"github.com/roadmaphq/triage/internal/googleai"
	"github.com/roadmaphq/triage/internal/llmproxy"
	"github.com/roadmaphq/triage/internal/openai"
	"github.com/roadmaphq/triage/internal/repository"
	"github.com/roadmaphq/triage/internal/service"
	"github.com/roadmaphq/triage/pkg/database"
)

var errNoProvider = errors.New("no AI provider configured (set OPENAI_API_KEY, GEMINI_API_KEY, or LLM_PROXY_URL)")

const (
	embedInterval = 100 * time.Millisecond

	exitSuccess = 0
	exitFailure = 1
)

func main() {
	os.Exit(run())
}

func run() int {
	ai := config.LoadAI()

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		slog.Error("DATABASE_URL is required")

		return exitFailure
	}

	ctx := context.Background()

	client, err := newEmbeddingClient(ctx, ai)
	if err != nil {
		slog.Error("Failed to create embedding client", "error", err)

		return exitFailure
	}

	db, err := database.NewPostgresPool(ctx, databaseURL, database.WithVectorTypes())
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)

		return exitFailure
	}
	defer db.Close()

	backfiller := service.NewBackfiller(service.BackfillerParams{
		Embedder: service.NewEmbeddingService(service.EmbeddingServiceParams{Client: client}),
		Feedback: repository.NewFeedbackRepository(db),
		Ideas:    repository.NewIdeasRepository(db),
		Areas:    repository.NewProductAreasRepository(db),
		Limiter:  rate.NewLimiter(rate.Every(embedInterval), 1),
	})

	progress := func(processed, total int) {
		slog.Info("Backfill progress", "processed", processed, "total", total)
	}

	feedbackResult, err := backfiller.BackfillFeedback(ctx, progress)
	if err != nil {
		slog.Error("Feedback backfill failed", "error", err)

		return exitFailure
	}

	ideaResult, err := backfiller.BackfillIdeas(ctx, progress)
	if err != nil {
		slog.Error("Idea backfill failed", "error", err)

		return exitFailure
	}

	areaResult, err := backfiller.BackfillProductAreas(ctx, progress)
	if err != nil {
		slog.Error("Product area backfill failed", "error", err)

		return exitFailure
	}

	fmt.Printf("Embedded %d/%d feedback item(s), %d/%d idea(s), %d/%d product area(s).\n",
		feedbackResult.Processed, feedbackResult.Total,
		ideaResult.Processed, ideaResult.Total,
		areaResult.Processed, areaResult.Total,
	)

	return exitSuccess
}

func newEmbeddingClient(ctx context.Context, ai config.AIConfig) (embeddings.Client, error) {
	switch ai.Provider {
	case config.ProviderOpenAI:
		return openai.NewClient(ai.OpenAIAPIKey, openai.WithDimensions(ai.EmbeddingDimensions)), nil
	case config.ProviderGemini:
		return googleai.NewClient(ctx, ai.GeminiAPIKey, googleai.WithDimensions(ai.EmbeddingDimensions))
	case config.ProviderProxy:
		return llmproxy.NewClient(ai.ProxyURL), nil
	default:
		return nil, errNoProvider
	}
}
