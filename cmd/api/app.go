package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"golang.org/x/time/rate"

	"github.com/roadmaphq/triage/internal/api/handlers"
	"github.com/roadmaphq/triage/internal/api/middleware"
	"github.com/roadmaphq/triage/internal/config"
	"github.com/roadmaphq/triage/internal/embeddings"
	"github.com/roadmaphq/triage/internal/googleai"
	"github.com/roadmaphq/triage/internal/llm"
	"github.com/roadmaphq/triage/internal/llmproxy"
	"github.com/roadmaphq/triage/internal/openai"
	"github.com/roadmaphq/triage/internal/repository"
	"github.com/roadmaphq/triage/internal/service"
	"github.com/roadmaphq/triage/internal/workers"
	"github.com/roadmaphq/triage/pkg/cache"
)

const (
	queryCacheSize         = 1000
	embeddingMaxConcurrent = 4
	maxRequestBodyBytes    = 1 << 20
)

// aiClients holds the resolved provider adapters. Both are nil when no
// provider credential is configured.
type aiClients struct {
	embedding embeddings.Client
	chat      llm.Client
}

// resolveAIClients builds the provider adapter selected by the config. A
// ProviderNone config yields zero clients, not an error: the server runs
// with matching degraded to "AI unavailable".
func resolveAIClients(ctx context.Context, ai config.AIConfig) (aiClients, error) {
	switch ai.Provider {
	case config.ProviderOpenAI:
		client := openai.NewClient(ai.OpenAIAPIKey, openai.WithDimensions(ai.EmbeddingDimensions))

		return aiClients{embedding: client, chat: client}, nil
	case config.ProviderGemini:
		client, err := googleai.NewClient(ctx, ai.GeminiAPIKey, googleai.WithDimensions(ai.EmbeddingDimensions))
		if err != nil {
			return aiClients{}, fmt.Errorf("create gemini client: %w", err)
		}

		return aiClients{embedding: client, chat: client}, nil
	case config.ProviderProxy:
		client := llmproxy.NewClient(ai.ProxyURL)

		return aiClients{embedding: client, chat: client}, nil
	default:
		return aiClients{}, nil
	}
}

// App holds all server dependencies and coordinates startup and shutdown.
type App struct {
	cfg    *config.Config
	db     *pgxpool.Pool
	server *http.Server
	river  *river.Client[pgx.Tx]
}

// NewApp builds and wires all components. It does not start the HTTP server
// or River; call Run to start and block until shutdown or failure.
func NewApp(ctx context.Context, cfg *config.Config, db *pgxpool.Pool) (*App, error) {
	clients, err := resolveAIClients(ctx, cfg.AI)
	if err != nil {
		return nil, err
	}

	if cfg.AI.Configured() {
		slog.Info("AI matching enabled", "provider", string(cfg.AI.Provider))
	} else {
		slog.Info("AI matching disabled (no provider credential configured)")
	}

	feedbackRepo := repository.NewFeedbackRepository(db)
	ideasRepo := repository.NewIdeasRepository(db)
	linksRepo := repository.NewLinksRepository(db)
	areasRepo := repository.NewProductAreasRepository(db)

	embedder := service.NewEmbeddingService(service.EmbeddingServiceParams{Client: clients.embedding})

	queryCache, err := cache.NewLoaderCache[string, []float32](queryCacheSize, func(s string) string { return s })
	if err != nil {
		return nil, fmt.Errorf("create query cache: %w", err)
	}

	refiner := service.NewMatchRefiner(service.MatchRefinerParams{
		Embedder:      embedder,
		LLM:           clients.chat,
		FeedbackIndex: feedbackRepo,
		IdeaIndex:     ideasRepo,
		QueryCache:    queryCache,
	})
	fallback := service.NewFallbackMatcher(service.FallbackMatcherParams{LLM: clients.chat})
	matcher := service.NewMatcher(service.MatcherParams{
		Refiner:   refiner,
		Fallback:  fallback,
		Feedback:  feedbackRepo,
		Ideas:     ideasRepo,
		Links:     linksRepo,
		Available: cfg.AI.Configured(),
	})

	ownerRouter := service.NewOwnerRouter(service.OwnerRouterParams{
		Embedder: embedder,
		Limiter:  rate.NewLimiter(rate.Every(100*time.Millisecond), 1),
	})
	linkService := service.NewLinkService(service.LinkServiceParams{
		Links:    linksRepo,
		Ideas:    ideasRepo,
		Feedback: feedbackRepo,
	})
	insightsService := service.NewInsightsService(service.InsightsServiceParams{
		Feedback: feedbackRepo,
		Ideas:    ideasRepo,
		Links:    linksRepo,
	})
	summarizer := service.NewSummarizer(service.SummarizerParams{LLM: clients.chat})

	var riverClient *river.Client[pgx.Tx]
	if clients.embedding != nil {
		riverClient, err = newRiverClient(db, cfg, clients.embedding, feedbackRepo, ideasRepo)
		if err != nil {
			return nil, err
		}
	}

	var inserter service.EmbeddingJobInserter
	if riverClient != nil {
		inserter = riverClient
	}

	recordsService := service.NewRecordsService(service.RecordsServiceParams{
		Feedback:    feedbackRepo,
		Ideas:       ideasRepo,
		Inserter:    inserter,
		MaxAttempts: cfg.EmbeddingMaxAttempts,
	})

	matchingHandler := handlers.NewMatchingHandler(matcher, summarizer, ideasRepo, feedbackRepo, linksRepo)
	routingHandler := handlers.NewRoutingHandler(ownerRouter, areasRepo, feedbackRepo)
	linksHandler := handlers.NewLinksHandler(linkService)
	insightsHandler := handlers.NewInsightsHandler(insightsService)
	recordsHandler := handlers.NewRecordsHandler(recordsService)
	healthHandler := handlers.NewHealthHandler(db)

	server := newHTTPServer(
		cfg, matchingHandler, routingHandler, linksHandler, insightsHandler, recordsHandler, healthHandler,
	)

	return &App{cfg: cfg, db: db, server: server, river: riverClient}, nil
}

// newRiverClient registers the embedding worker and builds the River client.
func newRiverClient(
	db *pgxpool.Pool,
	cfg *config.Config,
	embeddingClient embeddings.Client,
	feedbackRepo *repository.FeedbackRepository,
	ideasRepo *repository.IdeasRepository,
) (*river.Client[pgx.Tx], error) {
	riverWorkers := river.NewWorkers()
	river.AddWorker(riverWorkers, workers.NewEmbeddingWorker(embeddingClient, feedbackRepo, ideasRepo, nil))

	riverClient, err := river.NewClient(riverpgxv5.New(db), &river.Config{
		Queues: map[string]river.QueueConfig{
			service.EmbeddingsQueueName: {MaxWorkers: embeddingMaxConcurrent},
		},
		Workers:     riverWorkers,
		MaxAttempts: cfg.EmbeddingMaxAttempts,
	})
	if err != nil {
		return nil, fmt.Errorf("create River client: %w", err)
	}

	return riverClient, nil
}

// newHTTPServer builds the HTTP server and router (no auth on /health, API
// key on /v1).
func newHTTPServer(
	cfg *config.Config,
	matching *handlers.MatchingHandler,
	routing *handlers.RoutingHandler,
	links *handlers.LinksHandler,
	insights *handlers.InsightsHandler,
	records *handlers.RecordsHandler,
	health *handlers.HealthHandler,
) *http.Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(slog.Default()))
	r.Use(middleware.MaxBody(maxRequestBodyBytes))

	r.Get("/health", health.Check)

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.APIKey))

		r.Post("/feedback", records.CreateFeedback)
		r.Post("/ideas", records.CreateIdea)
		r.Post("/ideas/{id}/evidence", matching.FindEvidence)
		r.Post("/ideas/{id}/summary", matching.Summarize)
		r.Post("/feedback/{id}/suggest-ideas", matching.SuggestIdeas)
		r.Post("/feedback/owner-suggestions", routing.SuggestOwners)
		r.Post("/links", links.Accept)
		r.Delete("/links", links.Unlink)
		r.Get("/insights", insights.Report)
	})

	const (
		readTimeout  = 15 * time.Second
		writeTimeout = 2 * time.Minute
		idleTimeout  = 60 * time.Second
	)

	return &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}
}

// Run starts the HTTP server and River, then blocks until ctx is cancelled
// (e.g. signal) or a component fails. Caller should then call Shutdown.
func (a *App) Run(ctx context.Context) error {
	runErr := make(chan error, 1)

	riverCtx, cancelRiver := context.WithCancel(ctx)
	defer cancelRiver()

	if a.river != nil {
		go func() {
			if err := a.river.Start(riverCtx); err != nil && !errors.Is(err, context.Canceled) {
				select {
				case runErr <- fmt.Errorf("river: %w", err):
				default:
				}
			}
		}()
	}

	go func() {
		slog.Info("Starting server", "port", a.cfg.Port)

		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case runErr <- fmt.Errorf("server: %w", err):
			default:
			}
		}
	}()

	select {
	case err := <-runErr:
		cancelRiver()

		return err
	case <-ctx.Done():
		cancelRiver()

		return nil
	}
}

// Shutdown stops the server, then River. Call after Run returns.
func (a *App) Shutdown(ctx context.Context) error {
	if err := a.server.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		if a.river != nil {
			if stopErr := a.river.Stop(ctx); stopErr != nil {
				slog.Error("river stop during server shutdown", "error", stopErr)
			}
		}

		return fmt.Errorf("server shutdown: %w", err)
	}

	if a.river != nil {
		if err := a.river.Stop(ctx); err != nil {
			return fmt.Errorf("river stop: %w", err)
		}
	}

	return nil
}
