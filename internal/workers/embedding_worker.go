// Package workers provides River job workers.
package workers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/riverqueue/river"

	"github.com/roadmaphq/triage/internal/embeddings"
	"github.com/roadmaphq/triage/internal/models"
	"github.com/roadmaphq/triage/internal/service"
)

const embeddingJobTimeout = 30 * time.Second

// feedbackEmbeddingStore is the minimal feedback access the worker needs.
type feedbackEmbeddingStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.FeedbackItem, error)
	SetEmbedding(ctx context.Context, id uuid.UUID, embedding []float32) error
}

// ideaEmbeddingStore is the minimal idea access the worker needs.
type ideaEmbeddingStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Idea, error)
	SetEmbedding(ctx context.Context, id uuid.UUID, embedding []float32) error
}

// EmbeddingWorker generates and stores embeddings for newly created feedback
// items and ideas. The provider client is used directly (not the nil-on-error
// service wrapper) so transient provider failures surface as errors and River
// retries them.
type EmbeddingWorker struct {
	river.WorkerDefaults[service.EmbeddingArgs]

	client   embeddings.Client
	feedback feedbackEmbeddingStore
	ideas    ideaEmbeddingStore
	logger   *slog.Logger
}

// NewEmbeddingWorker creates an EmbeddingWorker.
func NewEmbeddingWorker(
	client embeddings.Client,
	feedback feedbackEmbeddingStore,
	ideas ideaEmbeddingStore,
	logger *slog.Logger,
) *EmbeddingWorker {
	if logger == nil {
		logger = slog.Default()
	}

	return &EmbeddingWorker{client: client, feedback: feedback, ideas: ideas, logger: logger}
}

// Timeout limits how long a single embedding job can run.
func (w *EmbeddingWorker) Timeout(*river.Job[service.EmbeddingArgs]) time.Duration {
	return embeddingJobTimeout
}

// Work loads the record, generates its embedding, and persists it. A missing
// record or unknown record type is logged and dropped without retry; provider
// failures retry until the final attempt.
func (w *EmbeddingWorker) Work(ctx context.Context, job *river.Job[service.EmbeddingArgs]) error {
	args := job.Args

	text, store, err := w.resolve(ctx, args)
	if err != nil {
		w.logger.Error("embedding: resolve record failed",
			"recordType", args.RecordType, "recordId", args.RecordID.String(), "error", err)

		return nil // no retry, record is gone or the type is unknown
	}

	normalized := service.NormalizeEmbeddingText(text)
	if normalized == "" {
		w.logger.Info("embedding: skipped (empty text)",
			"recordType", args.RecordType, "recordId", args.RecordID.String())

		return nil
	}

	embedding, err := w.client.CreateEmbedding(ctx, normalized)
	if err != nil {
		if job.Attempt >= job.MaxAttempts {
			w.logger.Error("embedding: provider failed (final attempt)",
				"recordType", args.RecordType, "recordId", args.RecordID.String(), "error", err)

			return nil
		}

		return fmt.Errorf("create embedding: %w", err)
	}

	if err := store(ctx, args.RecordID, embedding); err != nil {
		w.logger.Error("embedding: store failed",
			"recordType", args.RecordType, "recordId", args.RecordID.String(), "error", err)

		return fmt.Errorf("set embedding: %w", err)
	}

	w.logger.Info("embedding: stored", "recordType", args.RecordType, "recordId", args.RecordID.String())

	return nil
}

type storeFunc func(ctx context.Context, id uuid.UUID, embedding []float32) error

// resolve fetches the record text and the matching persistence function for
// the job's record type.
func (w *EmbeddingWorker) resolve(ctx context.Context, args service.EmbeddingArgs) (string, storeFunc, error) {
	switch args.RecordType {
	case service.EmbeddingRecordFeedback:
		item, err := w.feedback.GetByID(ctx, args.RecordID)
		if err != nil {
			return "", nil, fmt.Errorf("get feedback item: %w", err)
		}

		return service.FeedbackEmbeddingText(item), w.feedback.SetEmbedding, nil

	case service.EmbeddingRecordIdea:
		idea, err := w.ideas.GetByID(ctx, args.RecordID)
		if err != nil {
			return "", nil, fmt.Errorf("get idea: %w", err)
		}

		return service.IdeaEmbeddingText(idea), w.ideas.SetEmbedding, nil

	default:
		return "", nil, fmt.Errorf("unknown record type %q", args.RecordType)
	}
}
