package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/riverqueue/river"

	"github.com/roadmaphq/triage/internal/models"
)

// FeedbackCreator inserts new feedback rows.
type FeedbackCreator interface {
	Create(ctx context.Context, f *models.FeedbackItem) (*models.FeedbackItem, error)
}

// IdeaCreator inserts new idea rows.
type IdeaCreator interface {
	Create(ctx context.Context, idea *models.Idea) (*models.Idea, error)
}

// RecordsService creates feedback items and ideas and enqueues their
// embedding jobs. The insert commits first; a failed enqueue leaves the row
// unembedded for the backfill tool rather than failing the request.
type RecordsService struct {
	feedback    FeedbackCreator
	ideas       IdeaCreator
	inserter    EmbeddingJobInserter
	maxAttempts int
	logger      *slog.Logger
}

// RecordsServiceParams configures RecordsService. Inserter may be nil (no
// embedding provider configured); records are then created without jobs.
type RecordsServiceParams struct {
	Feedback    FeedbackCreator
	Ideas       IdeaCreator
	Inserter    EmbeddingJobInserter
	MaxAttempts int
	Logger      *slog.Logger
}

// NewRecordsService creates a RecordsService.
func NewRecordsService(p RecordsServiceParams) *RecordsService {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &RecordsService{
		feedback:    p.Feedback,
		ideas:       p.Ideas,
		inserter:    p.Inserter,
		maxAttempts: p.MaxAttempts,
		logger:      logger,
	}
}

// CreateFeedback inserts a feedback item and enqueues its embedding job.
func (s *RecordsService) CreateFeedback(ctx context.Context, f *models.FeedbackItem) (*models.FeedbackItem, error) {
	created, err := s.feedback.Create(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("create feedback: %w", err)
	}

	s.enqueueEmbedding(ctx, EmbeddingRecordFeedback, created.ID)

	return created, nil
}

// CreateIdea inserts an idea and enqueues its embedding job.
func (s *RecordsService) CreateIdea(ctx context.Context, idea *models.Idea) (*models.Idea, error) {
	created, err := s.ideas.Create(ctx, idea)
	if err != nil {
		return nil, fmt.Errorf("create idea: %w", err)
	}

	s.enqueueEmbedding(ctx, EmbeddingRecordIdea, created.ID)

	return created, nil
}

func (s *RecordsService) enqueueEmbedding(ctx context.Context, recordType string, recordID uuid.UUID) {
	if s.inserter == nil {
		return
	}

	args := EmbeddingArgs{RecordType: recordType, RecordID: recordID}

	_, err := s.inserter.Insert(ctx, args, &river.InsertOpts{
		Queue:       EmbeddingsQueueName,
		MaxAttempts: s.maxAttempts,
		UniqueOpts:  river.UniqueOpts{ByArgs: true},
	})
	if err != nil {
		s.logger.Warn("enqueue embedding job failed; record left for backfill",
			"recordType", recordType, "recordId", recordID.String(), "error", err)
	}
}
