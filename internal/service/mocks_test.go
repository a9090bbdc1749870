package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/roadmaphq/triage/internal/llm"
	"github.com/roadmaphq/triage/internal/models"
	"github.com/roadmaphq/triage/pkg/cache"
)

type mockLLM struct {
	completeFunc func(ctx context.Context, messages []llm.Message) (string, error)
	calls        int
	lastMessages []llm.Message
}

func (m *mockLLM) Complete(ctx context.Context, messages []llm.Message) (string, error) {
	m.calls++
	m.lastMessages = messages

	return m.completeFunc(ctx, messages)
}

type mockEmbeddingClient struct {
	createFunc func(ctx context.Context, input string) ([]float32, error)
	calls      int
	lastInput  string
}

func (m *mockEmbeddingClient) CreateEmbedding(ctx context.Context, input string) ([]float32, error) {
	m.calls++
	m.lastInput = input

	return m.createFunc(ctx, input)
}

type mockFeedbackIndex struct {
	nearestFunc func(
		ctx context.Context, queryEmbedding []float32, threshold float64, limit int, excludeIDs []uuid.UUID,
	) ([]models.FeedbackWithScore, error)
}

func (m *mockFeedbackIndex) NearestToEmbedding(
	ctx context.Context, queryEmbedding []float32, threshold float64, limit int, excludeIDs []uuid.UUID,
) ([]models.FeedbackWithScore, error) {
	return m.nearestFunc(ctx, queryEmbedding, threshold, limit, excludeIDs)
}

type mockIdeaIndex struct {
	nearestFunc func(
		ctx context.Context, queryEmbedding []float32, threshold float64, limit int, excludeIDs []uuid.UUID,
	) ([]models.IdeaWithScore, error)
}

func (m *mockIdeaIndex) NearestToEmbedding(
	ctx context.Context, queryEmbedding []float32, threshold float64, limit int, excludeIDs []uuid.UUID,
) ([]models.IdeaWithScore, error) {
	return m.nearestFunc(ctx, queryEmbedding, threshold, limit, excludeIDs)
}

type mockLinkReader struct {
	linkedFeedbackFunc func(ctx context.Context, ideaID uuid.UUID) ([]uuid.UUID, error)
	linkedIdeasFunc    func(ctx context.Context, feedbackID uuid.UUID) ([]uuid.UUID, error)
}

func (m *mockLinkReader) ListLinkedFeedbackIDs(ctx context.Context, ideaID uuid.UUID) ([]uuid.UUID, error) {
	if m.linkedFeedbackFunc == nil {
		return nil, nil
	}

	return m.linkedFeedbackFunc(ctx, ideaID)
}

func (m *mockLinkReader) ListIdeaIDsForFeedback(ctx context.Context, feedbackID uuid.UUID) ([]uuid.UUID, error) {
	if m.linkedIdeasFunc == nil {
		return nil, nil
	}

	return m.linkedIdeasFunc(ctx, feedbackID)
}

type mockFeedbackCandidates struct {
	listFunc func(ctx context.Context, limit int) ([]models.FeedbackItem, error)
}

func (m *mockFeedbackCandidates) ListCandidates(ctx context.Context, limit int) ([]models.FeedbackItem, error) {
	return m.listFunc(ctx, limit)
}

type mockIdeaCandidates struct {
	listFunc func(ctx context.Context, limit int) ([]models.Idea, error)
}

func (m *mockIdeaCandidates) ListCandidates(ctx context.Context, limit int) ([]models.Idea, error) {
	return m.listFunc(ctx, limit)
}

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

func feedbackItem(account string, arr float64) models.FeedbackItem {
	item := models.FeedbackItem{
		ID:          uuid.New(),
		Description: "feedback from " + account,
	}

	if account != "" {
		item.AccountName = strPtr(account)
	}

	if arr > 0 {
		item.AccountARR = floatPtr(arr)
	}

	return item
}

func newQueryCache(t *testing.T) *cache.LoaderCache[string, []float32] {
	t.Helper()

	c, err := cache.NewLoaderCache[string, []float32](16, func(s string) string { return s })
	require.NoError(t, err)

	return c
}

// newTestEmbedder returns an EmbeddingService over a client that always
// yields the given vector.
func newTestEmbedder(vec []float32) (*EmbeddingService, *mockEmbeddingClient) {
	client := &mockEmbeddingClient{
		createFunc: func(context.Context, string) ([]float32, error) { return vec, nil },
	}

	return NewEmbeddingService(EmbeddingServiceParams{Client: client}), client
}
