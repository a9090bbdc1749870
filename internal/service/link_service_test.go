package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roadmaphq/triage/internal/models"
)

// mockLinkStore keeps link state in memory with idempotent upsert semantics,
// mirroring the ON CONFLICT DO NOTHING behavior of the real repository.
type mockLinkStore struct {
	links    map[[2]uuid.UUID]*float64
	feedback map[uuid.UUID]models.FeedbackItem
}

func newMockLinkStore() *mockLinkStore {
	return &mockLinkStore{
		links:    make(map[[2]uuid.UUID]*float64),
		feedback: make(map[uuid.UUID]models.FeedbackItem),
	}
}

func (m *mockLinkStore) Upsert(_ context.Context, feedbackID, ideaID uuid.UUID, confidence *float64) error {
	key := [2]uuid.UUID{feedbackID, ideaID}
	if _, exists := m.links[key]; !exists {
		m.links[key] = confidence
	}

	return nil
}

func (m *mockLinkStore) Delete(_ context.Context, feedbackID, ideaID uuid.UUID) error {
	delete(m.links, [2]uuid.UUID{feedbackID, ideaID})

	return nil
}

func (m *mockLinkStore) ListFeedbackByIdea(_ context.Context, ideaID uuid.UUID) ([]models.FeedbackItem, error) {
	var linked []models.FeedbackItem

	for key := range m.links {
		if key[1] == ideaID {
			linked = append(linked, m.feedback[key[0]])
		}
	}

	return linked, nil
}

type mockIdeaMetricsStore struct {
	updates []IdeaMetrics
}

func (m *mockIdeaMetricsStore) UpdateDerivedMetrics(
	_ context.Context, _ uuid.UUID, feedbackCount int, totalARR float64, customerCount int,
) error {
	m.updates = append(m.updates, IdeaMetrics{
		FeedbackCount: feedbackCount,
		TotalARR:      totalARR,
		CustomerCount: customerCount,
	})

	return nil
}

type mockFeedbackStatusStore struct {
	statuses map[uuid.UUID]models.TriageStatus
}

func (m *mockFeedbackStatusStore) SetTriageStatus(_ context.Context, id uuid.UUID, status models.TriageStatus) error {
	if m.statuses == nil {
		m.statuses = make(map[uuid.UUID]models.TriageStatus)
	}

	m.statuses[id] = status

	return nil
}

func TestLinkServiceAccept(t *testing.T) {
	t.Run("links marks triaged and recomputes metrics", func(t *testing.T) {
		item := feedbackItem("Acme", 100000)
		ideaID := uuid.New()

		links := newMockLinkStore()
		links.feedback[item.ID] = item

		ideas := &mockIdeaMetricsStore{}
		feedback := &mockFeedbackStatusStore{}

		svc := NewLinkService(LinkServiceParams{Links: links, Ideas: ideas, Feedback: feedback})

		metrics, err := svc.Accept(context.Background(), item.ID, ideaID, floatPtr(0.9))
		require.NoError(t, err)

		assert.Equal(t, 1, metrics.FeedbackCount)
		assert.InDelta(t, 100000, metrics.TotalARR, 1e-9)
		assert.Equal(t, 1, metrics.CustomerCount)
		assert.Equal(t, IdeaScore(1, 100000, 1), metrics.Score)

		assert.Equal(t, models.TriageStatusTriaged, feedback.statuses[item.ID])
		require.Len(t, ideas.updates, 1)
	})

	t.Run("accepting the same suggestion twice never double-counts", func(t *testing.T) {
		item := feedbackItem("Acme", 100000)
		ideaID := uuid.New()

		links := newMockLinkStore()
		links.feedback[item.ID] = item

		svc := NewLinkService(LinkServiceParams{
			Links:    links,
			Ideas:    &mockIdeaMetricsStore{},
			Feedback: &mockFeedbackStatusStore{},
		})

		first, err := svc.Accept(context.Background(), item.ID, ideaID, floatPtr(0.9))
		require.NoError(t, err)

		second, err := svc.Accept(context.Background(), item.ID, ideaID, floatPtr(0.7))
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.Equal(t, 1, second.FeedbackCount)
	})
}

func TestLinkServiceUnlink(t *testing.T) {
	item := feedbackItem("Acme", 100000)
	ideaID := uuid.New()

	links := newMockLinkStore()
	links.feedback[item.ID] = item

	svc := NewLinkService(LinkServiceParams{
		Links:    links,
		Ideas:    &mockIdeaMetricsStore{},
		Feedback: &mockFeedbackStatusStore{},
	})

	_, err := svc.Accept(context.Background(), item.ID, ideaID, nil)
	require.NoError(t, err)

	metrics, err := svc.Unlink(context.Background(), item.ID, ideaID)
	require.NoError(t, err)
	assert.Zero(t, metrics.FeedbackCount)
	assert.Zero(t, metrics.TotalARR)
	assert.Zero(t, metrics.Score)
}
