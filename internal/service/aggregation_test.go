package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roadmaphq/triage/internal/models"
)

func TestDedupedARR(t *testing.T) {
	t.Run("same account takes max not sum", func(t *testing.T) {
		items := []models.FeedbackItem{
			feedbackItem("Acme", 100),
			feedbackItem("Acme", 500),
		}

		total, customers := DedupedARR(items)
		assert.InDelta(t, 500, total, 1e-9)
		assert.Equal(t, 1, customers)
	})

	t.Run("distinct accounts sum", func(t *testing.T) {
		items := []models.FeedbackItem{
			feedbackItem("Acme", 100),
			feedbackItem("Globex", 500),
		}

		total, customers := DedupedARR(items)
		assert.InDelta(t, 600, total, 1e-9)
		assert.Equal(t, 2, customers)
	})

	t.Run("unnamed accounts excluded from customer count", func(t *testing.T) {
		items := []models.FeedbackItem{
			feedbackItem("Acme", 100),
			feedbackItem("", 900),
		}

		total, customers := DedupedARR(items)
		assert.InDelta(t, 100, total, 1e-9)
		assert.Equal(t, 1, customers)
	})

	t.Run("empty input", func(t *testing.T) {
		total, customers := DedupedARR(nil)
		assert.Zero(t, total)
		assert.Zero(t, customers)
	})
}

func TestDedupedPotentialARR(t *testing.T) {
	withPotential := func(account string, arr, potential float64) models.FeedbackItem {
		item := feedbackItem(account, arr)
		item.PotentialARR = floatPtr(potential)

		return item
	}

	t.Run("potential comes from the max-ARR row", func(t *testing.T) {
		// Acme's 500-ARR row carries potential 50; the 100-ARR row's larger
		// potential 900 must not win independently.
		items := []models.FeedbackItem{
			withPotential("Acme", 100, 900),
			withPotential("Acme", 500, 50),
		}

		assert.InDelta(t, 50, DedupedPotentialARR(items), 1e-9)
	})

	t.Run("ties keep the first-seen row", func(t *testing.T) {
		items := []models.FeedbackItem{
			withPotential("Acme", 500, 70),
			withPotential("Acme", 500, 10),
		}

		assert.InDelta(t, 70, DedupedPotentialARR(items), 1e-9)
	})

	t.Run("distinct accounts sum", func(t *testing.T) {
		items := []models.FeedbackItem{
			withPotential("Acme", 100, 30),
			withPotential("Globex", 200, 40),
		}

		assert.InDelta(t, 70, DedupedPotentialARR(items), 1e-9)
	})

	t.Run("unnamed accounts excluded", func(t *testing.T) {
		items := []models.FeedbackItem{withPotential("", 100, 900)}

		assert.Zero(t, DedupedPotentialARR(items))
	})
}

func TestIdeaScore(t *testing.T) {
	// 3*15 + 200000*0.0001 + 2*20 = 45 + 20 + 40
	assert.Equal(t, 105, IdeaScore(3, 200000, 2))
	assert.Equal(t, 0, IdeaScore(0, 0, 0))
	assert.Equal(t, 16, IdeaScore(1, 5000, 0)) // 15 + 0.5 rounds up
}

func TestComputeIdeaMetrics(t *testing.T) {
	items := []models.FeedbackItem{
		feedbackItem("Acme", 100000),
		feedbackItem("Acme", 100000),
		feedbackItem("Globex", 100000),
	}

	metrics := ComputeIdeaMetrics(items)
	assert.Equal(t, 3, metrics.FeedbackCount)
	assert.InDelta(t, 200000, metrics.TotalARR, 1e-9)
	assert.Equal(t, 2, metrics.CustomerCount)
	assert.Equal(t, 105, metrics.Score)
}

func TestPercentTriaged(t *testing.T) {
	t.Run("linked counts as triaged", func(t *testing.T) {
		var items []models.FeedbackItem

		add := func(n int, status models.TriageStatus) {
			for range n {
				item := feedbackItem("Acme", 0)
				item.TriageStatus = status
				items = append(items, item)
			}
		}

		add(3, models.TriageStatusNew)
		add(4, models.TriageStatusTriaged)
		// Legacy rows arrive already normalized by the repository layer.
		add(3, models.NormalizeTriageStatus("linked"))

		assert.Equal(t, 70, PercentTriaged(items))
	})

	t.Run("empty input is zero not NaN", func(t *testing.T) {
		assert.Equal(t, 0, PercentTriaged(nil))
	})
}

func TestConfidenceThresholds(t *testing.T) {
	assert.True(t, Displayable(0.5))
	assert.False(t, Displayable(0.49))
	assert.True(t, AutoAcceptable(0.8))
	assert.False(t, AutoAcceptable(0.79))
	assert.Less(t, ConfidenceDisplayThreshold, ConfidenceMatchFloor)
	assert.Less(t, ConfidenceMatchFloor, ConfidenceAutoAcceptThreshold)
}
