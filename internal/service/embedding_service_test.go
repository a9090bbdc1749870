package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/roadmaphq/triage/internal/embeddings"
	"github.com/roadmaphq/triage/internal/models"
)

func TestNormalizeEmbeddingText(t *testing.T) {
	assert.Equal(t, "a b c", NormalizeEmbeddingText("  a\n\tb   c  "))
	assert.Equal(t, "", NormalizeEmbeddingText("   \n\t  "))

	long := strings.Repeat("x", maxEmbeddingChars+500)
	assert.Len(t, NormalizeEmbeddingText(long), maxEmbeddingChars)

	t.Run("truncation never splits a rune", func(t *testing.T) {
		// A two-byte rune straddles the cut: byte budget falls on its
		// continuation byte, so the whole rune must be dropped.
		straddled := strings.Repeat("a", maxEmbeddingChars-1) + "é" + strings.Repeat("b", 100)

		got := NormalizeEmbeddingText(straddled)
		assert.True(t, utf8.ValidString(got))
		assert.Len(t, got, maxEmbeddingChars-1)
		assert.Equal(t, strings.Repeat("a", maxEmbeddingChars-1), got)
	})
}

func TestEmbeddingTextBuilders(t *testing.T) {
	t.Run("feedback with title", func(t *testing.T) {
		item := models.FeedbackItem{Title: strPtr(" CSV export "), Description: " export my data "}
		assert.Equal(t, "CSV export. export my data", FeedbackEmbeddingText(&item))
	})

	t.Run("feedback without title", func(t *testing.T) {
		item := models.FeedbackItem{Description: "export my data"}
		assert.Equal(t, "export my data", FeedbackEmbeddingText(&item))
	})

	t.Run("idea", func(t *testing.T) {
		idea := models.Idea{Title: "CSV export", Description: "let users export data"}
		assert.Equal(t, "CSV export. let users export data", IdeaEmbeddingText(&idea))
	})

	t.Run("product area joins keywords", func(t *testing.T) {
		area := models.ProductArea{
			Name:        "Billing",
			Description: "payments and invoicing",
			Keywords:    []string{"invoice", "", "refund"},
		}
		assert.Equal(t, "Billing. payments and invoicing. invoice. refund", ProductAreaEmbeddingText(&area))
	})
}

func TestEmbeddingServiceEmbed(t *testing.T) {
	t.Run("nil without a provider", func(t *testing.T) {
		svc := NewEmbeddingService(EmbeddingServiceParams{Client: nil})
		assert.Nil(t, svc.Embed(context.Background(), "some text"))
		assert.False(t, svc.Configured())
	})

	t.Run("nil for empty text without calling the provider", func(t *testing.T) {
		client := &mockEmbeddingClient{
			createFunc: func(context.Context, string) ([]float32, error) { return []float32{1}, nil },
		}
		svc := NewEmbeddingService(EmbeddingServiceParams{Client: client})

		assert.Nil(t, svc.Embed(context.Background(), "   \n  "))
		assert.Zero(t, client.calls)
	})

	t.Run("nil on provider failure", func(t *testing.T) {
		client := &mockEmbeddingClient{
			createFunc: func(context.Context, string) ([]float32, error) { return nil, errors.New("upstream") },
		}
		svc := NewEmbeddingService(EmbeddingServiceParams{Client: client})

		assert.Nil(t, svc.Embed(context.Background(), "some text"))
	})

	t.Run("provider receives normalized text", func(t *testing.T) {
		client := &mockEmbeddingClient{
			createFunc: func(context.Context, string) ([]float32, error) { return []float32{1, 2}, nil },
		}
		svc := NewEmbeddingService(EmbeddingServiceParams{Client: client})

		vec := svc.Embed(context.Background(), "  hello\n  world ")
		assert.Equal(t, []float32{1, 2}, vec)
		assert.Equal(t, "hello world", client.lastInput)
	})

	t.Run("deterministic provider gives identical vectors", func(t *testing.T) {
		svc := NewEmbeddingService(EmbeddingServiceParams{Client: embeddings.NewMockClientWithDimensions(64)})

		first := svc.Embed(context.Background(), "export my data")
		second := svc.Embed(context.Background(), " export\tmy data ")
		assert.Equal(t, first, second)
	})
}
