// Package googleai provides a thin wrapper around the Google Gen AI SDK for
// embeddings and chat (Gemini API).
package googleai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"google.golang.org/genai"

	"github.com/roadmaphq/triage/internal/llm"
	"github.com/roadmaphq/triage/pkg/vectormath"
)

var (
	// ErrEmptyInput is returned when CreateEmbedding is called with empty input.
	ErrEmptyInput = errors.New("googleai: input text is empty")
	// ErrInvalidDims is returned when dimensions is not positive.
	ErrInvalidDims = errors.New("googleai: embedding dimensions must be positive")
	// ErrNoEmbeddingInResponse is returned when the API response contains no embedding data.
	ErrNoEmbeddingInResponse = errors.New("googleai: no embedding in response")
	// ErrDimensionOverflow is returned when the response embedding is longer than the configured dimensions.
	ErrDimensionOverflow = errors.New("googleai: embedding longer than configured dimensions")
	// ErrNoCompletionInResponse is returned when the API response contains no candidates.
	ErrNoCompletionInResponse = errors.New("googleai: no completion in response")
	// ErrNoMessages is returned when Complete is called with an empty transcript.
	ErrNoMessages = errors.New("googleai: messages must not be empty")
)

const (
	defaultDimension      = 1536
	defaultEmbeddingModel = "gemini-embedding-001"
	defaultChatModel      = "gemini-2.0-flash"
)

// Client calls the Gemini embeddings and chat APIs via the Google Gen AI SDK.
type Client struct {
	client         *genai.Client
	embeddingModel string
	chatModel      string
	dimensions     int
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithDimensions sets the requested embedding dimension (must match DB column).
func WithDimensions(dim int) ClientOption {
	return func(c *Client) {
		c.dimensions = dim
	}
}

// WithEmbeddingModel sets the embedding model name. Empty uses the default.
func WithEmbeddingModel(model string) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.embeddingModel = model
		}
	}
}

// WithChatModel sets the chat model name. Empty uses the default.
func WithChatModel(model string) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.chatModel = model
		}
	}
}

// NewClient creates a Gemini client.
func NewClient(ctx context.Context, apiKey string, opts ...ClientOption) (*Client, error) {
	genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("googleai client: %w", err)
	}

	client := &Client{
		client:         genaiClient,
		embeddingModel: defaultEmbeddingModel,
		chatModel:      defaultChatModel,
		dimensions:     defaultDimension,
	}
	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// CreateEmbedding returns the embedding vector for the given text. The model
// is asked for the configured dimensionality directly; if it still returns a
// shorter native vector (older embedding models emit 768 dims), the result is
// zero-padded so mismatched dimensions are never stored or compared. The
// padding is a lossy reconciliation, so it is logged.
func (c *Client) CreateEmbedding(ctx context.Context, input string) ([]float32, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, ErrEmptyInput
	}

	if c.dimensions <= 0 || c.dimensions > math.MaxInt32 {
		return nil, ErrInvalidDims
	}

	contents := []*genai.Content{genai.NewContentFromText(input, genai.RoleUser)}
	//nolint:gosec // G115: c.dimensions is bounded above by math.MaxInt32
	dimInt32 := int32(c.dimensions)

	resp, err := c.client.Models.EmbedContent(ctx, c.embeddingModel, contents, &genai.EmbedContentConfig{
		OutputDimensionality: &dimInt32,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini embedding: %w", err)
	}

	if len(resp.Embeddings) == 0 {
		return nil, ErrNoEmbeddingInResponse
	}

	emb := resp.Embeddings[0].Values

	switch {
	case len(emb) == c.dimensions:
		out := make([]float32, len(emb))
		copy(out, emb)

		// Truncated output dimensionalities are not unit-normalized by
		// the API.
		vectormath.NormalizeL2(out)

		return out, nil
	case len(emb) > c.dimensions:
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionOverflow, len(emb), c.dimensions)
	default:
		slog.Warn("gemini embedding shorter than configured dimensions, zero-padding",
			"got", len(emb), "want", c.dimensions, "model", c.embeddingModel)

		out := make([]float32, c.dimensions)
		copy(out, emb)
		vectormath.NormalizeL2(out)

		return out, nil
	}
}

// Complete sends a role-tagged transcript to the Gemini chat API and returns
// the response text. The system message (if any) becomes the system
// instruction; assistant messages map to the "model" role.
func (c *Client) Complete(ctx context.Context, messages []llm.Message) (string, error) {
	if len(messages) == 0 {
		return "", ErrNoMessages
	}

	var cfg *genai.GenerateContentConfig

	contents := make([]*genai.Content, 0, len(messages))

	for _, m := range messages {
		switch m.Role {
		case llm.RoleSystem:
			cfg = &genai.GenerateContentConfig{
				SystemInstruction: genai.NewContentFromText(m.Content, genai.RoleUser),
			}
		case llm.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.chatModel, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini chat: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrNoCompletionInResponse
	}

	var sb strings.Builder

	for _, part := range resp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}

	if sb.Len() == 0 {
		return "", ErrNoCompletionInResponse
	}

	return sb.String(), nil
}

var _ llm.Client = (*Client)(nil)
