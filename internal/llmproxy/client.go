// Package llmproxy is an HTTP client for the server-side LLM proxy endpoint.
// The proxy holds provider credentials; this process sends a single action
// envelope ({action: "chat"|"embed"}) and receives one normalized response
// regardless of which concrete provider backs it.
package llmproxy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/roadmaphq/triage/internal/llm"
)

var (
	// ErrEmptyInput is returned when CreateEmbedding is called with empty input.
	ErrEmptyInput = errors.New("llmproxy: input text is empty")
	// ErrNoMessages is returned when Complete is called with an empty transcript.
	ErrNoMessages = errors.New("llmproxy: messages must not be empty")
	// ErrNoEmbeddingInResponse is returned when the proxy response contains no embedding.
	ErrNoEmbeddingInResponse = errors.New("llmproxy: no embedding in response")
	// ErrNoContentInResponse is returned when the proxy response contains no content.
	ErrNoContentInResponse = errors.New("llmproxy: no content in response")
)

const (
	actionChat  = "chat"
	actionEmbed = "embed"

	defaultTimeout = 2 * time.Minute
)

// Client calls the proxy endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// NewClient creates a proxy client for the given endpoint URL.
func NewClient(endpoint string) *Client {
	return &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

// request is the action envelope sent to the proxy.
type request struct {
	Action   string        `json:"action"`
	Messages []llm.Message `json:"messages,omitempty"`
	Input    string        `json:"input,omitempty"`
}

// response is the normalized proxy response. Exactly one of Content,
// Embedding, or Error is set.
type response struct {
	Content   string    `json:"content,omitempty"`
	Embedding []float32 `json:"embedding,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// CreateEmbedding requests an embedding for the given text through the proxy.
func (c *Client) CreateEmbedding(ctx context.Context, input string) ([]float32, error) {
	if input == "" {
		return nil, ErrEmptyInput
	}

	resp, err := c.do(ctx, request{Action: actionEmbed, Input: input})
	if err != nil {
		return nil, err
	}

	if len(resp.Embedding) == 0 {
		return nil, ErrNoEmbeddingInResponse
	}

	return resp.Embedding, nil
}

// Complete sends a chat transcript through the proxy and returns the
// completion text.
func (c *Client) Complete(ctx context.Context, messages []llm.Message) (string, error) {
	if len(messages) == 0 {
		return "", ErrNoMessages
	}

	resp, err := c.do(ctx, request{Action: actionChat, Messages: messages})
	if err != nil {
		return "", err
	}

	if resp.Content == "" {
		return "", ErrNoContentInResponse
	}

	return resp.Content, nil
}

func (c *Client) do(ctx context.Context, payload request) (*response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("llmproxy: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("llmproxy: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("llmproxy: request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(httpResp.Body)

		return nil, fmt.Errorf("llmproxy: proxy returned %d: %s", httpResp.StatusCode, string(bodyBytes))
	}

	var parsed response
	if err := json.NewDecoder(httpResp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("llmproxy: decode response: %w", err)
	}

	if parsed.Error != "" {
		return nil, fmt.Errorf("llmproxy: proxy error: %s", parsed.Error)
	}

	return &parsed, nil
}

var _ llm.Client = (*Client)(nil)
