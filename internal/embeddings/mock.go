package embeddings

import (
	"context"
	"crypto/sha256"
	"fmt"

	"github.com/roadmaphq/triage/pkg/vectormath"
)

// MockClient implements Client for testing. It generates deterministic
// embeddings from a hash of the input text, so embedding the same normalized
// text twice always yields the identical vector.
type MockClient struct {
	dimensions int
}

// NewMockClient creates a mock embedding client with 1536 dimensions,
// matching text-embedding-3-small.
func NewMockClient() *MockClient {
	return &MockClient{dimensions: 1536}
}

// NewMockClientWithDimensions creates a mock client with custom dimensions.
func NewMockClientWithDimensions(dimensions int) *MockClient {
	return &MockClient{dimensions: dimensions}
}

// CreateEmbedding generates a deterministic unit-length embedding from the text hash.
func (c *MockClient) CreateEmbedding(ctx context.Context, input string) ([]float32, error) {
	if input == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	hash := sha256.Sum256([]byte(input))
	embedding := make([]float32, c.dimensions)

	for i := 0; i < c.dimensions; i++ {
		// Cycle hash bytes into floats in [-1, 1].
		byteIdx := i % len(hash)
		embedding[i] = (float32(hash[byteIdx]) / 127.5) - 1.0
	}

	vectormath.NormalizeL2(embedding)

	return embedding, nil
}

var _ Client = (*MockClient)(nil)
