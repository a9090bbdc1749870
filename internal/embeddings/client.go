// Package embeddings defines the provider-agnostic embedding contract.
// Provider adapters (OpenAI, Gemini, proxy) implement Client; the matching
// core depends only on this interface and never branches on provider identity.
package embeddings

import "context"

// Client generates an embedding vector for a single text. The returned slice
// length is fixed per deployment; adapters reconcile any other native
// dimensionality before returning.
type Client interface {
	CreateEmbedding(ctx context.Context, input string) ([]float32, error)
}
