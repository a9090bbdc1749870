// Package vectormath provides small pure helpers for embedding vectors
// (cosine similarity, L2 normalization).
package vectormath

import (
	"math"
)

// CosineSimilarity returns dot(a,b) / (|a| * |b|) for two vectors of equal
// length. It returns 0 (never NaN and never an error) when the lengths differ
// or either vector has zero norm, so callers can treat "not comparable" as
// "not similar".
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64

	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// NormalizeL2 scales vector in place to unit length. A zero vector is left
// unchanged.
func NormalizeL2(vector []float32) {
	var sumSquares float64

	for _, v := range vector {
		sumSquares += float64(v) * float64(v)
	}

	if sumSquares == 0 {
		return
	}

	magnitude := math.Sqrt(sumSquares)

	for i := range vector {
		vector[i] = float32(float64(vector[i]) / magnitude)
	}
}
