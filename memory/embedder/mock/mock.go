// Package mock provides a deterministic embedder for tests. No model is
// loaded; vectors are derived from the words in the text, so texts that
// share words land near each other in embedding space.
package mock

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

const defaultDimensions = 384 // matches all-MiniLM-L6-v2

// Embedder hashes each word into a sparse component vector and sums them.
type Embedder struct {
	dimensions int
}

// New creates a mock embedder with MiniLM-compatible dimensions.
func New() *Embedder {
	return &Embedder{dimensions: defaultDimensions}
}

// Embed returns a unit vector derived from the lowercased words of text.
// Identical texts always produce identical vectors.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dimensions)

	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		words = []string{""}
	}

	for _, word := range words {
		h := fnv.New64a()
		h.Write([]byte(word))
		seed := h.Sum64()

		// Spread each word over a handful of pseudo-random components.
		for k := 0; k < 8; k++ {
			seed = seed*6364136223846793005 + 1442695040888963407
			idx := int(seed % uint64(e.dimensions))
			if seed&1 == 0 {
				vec[idx] += 1
			} else {
				vec[idx] -= 1
			}
		}
	}

	return unit(vec), nil
}

// Dimensions returns the embedding vector size.
func (e *Embedder) Dimensions() int {
	return e.dimensions
}

func unit(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		vec[0] = 1
		return vec
	}
	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}
