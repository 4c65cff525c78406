//go:build !onnx

package main

import (
	"log"

	"github.com/memchat/memchat/memory"
	"github.com/memchat/memchat/memory/embedder/cache"
	"github.com/memchat/memchat/memory/embedder/mock"
)

// newEmbedder builds the embedding pipeline with a ristretto cache in
// front. Without the onnx build tag the hash-based embedder stands in; it
// gives stable but not semantic vectors.
func newEmbedder() (memory.Embedder, error) {
	log.Println("⚠️  Built without onnx tag, using hash-based embedder")
	return cache.New(mock.New(), embeddingCacheEntries)
}
