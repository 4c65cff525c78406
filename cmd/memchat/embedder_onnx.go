//go:build onnx

package main

import (
	"os"

	"github.com/memchat/memchat/memory"
	"github.com/memchat/memchat/memory/embedder/cache"
	"github.com/memchat/memchat/memory/embedder/onnx"
)

// newEmbedder loads the local MiniLM model and fronts it with a ristretto
// cache. Model files default to ./models/all-MiniLM-L6-v2 and can be moved
// with MEMCHAT_MODEL_DIR.
func newEmbedder() (memory.Embedder, error) {
	dir := os.Getenv("MEMCHAT_MODEL_DIR")
	if dir == "" {
		dir = "models/all-MiniLM-L6-v2"
	}

	embedder, err := onnx.New(onnx.Config{
		ModelPath:     dir + "/model.onnx",
		TokenizerPath: dir + "/tokenizer.json",
	})
	if err != nil {
		return nil, err
	}
	return cache.New(embedder, embeddingCacheEntries)
}
