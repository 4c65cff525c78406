package memory

import (
	"context"
	"time"
)

// Record is the one normalized memory shape used everywhere above the
// storage boundary. Store implementations adapt their raw payloads into
// this type exactly once, at read time; nothing upstream probes loosely
// typed metadata maps.
type Record struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	Text      string    `json:"memory"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is the vector storage backend interface.
// Implementations: QdrantStore (external service), ChromemStore (embedded).
type Store interface {
	// Store saves a record with its embedding.
	Store(ctx context.Context, rec Record, embedding []float32) error

	// Query retrieves records by vector similarity, most similar first.
	Query(ctx context.Context, userID string, embedding []float32, limit int) ([]Record, error)

	// List returns every record owned by userID.
	List(ctx context.Context, userID string) ([]Record, error)

	// Delete removes a record permanently.
	Delete(ctx context.Context, userID, id string) error

	// Healthy reports whether the backend is reachable.
	Healthy(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// Embedder converts text to vector embeddings.
// Implementations: mock (testing), onnx (local MiniLM), cache (wrapper).
//
// The Embedder is an implementation detail of the Engine; callers above it
// never see vectors.
type Embedder interface {
	// Embed converts a single text to an embedding vector.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding vector size.
	Dimensions() int
}
