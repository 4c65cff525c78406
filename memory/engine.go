package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultSearchLimit caps similarity searches when the caller passes no
// explicit limit.
const DefaultSearchLimit = 5

// Engine embeds text and stores or retrieves records through a Store.
// It is safe for concurrent use if its Store and Embedder are.
type Engine struct {
	store    Store
	embedder Embedder
}

// NewEngine creates an Engine over the given store and embedder.
func NewEngine(store Store, embedder Embedder) *Engine {
	return &Engine{
		store:    store,
		embedder: embedder,
	}
}

// Search returns up to limit records relevant to query, ranked by the
// store's similarity score.
func (e *Engine) Search(ctx context.Context, userID, query string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	embedding, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	records, err := e.store.Query(ctx, userID, embedding, limit)
	if err != nil {
		return nil, fmt.Errorf("query store: %w", err)
	}
	return records, nil
}

// Add stores one fact and returns the resulting record.
func (e *Engine) Add(ctx context.Context, userID, text string, createdAt time.Time) (Record, error) {
	embedding, err := e.embedder.Embed(ctx, text)
	if err != nil {
		return Record{}, fmt.Errorf("embed text: %w", err)
	}

	rec := Record{
		ID:        uuid.New().String(),
		UserID:    userID,
		Text:      text,
		CreatedAt: createdAt.UTC(),
	}
	if err := e.store.Store(ctx, rec, embedding); err != nil {
		return Record{}, fmt.Errorf("store record: %w", err)
	}
	return rec, nil
}

// List returns every record for the user.
func (e *Engine) List(ctx context.Context, userID string) ([]Record, error) {
	return e.store.List(ctx, userID)
}

// Delete removes a single record.
func (e *Engine) Delete(ctx context.Context, userID, id string) error {
	return e.store.Delete(ctx, userID, id)
}

// Healthy probes the underlying store.
func (e *Engine) Healthy(ctx context.Context) error {
	return e.store.Healthy(ctx)
}

// Close releases store resources.
func (e *Engine) Close() error {
	return e.store.Close()
}
