package memory

import (
	"context"
	"fmt"
	"log"
	"time"
)

// DefaultUserID is the fixed identifier all memories are stored under.
// This version has no real multi-user separation.
const DefaultUserID = "default-user"

// Gateway is the application-facing memory surface, bound to one user.
//
// Reads are best-effort: Search and ListAll convert backend failures into
// empty results with a log line, because memory lookup must never block a
// chat response. Writes propagate errors to the caller.
type Gateway struct {
	engine *Engine
	userID string
}

// NewGateway wraps an Engine under the fixed default user.
func NewGateway(engine *Engine) *Gateway {
	return &Gateway{
		engine: engine,
		userID: DefaultUserID,
	}
}

// Search returns up to limit relevant memories, or nothing on failure.
func (g *Gateway) Search(ctx context.Context, query string, limit int) []Record {
	records, err := g.engine.Search(ctx, g.userID, query, limit)
	if err != nil {
		log.Printf("[MEMORY] Search failed, continuing without memories: %v", err)
		return nil
	}
	return records
}

// ListAll returns every stored memory, or nothing on failure.
func (g *Gateway) ListAll(ctx context.Context) []Record {
	records, err := g.engine.List(ctx, g.userID)
	if err != nil {
		log.Printf("[MEMORY] List failed, returning empty: %v", err)
		return nil
	}
	return records
}

// Count returns the number of stored memories, zero on failure.
func (g *Gateway) Count(ctx context.Context) int {
	return len(g.ListAll(ctx))
}

// Add stores one fact with its creation timestamp.
func (g *Gateway) Add(ctx context.Context, text string, createdAt time.Time) (Record, error) {
	return g.engine.Add(ctx, g.userID, text, createdAt)
}

// Delete removes a single memory by ID.
func (g *Gateway) Delete(ctx context.Context, id string) error {
	return g.engine.Delete(ctx, g.userID, id)
}

// ClearAll lists every memory and deletes them one at a time. This is not
// atomic: a failure mid-sequence leaves a partially cleared store. Returns
// how many records were actually deleted.
func (g *Gateway) ClearAll(ctx context.Context) (int, error) {
	records, err := g.engine.List(ctx, g.userID)
	if err != nil {
		return 0, fmt.Errorf("list memories: %w", err)
	}

	deleted := 0
	for _, rec := range records {
		if err := g.engine.Delete(ctx, g.userID, rec.ID); err != nil {
			return deleted, fmt.Errorf("delete memory %s: %w", rec.ID, err)
		}
		deleted++
	}
	return deleted, nil
}

// Healthy probes the backing store.
func (g *Gateway) Healthy(ctx context.Context) error {
	return g.engine.Healthy(ctx)
}
