// Package chromem implements the memory store on chromem-go, a pure Go
// embedded vector database. It keeps everything in process memory and is
// used when no external vector store is configured, and in tests.
package chromem

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	chromem "github.com/philippgille/chromem-go"

	"github.com/memchat/memchat/memory"
)

// ChromemStore wraps chromem-go for vector storage.
//
// chromem's query API is similarity-only, so the store keeps a side index
// of records per user to answer List and to validate Delete targets.
type ChromemStore struct {
	db *chromem.DB

	mu          sync.RWMutex
	collections map[string]*chromem.Collection
	records     map[string]map[string]memory.Record // userID -> id -> record
}

// New creates an empty in-memory store.
func New() (*ChromemStore, error) {
	return &ChromemStore{
		db:          chromem.NewDB(),
		collections: make(map[string]*chromem.Collection),
		records:     make(map[string]map[string]memory.Record),
	}, nil
}

// getOrCreateCollection returns the per-user collection, creating it on
// first use. Each user gets their own collection for namespace isolation.
func (s *ChromemStore) getOrCreateCollection(userID string) (*chromem.Collection, error) {
	s.mu.RLock()
	col, exists := s.collections[userID]
	s.mu.RUnlock()
	if exists {
		return col, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if col, exists := s.collections[userID]; exists {
		return col, nil
	}

	name := "user_" + userID
	if userID == "" {
		name = "global"
	}

	// No embedding func: callers provide embeddings. Default cosine distance.
	col, err := s.db.CreateCollection(name, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	s.collections[userID] = col
	return col, nil
}

// Store saves a record with its embedding.
func (s *ChromemStore) Store(ctx context.Context, rec memory.Record, embedding []float32) error {
	col, err := s.getOrCreateCollection(rec.UserID)
	if err != nil {
		return err
	}

	doc := chromem.Document{
		ID:        rec.ID,
		Content:   rec.Text,
		Embedding: embedding,
		Metadata: map[string]string{
			"user_id":    rec.UserID,
			"created_at": rec.CreatedAt.UTC().Format(time.RFC3339),
		},
	}
	if err := col.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("add document: %w", err)
	}

	s.mu.Lock()
	if s.records[rec.UserID] == nil {
		s.records[rec.UserID] = make(map[string]memory.Record)
	}
	s.records[rec.UserID][rec.ID] = rec
	s.mu.Unlock()
	return nil
}

// Query retrieves records by vector similarity.
func (s *ChromemStore) Query(ctx context.Context, userID string, embedding []float32, limit int) ([]memory.Record, error) {
	col, err := s.getOrCreateCollection(userID)
	if err != nil {
		return nil, err
	}

	// chromem requires nResults <= collection size; shrink until it fits.
	var results []chromem.Result
	for n := limit; n >= 1; n-- {
		results, err = col.QueryEmbedding(ctx, embedding, n, nil, nil)
		if err == nil {
			break
		}
		if isInsufficientDocsError(err) {
			if n == 1 {
				return nil, nil // collection is empty
			}
			continue
		}
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	records := make([]memory.Record, 0, len(results))
	for _, res := range results {
		records = append(records, toRecord(userID, res.ID, res.Content, res.Metadata))
	}
	return records, nil
}

// List returns every record owned by userID from the side index.
func (s *ChromemStore) List(ctx context.Context, userID string) ([]memory.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byID := s.records[userID]
	records := make([]memory.Record, 0, len(byID))
	for _, rec := range byID {
		records = append(records, rec)
	}
	return records, nil
}

// Delete removes a record from the collection and the side index.
func (s *ChromemStore) Delete(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	byID := s.records[userID]
	if _, ok := byID[id]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("memory %s not found", id)
	}
	delete(byID, id)
	col := s.collections[userID]
	s.mu.Unlock()

	if col != nil {
		if err := col.Delete(ctx, nil, nil, id); err != nil {
			return fmt.Errorf("chromem delete: %w", err)
		}
	}
	return nil
}

// Healthy always succeeds: the store lives in this process.
func (s *ChromemStore) Healthy(ctx context.Context) error {
	return nil
}

// Close releases nothing; chromem keeps everything in memory.
func (s *ChromemStore) Close() error {
	return nil
}

// toRecord adapts a chromem result to the normalized record. This is the
// single place the raw metadata shape is interpreted.
func toRecord(userID, id, text string, metadata map[string]string) memory.Record {
	createdAt, _ := time.Parse(time.RFC3339, metadata["created_at"])
	return memory.Record{
		ID:        id,
		UserID:    userID,
		Text:      text,
		CreatedAt: createdAt,
	}
}

// isInsufficientDocsError reports whether err means the collection holds
// fewer documents than requested.
func isInsufficientDocsError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "nResults must be") || strings.Contains(msg, "number of documents")
}
