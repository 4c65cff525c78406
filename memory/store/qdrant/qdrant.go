// Package qdrant implements the memory store on a Qdrant vector database
// reached over gRPC. It is the production backend; the embedded chromem
// store covers local runs and tests.
package qdrant

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/memchat/memchat/memory"
)

const collectionName = "memories"

// QdrantStore wraps a Qdrant gRPC client. All records live in one
// collection, partitioned by a user_id payload field.
type QdrantStore struct {
	client *qdrant.Client
}

// New connects to Qdrant and ensures the memories collection exists with
// the given vector size.
func New(ctx context.Context, host string, port int, vectorSize int) (*QdrantStore, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to qdrant: %w", err)
	}

	s := &QdrantStore{client: client}
	if err := s.ensureCollection(ctx, vectorSize); err != nil {
		client.Close()
		return nil, err
	}

	log.Printf("[QDRANT] Connected to %s:%d, collection %q ready", host, port, collectionName)
	return s, nil
}

func (s *QdrantStore) ensureCollection(ctx context.Context, vectorSize int) error {
	exists, err := s.client.CollectionExists(ctx, collectionName)
	if err != nil {
		return fmt.Errorf("check collection: %w", err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(vectorSize),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("create collection: %w", err)
	}
	return nil
}

// Store upserts a record point keyed by its UUID.
func (s *QdrantStore) Store(ctx context.Context, rec memory.Record, embedding []float32) error {
	id, err := uuid.Parse(rec.ID)
	if err != nil {
		return fmt.Errorf("record id %q is not a uuid: %w", rec.ID, err)
	}

	_, err = s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collectionName,
		Points: []*qdrant.PointStruct{
			{
				Id:      qdrant.NewID(id.String()),
				Vectors: qdrant.NewVectors(embedding...),
				Payload: qdrant.NewValueMap(map[string]any{
					"user_id":    rec.UserID,
					"memory":     rec.Text,
					"created_at": rec.CreatedAt.UTC().Format(time.RFC3339),
				}),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("upsert point: %w", err)
	}
	return nil
}

// Query runs a similarity search filtered to the user's records.
func (s *QdrantStore) Query(ctx context.Context, userID string, embedding []float32, limit int) ([]memory.Record, error) {
	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collectionName,
		Query:          qdrant.NewQuery(embedding...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch("user_id", userID),
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("query points: %w", err)
	}

	records := make([]memory.Record, 0, len(points))
	for _, p := range points {
		records = append(records, toRecord(p.Id.GetUuid(), p.Payload))
	}
	return records, nil
}

// List scrolls all of the user's points without a similarity query.
func (s *QdrantStore) List(ctx context.Context, userID string) ([]memory.Record, error) {
	points, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: collectionName,
		Limit:          qdrant.PtrOf(uint32(1000)),
		WithPayload:    qdrant.NewWithPayload(true),
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch("user_id", userID),
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("scroll points: %w", err)
	}

	records := make([]memory.Record, 0, len(points))
	for _, p := range points {
		records = append(records, toRecord(p.Id.GetUuid(), p.Payload))
	}
	return records, nil
}

// Delete removes one point by ID. The userID partition is implied by the
// point ID being a UUID scoped to this deployment.
func (s *QdrantStore) Delete(ctx context.Context, userID, id string) error {
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collectionName,
		Points: qdrant.NewPointsSelector(
			qdrant.NewID(id),
		),
	})
	if err != nil {
		return fmt.Errorf("delete point: %w", err)
	}
	return nil
}

// Healthy probes the Qdrant service.
func (s *QdrantStore) Healthy(ctx context.Context) error {
	if _, err := s.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("qdrant health check: %w", err)
	}
	return nil
}

// Close tears down the gRPC connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

// toRecord adapts a Qdrant payload into the normalized record. Timestamps
// that fail to parse come back zero rather than failing the read.
func toRecord(id string, payload map[string]*qdrant.Value) memory.Record {
	createdAt, _ := time.Parse(time.RFC3339, payload["created_at"].GetStringValue())
	return memory.Record{
		ID:        id,
		UserID:    payload["user_id"].GetStringValue(),
		Text:      payload["memory"].GetStringValue(),
		CreatedAt: createdAt,
	}
}
