// Package qdrantstore keeps each collection in its own Qdrant collection.
package qdrantstore

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/lumina-ai/lumina/internal/domain"
	"github.com/lumina-ai/lumina/internal/log"
)

const defaultTopK = 5

// Point ids must be UUIDs or integers, so chunk ids are mapped into this namespace
var pointNamespace = uuid.MustParse("6f1c3a52-8f0e-4c8a-9d61-2a0f4b7e9c13")

const (
	payloadChunkID        = "chunk_id"
	payloadText           = "text"
	payloadFilename       = "filename"
	payloadChunkIndex     = "chunk_index"
	payloadEmbeddingModel = "embedding_model"
)

// Config holds the Qdrant connection settings
type Config struct {
	Host   string
	Port   int
	APIKey string
}

// Store implements domain.VectorStore on top of Qdrant
type Store struct {
	client *qdrant.Client
	logger *slog.Logger
}

// New connects to Qdrant over gRPC
func New(cfg Config) (*Store, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to qdrant: %w", err)
	}
	return &Store{
		client: client,
		logger: log.NewModuleLogger("vector", "qdrant"),
	}, nil
}

// Ping checks the server is reachable
func (s *Store) Ping(ctx context.Context) error {
	if _, err := s.client.ListCollections(ctx); err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}
	return nil
}

// Close closes the gRPC connection
func (s *Store) Close() error {
	return s.client.Close()
}

// Upsert writes items, creating the collection on first use
func (s *Store) Upsert(ctx context.Context, collectionID string, items []domain.ChunkItem) error {
	if len(items) == 0 {
		return nil
	}

	if err := s.ensureCollection(ctx, collectionID, uint64(len(items[0].Embedding))); err != nil {
		return err
	}

	points, err := buildPoints(items)
	if err != nil {
		return err
	}

	wait := true
	if _, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collectionID,
		Wait:           &wait,
		Points:         points,
	}); err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}

	s.logger.Debug("Upserted points", "collection", collectionID, "count", len(items))
	return nil
}

// Query returns the topK nearest chunks in collectionID
func (s *Store) Query(ctx context.Context, collectionID string, embedding []float32, topK int) ([]domain.Match, error) {
	if topK <= 0 {
		topK = defaultTopK
	}

	exists, err := s.client.CollectionExists(ctx, collectionID)
	if err != nil {
		return nil, fmt.Errorf("failed to check collection: %w", err)
	}
	if !exists {
		return nil, nil
	}

	limit := uint64(topK)
	hits, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collectionID,
		Query:          qdrant.NewQuery(embedding...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query qdrant: %w", err)
	}

	matches := make([]domain.Match, 0, len(hits))
	for _, hit := range hits {
		matches = append(matches, hitToMatch(hit))
	}
	return matches, nil
}

func (s *Store) ensureCollection(ctx context.Context, name string, size uint64) error {
	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     size,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection %s: %w", name, err)
	}
	s.logger.Info("Created collection", "collection", name, "dim", size)
	return nil
}

// pointID maps a chunk id to a stable UUID so re-upserts overwrite
func pointID(chunkID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(chunkID)).String()
}

func buildPoints(items []domain.ChunkItem) ([]*qdrant.PointStruct, error) {
	points := make([]*qdrant.PointStruct, len(items))
	for i, item := range items {
		vec := make([]float32, len(item.Embedding))
		copy(vec, item.Embedding)

		// Payload strings must be valid UTF-8
		payload, err := qdrant.TryValueMap(map[string]any{
			payloadChunkID:        strings.ToValidUTF8(item.ID, ""),
			payloadText:           strings.ToValidUTF8(item.Text, ""),
			payloadFilename:       strings.ToValidUTF8(item.Metadata.Filename, ""),
			payloadChunkIndex:     int64(item.Metadata.Index),
			payloadEmbeddingModel: item.Metadata.EmbeddingModel,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to build payload for %s: %w", item.ID, err)
		}

		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(pointID(item.ID)),
			Vectors: qdrant.NewVectors(vec...),
			Payload: payload,
		}
	}
	return points, nil
}

func hitToMatch(hit *qdrant.ScoredPoint) domain.Match {
	payload := hit.GetPayload()
	return domain.Match{
		ID:   payload[payloadChunkID].GetStringValue(),
		Text: payload[payloadText].GetStringValue(),
		Metadata: domain.ChunkMetadata{
			Filename:       payload[payloadFilename].GetStringValue(),
			Index:          int(payload[payloadChunkIndex].GetIntegerValue()),
			EmbeddingModel: payload[payloadEmbeddingModel].GetStringValue(),
		},
		Score: hit.GetScore(),
	}
}
