package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/lumina-ai/lumina/internal/domain"
)

const defaultTopK = 5

// ChunkStore exposes the chunks table as a set of named vector collections
type ChunkStore struct {
	db *DB
}

// NewChunkStore creates a pgvector-backed collection store
func NewChunkStore(db *DB) *ChunkStore {
	return &ChunkStore{db: db}
}

// Upsert writes items into a collection; an existing chunk id is overwritten
func (s *ChunkStore) Upsert(ctx context.Context, collectionID string, items []domain.ChunkItem) error {
	if len(items) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(
			`INSERT INTO chunks (collection_id, chunk_id, content, filename, chunk_index, embedding_model, embedding)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 ON CONFLICT (collection_id, chunk_id) DO UPDATE SET
			   content = EXCLUDED.content,
			   filename = EXCLUDED.filename,
			   chunk_index = EXCLUDED.chunk_index,
			   embedding_model = EXCLUDED.embedding_model,
			   embedding = EXCLUDED.embedding,
			   updated_at = NOW()`,
			collectionID, item.ID, item.Text, item.Metadata.Filename, item.Metadata.Index,
			item.Metadata.EmbeddingModel, pgvector.NewVector(item.Embedding),
		)
	}

	br := s.db.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := range items {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to upsert chunk %d into %s: %w", i, collectionID, err)
		}
	}
	return nil
}

// Query returns the topK chunks of a collection closest to embedding by cosine distance
func (s *ChunkStore) Query(ctx context.Context, collectionID string, embedding []float32, topK int) ([]domain.Match, error) {
	if topK <= 0 {
		topK = defaultTopK
	}
	if len(embedding) == 0 {
		return nil, nil
	}

	rows, err := s.db.pool.Query(ctx,
		`SELECT chunk_id, content, filename, chunk_index, embedding_model, embedding <=> $2 AS distance
		 FROM chunks
		 WHERE collection_id = $1 AND vector_dims(embedding) = $3
		 ORDER BY distance
		 LIMIT $4`,
		collectionID, pgvector.NewVector(embedding), len(embedding), topK,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}
	defer rows.Close()

	var matches []domain.Match
	for rows.Next() {
		var m domain.Match
		var distance float64
		if err := rows.Scan(&m.ID, &m.Text, &m.Metadata.Filename, &m.Metadata.Index,
			&m.Metadata.EmbeddingModel, &distance); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		m.Score = float32(1 - distance)
		matches = append(matches, m)
	}
	return matches, rows.Err()
}
