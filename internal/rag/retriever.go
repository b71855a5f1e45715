package rag

import (
	"context"
	"log/slog"
	"time"

	"github.com/lumina-ai/lumina/internal/domain"
	"github.com/lumina-ai/lumina/internal/log"
)

// Retriever finds relevant chunks across a conversation's collections
type Retriever struct {
	embedder     domain.Embedder
	store        domain.VectorStore
	topK         int
	embedTimeout time.Duration
	queryTimeout time.Duration
	logger       *slog.Logger
}

// NewRetriever creates a new RAG retriever
func NewRetriever(embedder domain.Embedder, store domain.VectorStore, topK int, embedTimeout, queryTimeout time.Duration) *Retriever {
	if topK <= 0 {
		topK = 5
	}
	return &Retriever{
		embedder:     embedder,
		store:        store,
		topK:         topK,
		embedTimeout: embedTimeout,
		queryTimeout: queryTimeout,
		logger:       log.NewModuleLogger("rag", "retriever"),
	}
}

// RetrievalResult contains the chunks found, in retrieval order
type RetrievalResult struct {
	Chunks []domain.Match
	// Collections lists every collection that was searched
	Collections []string
	// Misses lists collections that returned nothing or failed
	Misses []string
}

// CollectionIDs returns the distinct collection ids of pdfs in first-seen order
func CollectionIDs(pdfs []domain.PDF) []string {
	seen := make(map[string]struct{}, len(pdfs))
	ids := make([]string, 0, len(pdfs))
	for _, p := range pdfs {
		if _, ok := seen[p.CollectionID]; ok {
			continue
		}
		seen[p.CollectionID] = struct{}{}
		ids = append(ids, p.CollectionID)
	}
	return ids
}

// Retrieve queries each collection for its own top K. Results are concatenated
// in collection order without global re-ranking. Failures count as misses.
func (r *Retriever) Retrieve(ctx context.Context, query string, pdfs []domain.PDF) *RetrievalResult {
	result := &RetrievalResult{Collections: CollectionIDs(pdfs)}
	if len(result.Collections) == 0 {
		return result
	}

	logger := log.FromContext(ctx, r.logger)

	embedCtx, cancel := withTimeout(ctx, r.embedTimeout)
	queryEmbedding, err := r.embedder.Embed(embedCtx, query)
	cancel()
	if err != nil {
		logger.Warn("Failed to embed query, continuing without context", "error", err)
		result.Misses = result.Collections
		return result
	}

	model := r.embedder.Model()
	for _, collectionID := range result.Collections {
		queryCtx, cancel := withTimeout(ctx, r.queryTimeout)
		matches, err := r.store.Query(queryCtx, collectionID, queryEmbedding, r.topK)
		cancel()
		if err != nil {
			logger.Warn("Failed to query collection", "collection", collectionID, "error", err)
			result.Misses = append(result.Misses, collectionID)
			continue
		}

		kept := 0
		for _, m := range matches {
			if m.Metadata.EmbeddingModel != "" && m.Metadata.EmbeddingModel != model {
				logger.Warn("Skipping chunk embedded with a different model",
					"collection", collectionID,
					"chunk_id", m.ID,
					"chunk_model", m.Metadata.EmbeddingModel,
					"query_model", model,
				)
				continue
			}
			result.Chunks = append(result.Chunks, m)
			kept++
		}
		if kept == 0 {
			result.Misses = append(result.Misses, collectionID)
		}
	}

	logger.Debug("Retrieval completed",
		"collections", len(result.Collections),
		"chunks", len(result.Chunks),
		"misses", len(result.Misses),
	)
	return result
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
