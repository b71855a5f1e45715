package documents

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lumina-ai/lumina/internal/domain"
	"github.com/lumina-ai/lumina/internal/log"
)

// Processor turns extracted text into embedded chunks in a collection
type Processor struct {
	chunker      *Chunker
	embedder     domain.Embedder
	store        domain.VectorStore
	embedTimeout time.Duration
	storeTimeout time.Duration
	logger       *slog.Logger
}

// NewProcessor creates a new document processor.
// embedTimeout bounds each embedding call, storeTimeout the final upsert.
func NewProcessor(chunker *Chunker, embedder domain.Embedder, store domain.VectorStore, embedTimeout, storeTimeout time.Duration) *Processor {
	return &Processor{
		chunker:      chunker,
		embedder:     embedder,
		store:        store,
		embedTimeout: embedTimeout,
		storeTimeout: storeTimeout,
		logger:       log.NewModuleLogger("documents", "processor"),
	}
}

// NewChunkItem builds the stored form of the index-th window of filename
func NewChunkItem(filename, model string, index int, text string, embedding []float32) domain.ChunkItem {
	return domain.ChunkItem{
		ID:        domain.ChunkID(filename, index),
		Text:      text,
		Embedding: embedding,
		Metadata: domain.ChunkMetadata{
			Filename:       filename,
			Index:          index,
			EmbeddingModel: model,
		},
	}
}

// ProcessText chunks, embeds and upserts text into collectionID.
// Whitespace-only windows are skipped but keep their ordinal, so chunk ids
// always match window positions. It returns the number of chunks stored.
func (p *Processor) ProcessText(ctx context.Context, collectionID, filename, text string) (int, error) {
	model := p.embedder.Model()
	var items []domain.ChunkItem
	skipped := 0

	for i, window := range p.chunker.Windows(text) {
		if strings.TrimSpace(window) == "" {
			skipped++
			continue
		}

		embedCtx, cancel := withTimeout(ctx, p.embedTimeout)
		embedding, err := p.embedder.Embed(embedCtx, window)
		cancel()
		if err != nil {
			return 0, fmt.Errorf("failed to embed chunk %d: %w", i, err)
		}
		items = append(items, NewChunkItem(filename, model, i, window, embedding))
	}

	if len(items) == 0 {
		return 0, nil
	}

	storeCtx, cancel := withTimeout(ctx, p.storeTimeout)
	defer cancel()
	if err := p.store.Upsert(storeCtx, collectionID, items); err != nil {
		return 0, fmt.Errorf("failed to store chunks: %w", err)
	}

	p.logger.Info("Stored chunks",
		"collection", collectionID,
		"filename", filename,
		"chunks", len(items),
		"skipped_blank", skipped,
	)
	return len(items), nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
