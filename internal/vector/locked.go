// Package vector contains helpers shared by the collection store backends.
package vector

import (
	"context"
	"sync"

	"github.com/lumina-ai/lumina/internal/domain"
)

// Locked serializes writes per collection id. Writes to different
// collections and all queries proceed concurrently.
type Locked struct {
	inner domain.VectorStore
	locks sync.Map // collection id -> *sync.Mutex
}

// NewLocked wraps store with per-collection write serialization
func NewLocked(store domain.VectorStore) *Locked {
	return &Locked{inner: store}
}

func (l *Locked) lockFor(collectionID string) *sync.Mutex {
	mu, _ := l.locks.LoadOrStore(collectionID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// Upsert forwards to the wrapped store while holding the collection's lock
func (l *Locked) Upsert(ctx context.Context, collectionID string, items []domain.ChunkItem) error {
	mu := l.lockFor(collectionID)
	mu.Lock()
	defer mu.Unlock()
	return l.inner.Upsert(ctx, collectionID, items)
}

// Query forwards to the wrapped store without locking
func (l *Locked) Query(ctx context.Context, collectionID string, embedding []float32, topK int) ([]domain.Match, error) {
	return l.inner.Query(ctx, collectionID, embedding, topK)
}
