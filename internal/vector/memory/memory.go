// Package memory is an in-process collection store using brute-force cosine
// similarity. It is not durable and only backs tests.
package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/lumina-ai/lumina/internal/domain"
)

const defaultTopK = 5

type collection struct {
	order []string
	items map[string]domain.ChunkItem
}

// Store keeps each collection in its own map
type Store struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{collections: make(map[string]*collection)}
}

// Upsert adds items, overwriting existing ids
func (s *Store) Upsert(_ context.Context, collectionID string, items []domain.ChunkItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[collectionID]
	if !ok {
		c = &collection{items: make(map[string]domain.ChunkItem)}
		s.collections[collectionID] = c
	}
	for _, item := range items {
		if _, exists := c.items[item.ID]; !exists {
			c.order = append(c.order, item.ID)
		}
		stored := item
		stored.Embedding = append([]float32(nil), item.Embedding...)
		c.items[item.ID] = stored
	}
	return nil
}

// Query returns up to topK items ordered by descending cosine similarity
func (s *Store) Query(_ context.Context, collectionID string, embedding []float32, topK int) ([]domain.Match, error) {
	if topK <= 0 {
		topK = defaultTopK
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[collectionID]
	if !ok || len(c.order) == 0 {
		return nil, nil
	}

	matches := make([]domain.Match, 0, len(c.order))
	for _, id := range c.order {
		item := c.items[id]
		if len(item.Embedding) != len(embedding) {
			continue
		}
		matches = append(matches, domain.Match{
			ID:       item.ID,
			Text:     item.Text,
			Metadata: item.Metadata,
			Score:    cosine(item.Embedding, embedding),
		})
	}

	// Stable keeps insertion order among equal scores
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// Len reports how many items a collection holds
func (s *Store) Len(collectionID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.collections[collectionID]; ok {
		return len(c.order)
	}
	return 0
}

func cosine(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
