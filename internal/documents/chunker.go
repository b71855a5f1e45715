package documents

import (
	"fmt"
	"iter"

	"github.com/lumina-ai/lumina/internal/domain"
)

// Chunker splits text into fixed-size overlapping windows.
// Sizes are measured in runes.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker creates a chunker; overlap must be in [0, size)
func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 || overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: size=%d overlap=%d", domain.ErrInvalidChunkParams, size, overlap)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Windows yields each window with its index. Every range starts over.
func (c *Chunker) Windows(text string) iter.Seq2[int, string] {
	return func(yield func(int, string) bool) {
		runes := []rune(text)
		n := len(runes)
		step := c.size - c.overlap

		for i, start := 0, 0; start < n; i, start = i+1, start+step {
			end := min(start+c.size, n)
			if !yield(i, string(runes[start:end])) {
				return
			}
			if end == n {
				return
			}
		}
	}
}

// Split returns all windows of text in order
func (c *Chunker) Split(text string) []string {
	chunks := make([]string, 0, c.Count(len([]rune(text))))
	for _, w := range c.Windows(text) {
		chunks = append(chunks, w)
	}
	return chunks
}

// Count returns how many windows a text of n runes produces
func (c *Chunker) Count(n int) int {
	switch {
	case n <= 0:
		return 0
	case n <= c.size:
		return 1
	}
	step := c.size - c.overlap
	return (n - c.overlap + step - 1) / step
}
