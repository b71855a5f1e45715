package rag

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

func init() {
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

// Tokenizer counts cl100k_base tokens
type Tokenizer struct {
	encoding *tiktoken.Tiktoken
	mu       sync.Mutex
}

var (
	tokenizerInstance *Tokenizer
	tokenizerOnce     sync.Once
	tokenizerErr      error
)

// GetTokenizer returns the shared tokenizer, loading the encoding once
func GetTokenizer() (*Tokenizer, error) {
	tokenizerOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			tokenizerErr = err
			return
		}
		tokenizerInstance = &Tokenizer{encoding: enc}
	})
	if tokenizerErr != nil {
		return nil, tokenizerErr
	}
	return tokenizerInstance, nil
}

// Count returns the number of tokens in text
func (t *Tokenizer) Count(text string) int {
	if text == "" {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.encoding.Encode(text, nil, nil))
}

// estimateTokens is the fallback when no encoding is available: ~4 chars per token
func estimateTokens(text string) int {
	return (len(text) + 3) / 4
}
