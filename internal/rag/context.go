package rag

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/lumina-ai/lumina/internal/domain"
	"github.com/lumina-ai/lumina/internal/log"
)

// ContextBuilder assembles retrieved chunks into a prompt
type ContextBuilder struct {
	// maxTokens of 0 means unlimited
	maxTokens int
	count     func(string) int
	logger    *slog.Logger
}

// NewContextBuilder creates a new context builder
func NewContextBuilder(maxTokens int) *ContextBuilder {
	if maxTokens < 0 {
		maxTokens = 0
	}
	cb := &ContextBuilder{
		maxTokens: maxTokens,
		count:     estimateTokens,
		logger:    log.NewModuleLogger("rag", "context"),
	}
	if tok, err := GetTokenizer(); err == nil {
		cb.count = tok.Count
	} else {
		cb.logger.Warn("Tokenizer unavailable, estimating token counts", "error", err)
	}
	return cb
}

// CountTokens returns the token count of text
func (cb *ContextBuilder) CountTokens(text string) int {
	return cb.count(text)
}

// BuildContext joins chunk texts verbatim with newlines. With a token budget,
// whole trailing chunks are dropped until the context fits.
func (cb *ContextBuilder) BuildContext(chunks []domain.Match) string {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	context := strings.Join(texts, "\n")
	if cb.maxTokens == 0 {
		return context
	}

	for len(texts) > 0 && cb.count(context) > cb.maxTokens {
		texts = texts[:len(texts)-1]
		context = strings.Join(texts, "\n")
	}
	if len(texts) < len(chunks) {
		cb.logger.Debug("Trimmed context to token budget",
			"kept", len(texts),
			"dropped", len(chunks)-len(texts),
			"max_tokens", cb.maxTokens,
		)
	}
	return context
}

// BuildPrompt creates the generation prompt. With context the original question
// is asked; without it, the translated one.
func BuildPrompt(context, original, translated string) string {
	if context != "" {
		return fmt.Sprintf("Given the following context:\n%s\n\nAnswer the following query:\n%s", context, original)
	}
	return "Answer: " + translated
}
