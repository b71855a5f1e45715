// Package translate rewrites queries into the retrieval language.
// Translation is best effort: a failure falls back to the original text.
package translate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lumina-ai/lumina/internal/domain"
	"github.com/lumina-ai/lumina/internal/log"
)

// Result is the outcome of a translation attempt
type Result struct {
	Text     string
	Fallback bool
	// Reason is set when Fallback is true
	Reason error
}

// Ok wraps a successful translation
func Ok(text string) Result {
	return Result{Text: text}
}

// Fallback returns the original text together with why translation failed
func Fallback(original string, reason error) Result {
	return Result{Text: original, Fallback: true, Reason: reason}
}

// Translator converts text into targetLang. It never fails.
type Translator interface {
	Translate(ctx context.Context, text, targetLang string) Result
}

// Noop returns its input unchanged
type Noop struct{}

// Translate returns text as-is
func (Noop) Translate(_ context.Context, text, _ string) Result {
	return Ok(text)
}

var languageNames = map[string]string{
	"ne": "Nepali",
	"en": "English",
	"hi": "Hindi",
}

// LanguageName returns the English name of an ISO 639-1 code, or the code itself
func LanguageName(code string) string {
	if name, ok := languageNames[strings.ToLower(code)]; ok {
		return name
	}
	return code
}

// LLM translates with a text generator
type LLM struct {
	generator domain.Generator
	logger    *slog.Logger
}

// NewLLM creates a generator-backed translator
func NewLLM(generator domain.Generator) *LLM {
	return &LLM{
		generator: generator,
		logger:    log.NewModuleLogger("translate", "llm"),
	}
}

// Prompt builds the translation instruction for text
func Prompt(text, targetLang string) string {
	return fmt.Sprintf("Translate the following text to %s. Reply with the translation only.\n\n%s",
		LanguageName(targetLang), text)
}

// Translate returns the translation, or the original text on any failure
func (t *LLM) Translate(ctx context.Context, text, targetLang string) Result {
	if strings.TrimSpace(text) == "" {
		return Ok(text)
	}

	out, err := t.generator.Generate(ctx, Prompt(text, targetLang))
	if err != nil {
		t.logger.Warn("Translation failed, using original text", "target", targetLang, "error", err)
		return Fallback(text, fmt.Errorf("%w: %v", domain.ErrTranslationFailed, err))
	}

	out = strings.TrimSpace(out)
	if out == "" {
		t.logger.Warn("Empty translation, using original text", "target", targetLang)
		return Fallback(text, fmt.Errorf("%w: empty output", domain.ErrTranslationFailed))
	}
	return Ok(out)
}
