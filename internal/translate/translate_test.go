package translate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lumina-ai/lumina/internal/domain"
)

type stubGenerator struct {
	out    string
	err    error
	prompt string
}

func (s *stubGenerator) Generate(_ context.Context, prompt string) (string, error) {
	s.prompt = prompt
	return s.out, s.err
}

func TestLLM_Success(t *testing.T) {
	gen := &stubGenerator{out: "  नमस्ते  \n"}
	r := NewLLM(gen).Translate(context.Background(), "hello", "ne")

	assert.Equal(t, Ok("नमस्ते"), r)
	assert.Contains(t, gen.prompt, "to Nepali")
	assert.Contains(t, gen.prompt, "\n\nhello")
}

func TestLLM_FallbackOnError(t *testing.T) {
	gen := &stubGenerator{err: errors.New("timeout")}
	r := NewLLM(gen).Translate(context.Background(), "hello", "ne")

	assert.Equal(t, "hello", r.Text)
	assert.True(t, r.Fallback)
	assert.ErrorIs(t, r.Reason, domain.ErrTranslationFailed)
}

func TestLLM_FallbackOnEmptyOutput(t *testing.T) {
	r := NewLLM(&stubGenerator{out: " "}).Translate(context.Background(), "hello", "ne")
	assert.True(t, r.Fallback)
	assert.Equal(t, "hello", r.Text)
}

func TestLLM_EmptyInputSkipsGenerator(t *testing.T) {
	gen := &stubGenerator{err: errors.New("should not be called")}
	r := NewLLM(gen).Translate(context.Background(), "", "ne")
	assert.False(t, r.Fallback)
	assert.Empty(t, gen.prompt)
}

func TestNoop(t *testing.T) {
	r := Noop{}.Translate(context.Background(), "hello", "ne")
	assert.Equal(t, Ok("hello"), r)
	assert.False(t, r.Fallback)
}

func TestLanguageName(t *testing.T) {
	assert.Equal(t, "Nepali", LanguageName("NE"))
	assert.Equal(t, "fr", LanguageName("fr"))
}
