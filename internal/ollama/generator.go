package ollama

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lumina-ai/lumina/internal/domain"
	"github.com/lumina-ai/lumina/internal/log"
)

// Generator answers prompts with a single Ollama model
type Generator struct {
	client *Client
	model  string
	logger *slog.Logger
}

// NewGenerator creates a generator bound to model
func NewGenerator(client *Client, model string) *Generator {
	return &Generator{
		client: client,
		model:  model,
		logger: log.NewModuleLogger("ollama", "generator"),
	}
}

// Model returns the model name
func (g *Generator) Model() string {
	return g.model
}

// Generate returns the model's answer; an empty answer is a failure
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	answer, err := g.client.Generate(ctx, &GenerateRequest{
		Model:  g.model,
		Prompt: prompt,
		Stream: false,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrGenerationFailed, err)
	}

	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", fmt.Errorf("%w: empty response from %s", domain.ErrGenerationFailed, g.model)
	}

	g.logger.Debug("Generated answer", "model", g.model, "chars", len(answer))
	return answer, nil
}
