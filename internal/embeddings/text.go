package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/lumina-ai/lumina/internal/domain"
	"github.com/lumina-ai/lumina/internal/log"
)

// DefaultModel is a multilingual sentence embedding model served by Ollama
const DefaultModel = "paraphrase-multilingual"

// TextEmbedder generates text embeddings using Ollama
type TextEmbedder struct {
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewTextEmbedder creates a new text embedder
func NewTextEmbedder(baseURL, model string) *TextEmbedder {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = DefaultModel
	}
	return &TextEmbedder{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{},
		logger:     log.NewModuleLogger("embeddings", "ollama"),
	}
}

// Model returns the embedding model name recorded with stored chunks
func (e *TextEmbedder) Model() string {
	return e.model
}

type embeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embeddingResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed generates an embedding for the given text
func (e *TextEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: text cannot be empty", domain.ErrEmbeddingFailed)
	}

	jsonData, err := json.Marshal(embeddingRequest{Model: e.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/api/embeddings", e.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to execute request: %v", domain.ErrEmbeddingFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: ollama API error: %d - %s", domain.ErrEmbeddingFailed, resp.StatusCode, string(body))
	}

	var result embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", domain.ErrEmbeddingFailed, err)
	}
	if len(result.Embedding) == 0 {
		return nil, fmt.Errorf("%w: empty embedding returned", domain.ErrEmbeddingFailed)
	}

	return result.Embedding, nil
}
