package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
)

// ModelInfo represents information about an Ollama model
type ModelInfo struct {
	Name       string `json:"name"`
	Size       int64  `json:"size"`
	ModifiedAt string `json:"modified_at"`
}

// ListModelsResponse represents the response from listing models
type ListModelsResponse struct {
	Models []ModelInfo `json:"models"`
}

// ModelSelector picks a generation model from those installed
type ModelSelector struct {
	client *Client
}

// NewModelSelector creates a new model selector
func NewModelSelector(client *Client) *ModelSelector {
	return &ModelSelector{client: client}
}

// ListModels lists all available Ollama models
func (ms *ModelSelector) ListModels(ctx context.Context) ([]ModelInfo, error) {
	url := fmt.Sprintf("%s/api/tags", ms.client.baseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := ms.client.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama API error: %d - %s", resp.StatusCode, string(body))
	}

	var result ListModelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return result.Models, nil
}

// multilingual instruction models first, embedding-only models are never chosen
var priorityModels = []string{
	"qwen2.5",
	"llama3.2",
	"llama3.1",
	"gemma2",
	"mistral",
	"llama3",
}

func isEmbeddingModel(name string) bool {
	name = strings.ToLower(name)
	return strings.Contains(name, "embed") || strings.Contains(name, "minilm") ||
		strings.Contains(name, "paraphrase")
}

// SelectBestModel selects the preferred installed generation model
func (ms *ModelSelector) SelectBestModel(ctx context.Context) (string, error) {
	models, err := ms.ListModels(ctx)
	if err != nil {
		return "", err
	}
	return selectModel(models)
}

func selectModel(models []ModelInfo) (string, error) {
	candidates := make([]ModelInfo, 0, len(models))
	for _, m := range models {
		if !isEmbeddingModel(m.Name) {
			candidates = append(candidates, m)
		}
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("no generation models available")
	}

	for _, priority := range priorityModels {
		for _, model := range candidates {
			if strings.Contains(strings.ToLower(model.Name), priority) {
				return model.Name, nil
			}
		}
	}

	// Otherwise the largest model
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Size > candidates[j].Size
	})
	return candidates[0].Name, nil
}

// GetDefaultModel returns defaultModel when installed, otherwise the best available one
func (ms *ModelSelector) GetDefaultModel(ctx context.Context, defaultModel string) (string, error) {
	models, err := ms.ListModels(ctx)
	if err != nil {
		return "", err
	}

	if defaultModel != "" {
		for _, model := range models {
			if model.Name == defaultModel {
				return defaultModel, nil
			}
		}
	}

	return selectModel(models)
}
