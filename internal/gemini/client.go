// Package gemini calls Gemini models through the google.golang.org/genai SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"
)

const (
	DefaultModel   = "gemini-2.0-flash"
	defaultTimeout = 5 * time.Minute
)

// ErrMissingAPIKey is returned when no API key is configured
var ErrMissingAPIKey = errors.New("gemini api key not configured")

// Config holds the connection settings for the Gemini API
type Config struct {
	// BaseURL overrides the API root; empty uses the SDK default
	BaseURL    string
	APIKey     string
	Model      string
	HTTPClient *http.Client
}

// Client wraps Gemini API interactions
type Client struct {
	sdk   *genai.Client
	model string
}

// NewClient creates a new Gemini client. Without an API key the client is
// still returned and every call fails with ErrMissingAPIKey.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	c := &Client{model: model}
	if cfg.APIKey == "" {
		return c, nil
	}

	timeout := defaultTimeout
	sdk, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: cfg.BaseURL,
			Timeout: &timeout,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	c.sdk = sdk
	return c, nil
}

// Model returns the configured model name
func (c *Client) Model() string {
	return c.model
}

// GenerateContent sends a single-turn request and returns the text of the first candidate
func (c *Client) GenerateContent(ctx context.Context, parts ...*genai.Part) (string, error) {
	if c.sdk == nil {
		return "", ErrMissingAPIKey
	}

	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	resp, err := c.sdk.Models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("gemini API error: %d %s - %s", apiErr.Code, apiErr.Status, apiErr.Message)
		}
		return "", fmt.Errorf("failed to execute request: %w", err)
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("prompt blocked: %s", resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return "", errors.New("no candidates returned")
	}
	return resp.Text(), nil
}

// UploadFile stores data with the Files API and waits until it can be referenced
func (c *Client) UploadFile(ctx context.Context, displayName, mimeType string, data io.Reader, poll time.Duration) (*genai.File, error) {
	if c.sdk == nil {
		return nil, ErrMissingAPIKey
	}

	file, err := c.sdk.Files.Upload(ctx, data, &genai.UploadFileConfig{
		MIMEType:    mimeType,
		DisplayName: displayName,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload file: %w", err)
	}

	for file.State == genai.FileStateProcessing {
		select {
		case <-ctx.Done():
			c.DeleteFile(file.Name)
			return nil, ctx.Err()
		case <-time.After(poll):
		}
		file, err = c.sdk.Files.Get(ctx, file.Name, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to get file state: %w", err)
		}
	}
	if file.State == genai.FileStateFailed {
		c.DeleteFile(file.Name)
		return nil, fmt.Errorf("file %s failed processing", file.Name)
	}
	return file, nil
}

// DeleteFile removes an uploaded file on a detached context; failures are ignored
func (c *Client) DeleteFile(name string) {
	if c.sdk == nil || strings.TrimSpace(name) == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, _ = c.sdk.Files.Delete(ctx, name, nil)
}
