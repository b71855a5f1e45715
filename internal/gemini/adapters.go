package gemini

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/lumina-ai/lumina/internal/domain"
	"github.com/lumina-ai/lumina/internal/log"
)

// ExtractionPrompt asks the model to transcribe an attached PDF
const ExtractionPrompt = "Extract the full text content from this PDF document."

const (
	pdfMIMEType = "application/pdf"
	// Gemini caps inline requests near 20MB
	defaultInlineLimit = 15 << 20
	defaultPollEvery   = 2 * time.Second
)

// Extractor extracts PDF text with a single multimodal request.
// The whole document is answered in one response.
type Extractor struct {
	client      *Client
	logger      *slog.Logger
	inlineLimit int
	pollEvery   time.Duration
}

// NewExtractor creates a Gemini-backed extractor
func NewExtractor(client *Client) *Extractor {
	return &Extractor{
		client:      client,
		logger:      log.NewModuleLogger("gemini", "extractor"),
		inlineLimit: defaultInlineLimit,
		pollEvery:   defaultPollEvery,
	}
}

// Extract returns the document text
func (e *Extractor) Extract(ctx context.Context, filename string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty payload", domain.ErrExtractionFailed)
	}

	filePart, cleanup, err := e.documentPart(ctx, filename, data)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrExtractionFailed, err)
	}
	defer cleanup()

	text, err := e.client.GenerateContent(ctx, genai.NewPartFromText(ExtractionPrompt), filePart)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrExtractionFailed, err)
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: no text in %s", domain.ErrExtractionFailed, filename)
	}

	e.logger.Debug("Extracted PDF", "filename", filename, "bytes", len(data), "chars", len(text))
	return text, nil
}

// documentPart attaches small PDFs inline and uploads the rest
func (e *Extractor) documentPart(ctx context.Context, filename string, data []byte) (*genai.Part, func(), error) {
	if len(data) <= e.inlineLimit {
		return genai.NewPartFromBytes(data, pdfMIMEType), func() {}, nil
	}

	file, err := e.client.UploadFile(ctx, filename, pdfMIMEType, bytes.NewReader(data), e.pollEvery)
	if err != nil {
		return nil, nil, err
	}
	e.logger.Debug("Uploaded PDF to Files API", "filename", filename, "file", file.Name, "bytes", len(data))

	cleanup := func() { e.client.DeleteFile(file.Name) }
	return genai.NewPartFromURI(file.URI, pdfMIMEType), cleanup, nil
}

// Generator answers prompts with Gemini
type Generator struct {
	client *Client
	logger *slog.Logger
}

// NewGenerator creates a Gemini-backed generator
func NewGenerator(client *Client) *Generator {
	return &Generator{
		client: client,
		logger: log.NewModuleLogger("gemini", "generator"),
	}
}

// Generate returns the model's answer; an empty answer is a failure
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	answer, err := g.client.GenerateContent(ctx, genai.NewPartFromText(prompt))
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrGenerationFailed, err)
	}
	if strings.TrimSpace(answer) == "" {
		return "", fmt.Errorf("%w: empty response from %s", domain.ErrGenerationFailed, g.client.Model())
	}
	g.logger.Debug("Generated answer", "model", g.client.Model(), "chars", len(answer))
	return answer, nil
}
