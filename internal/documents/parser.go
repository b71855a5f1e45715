package documents

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gen2brain/go-fitz"

	"github.com/lumina-ai/lumina/internal/domain"
	"github.com/lumina-ai/lumina/internal/log"
)

var pdfMagic = []byte("%PDF-")

// IsPDF reports whether data starts with the PDF header
func IsPDF(data []byte) bool {
	return bytes.HasPrefix(data, pdfMagic)
}

// FitzExtractor extracts PDF text locally with MuPDF
type FitzExtractor struct {
	logger *slog.Logger
}

// NewFitzExtractor creates a new local PDF extractor
func NewFitzExtractor() *FitzExtractor {
	return &FitzExtractor{logger: log.NewModuleLogger("documents", "fitz")}
}

// Extract returns the text of every page, separated by blank lines
func (e *FitzExtractor) Extract(ctx context.Context, filename string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty payload", domain.ErrExtractionFailed)
	}

	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return "", fmt.Errorf("%w: failed to open PDF: %v", domain.ErrExtractionFailed, err)
	}
	defer doc.Close()

	var textParts []string
	for i := 0; i < doc.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("%w: %v", domain.ErrExtractionFailed, err)
		}
		text, err := doc.Text(i)
		if err != nil {
			e.logger.Warn("Failed to read page", "filename", filename, "page", i, "error", err)
			continue
		}
		if strings.TrimSpace(text) != "" {
			textParts = append(textParts, text)
		}
	}

	text := strings.Join(textParts, "\n\n")
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: no text in %s", domain.ErrExtractionFailed, filename)
	}

	e.logger.Debug("Extracted PDF", "filename", filename, "pages", doc.NumPage(), "chars", len(text))
	return text, nil
}
