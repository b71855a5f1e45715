package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/lumina-ai/lumina/internal/documents"
	"github.com/lumina-ai/lumina/internal/domain"
	"github.com/lumina-ai/lumina/internal/log"
)

// UploadResult describes an ingested PDF
type UploadResult struct {
	PDFID     string
	Filename  string
	NumChunks int
	// Error is set when extraction failed; nothing was stored in that case
	Error string
}

// ValidateUpload checks the chat id, extension and PDF header
func ValidateUpload(chatID, filename string, data []byte) error {
	if strings.TrimSpace(chatID) == "" {
		return fmt.Errorf("%w: missing chat session ID", domain.ErrValidation)
	}
	if filename == "" || !hasPDFExtension(filename) {
		return fmt.Errorf("%w: expected a .pdf file", domain.ErrInvalidFile)
	}
	if !documents.IsPDF(data) {
		return fmt.Errorf("%w: content is not a PDF", domain.ErrInvalidFile)
	}
	return nil
}

// UploadPDF extracts, chunks and embeds a PDF into the conversation's collection
// and records it. Extraction, embedding and vector store failures are reported
// in the result, not as an error.
func (s *ChatService) UploadPDF(ctx context.Context, chatID, filename string, data []byte) (*UploadResult, error) {
	if err := ValidateUpload(chatID, filename, data); err != nil {
		return nil, err
	}

	ctx = log.WithSessionID(ctx, chatID)
	logger := log.FromContext(ctx, s.logger)

	name := domain.SanitizeFilename(filename)
	collectionID := domain.CollectionID(chatID)
	result := &UploadResult{PDFID: collectionID, Filename: name}

	conv, err := s.deps.Store.GetOrCreateConversation(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve conversation: %w", err)
	}

	ectx, cancel := withTimeout(ctx, s.opts.ExtractionTimeout)
	text, err := s.deps.Extractor.Extract(ectx, name, data)
	cancel()
	if err != nil {
		logger.Error("Text extraction failed", "filename", name, "error", err)
		result.Error = "Error extracting text: " + err.Error()
		return result, nil
	}

	// Chunk ids are prefixed with the stored filename, so it is reserved
	// under the session lock until the PDF record exists.
	unlock := s.uploads.lock(chatID)
	defer unlock()

	name, err = s.uniqueFilename(ctx, conv.ID, name)
	if err != nil {
		return nil, err
	}
	result.Filename = name

	n, err := s.deps.Processor.ProcessText(ctx, collectionID, name, text)
	if err != nil {
		logger.Error("Ingestion failed", "filename", name, "error", err)
		result.Error = "Error processing document: " + err.Error()
		return result, nil
	}
	result.NumChunks = n

	if _, err := s.deps.Store.AddPDF(ctx, conv.ID, collectionID, name); err != nil {
		return nil, fmt.Errorf("failed to record PDF: %w", err)
	}

	logger.Info("PDF ingested", "filename", name, "collection", collectionID, "chunks", n)
	return result, nil
}

// uniqueFilename returns name, or name with a numeric suffix when the
// conversation already holds a PDF stored under it
func (s *ChatService) uniqueFilename(ctx context.Context, conversationID int64, name string) (string, error) {
	pdfs, err := s.deps.Store.ListPDFs(ctx, conversationID)
	if err != nil {
		return "", fmt.Errorf("failed to list PDFs: %w", err)
	}

	taken := make(map[string]bool, len(pdfs))
	for _, p := range pdfs {
		taken[p.Filename] = true
	}

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	candidate := name
	for i := 2; taken[candidate]; i++ {
		candidate = fmt.Sprintf("%s_%d%s", stem, i, ext)
	}
	return candidate, nil
}

// sessionLocks hands out one mutex per session id
type sessionLocks struct {
	locks sync.Map
}

func (l *sessionLocks) lock(sessionID string) func() {
	mu, _ := l.locks.LoadOrStore(sessionID, &sync.Mutex{})
	m := mu.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}
