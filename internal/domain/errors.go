package domain

import "errors"

var (
	ErrValidation           = errors.New("validation failed")
	ErrInvalidFile          = errors.New("invalid file format")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrExtractionFailed     = errors.New("text extraction failed")
	ErrTranslationFailed    = errors.New("translation failed")
	ErrGenerationFailed     = errors.New("answer generation failed")
	ErrEmbeddingFailed      = errors.New("embedding failed")
	ErrInvalidChunkParams   = errors.New("invalid chunk parameters")
)
