package domain

import "context"

// ConversationStore persists conversations, messages and PDF records
type ConversationStore interface {
	GetOrCreateConversation(ctx context.Context, sessionID string) (*Conversation, error)
	// FindConversation returns nil, nil when the session is unknown
	FindConversation(ctx context.Context, sessionID string) (*Conversation, error)
	AddMessage(ctx context.Context, conversationID int64, sender Sender, content string) (*Message, error)
	ListMessages(ctx context.Context, conversationID int64) ([]Message, error)
	AddPDF(ctx context.Context, conversationID int64, collectionID, filename string) (*PDF, error)
	ListPDFs(ctx context.Context, conversationID int64) ([]PDF, error)
	ListConversations(ctx context.Context) ([]ConversationSummary, error)
}

// VectorStore holds named collections of embedded chunks.
// Query on a missing or empty collection returns no matches and no error.
type VectorStore interface {
	Upsert(ctx context.Context, collectionID string, items []ChunkItem) error
	Query(ctx context.Context, collectionID string, embedding []float32, topK int) ([]Match, error)
}

// Embedder turns text into vectors. The same instance must embed chunks and queries.
type Embedder interface {
	Model() string
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Extractor converts a PDF payload into plain text
type Extractor interface {
	Extract(ctx context.Context, filename string, data []byte) (string, error)
}

// Generator sends a prompt to an LLM and returns its text answer
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
