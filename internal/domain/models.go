package domain

import "time"

// Sender identifies who authored a message
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Conversation is a chat session keyed by an opaque session id
type Conversation struct {
	ID        int64
	SessionID string
	CreatedAt time.Time
}

// Message is one immutable turn of a conversation
type Message struct {
	ID             int64
	ConversationID int64
	Sender         Sender
	Content        string
	Timestamp      time.Time
}

// PDF records an uploaded document and the vector collection its chunks live in
type PDF struct {
	ID             int64
	ConversationID int64
	CollectionID   string
	Filename       string
	UploadedAt     time.Time
}

// ConversationSummary is a conversation together with its uploaded PDFs
type ConversationSummary struct {
	Conversation
	PDFs []PDF
}

// ChunkMetadata describes where a chunk came from
type ChunkMetadata struct {
	Filename       string
	Index          int
	EmbeddingModel string
}

// ChunkItem is a chunk ready to be stored in a vector collection
type ChunkItem struct {
	ID        string
	Text      string
	Embedding []float32
	Metadata  ChunkMetadata
}

// Match is a chunk returned by a nearest-neighbor query
type Match struct {
	ID       string
	Text     string
	Metadata ChunkMetadata
	Score    float32
}
