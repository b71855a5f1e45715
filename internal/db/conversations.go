package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/lumina-ai/lumina/internal/domain"
)

// GetOrCreateConversation returns the conversation for sessionID, creating it on first use
func (db *DB) GetOrCreateConversation(ctx context.Context, sessionID string) (*domain.Conversation, error) {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO conversations (session_id, created_at) VALUES ($1, $2)
		 ON CONFLICT (session_id) DO NOTHING`,
		sessionID, db.now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}

	conv, err := db.FindConversation(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, fmt.Errorf("conversation %q vanished after insert: %w", sessionID, domain.ErrConversationNotFound)
	}
	return conv, nil
}

// FindConversation retrieves a conversation by session id, or nil if there is none
func (db *DB) FindConversation(ctx context.Context, sessionID string) (*domain.Conversation, error) {
	var conv domain.Conversation
	err := db.pool.QueryRow(ctx,
		`SELECT id, session_id, created_at FROM conversations WHERE session_id = $1`,
		sessionID,
	).Scan(&conv.ID, &conv.SessionID, &conv.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return &conv, nil
}

// AddMessage appends a message to a conversation
func (db *DB) AddMessage(ctx context.Context, conversationID int64, sender domain.Sender, content string) (*domain.Message, error) {
	msg := domain.Message{
		ConversationID: conversationID,
		Sender:         sender,
		Content:        content,
	}
	err := db.pool.QueryRow(ctx,
		`INSERT INTO messages (conversation_id, sender, content, timestamp)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, timestamp`,
		conversationID, string(sender), content, db.now().UTC(),
	).Scan(&msg.ID, &msg.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("failed to insert message: %w", err)
	}
	return &msg, nil
}

// ListMessages returns a conversation's messages in history order
func (db *DB) ListMessages(ctx context.Context, conversationID int64) ([]domain.Message, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, conversation_id, sender, content, timestamp
		 FROM messages WHERE conversation_id = $1
		 ORDER BY id`,
		conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	messages := []domain.Message{}
	for rows.Next() {
		var msg domain.Message
		var sender string
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &sender, &msg.Content, &msg.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msg.Sender = domain.Sender(sender)
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// AddPDF records an uploaded PDF for a conversation
func (db *DB) AddPDF(ctx context.Context, conversationID int64, collectionID, filename string) (*domain.PDF, error) {
	pdf := domain.PDF{
		ConversationID: conversationID,
		CollectionID:   collectionID,
		Filename:       filename,
	}
	err := db.pool.QueryRow(ctx,
		`INSERT INTO pdfs (conversation_id, collection_id, filename, uploaded_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, uploaded_at`,
		conversationID, collectionID, filename, db.now().UTC(),
	).Scan(&pdf.ID, &pdf.UploadedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert pdf: %w", err)
	}
	return &pdf, nil
}

// ListPDFs returns a conversation's PDFs in upload order
func (db *DB) ListPDFs(ctx context.Context, conversationID int64) ([]domain.PDF, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, conversation_id, collection_id, COALESCE(filename, ''), uploaded_at
		 FROM pdfs WHERE conversation_id = $1
		 ORDER BY id`,
		conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list pdfs: %w", err)
	}
	defer rows.Close()

	return scanPDFs(rows)
}

// ListConversations returns all conversations newest first, each with its PDFs
func (db *DB) ListConversations(ctx context.Context) ([]domain.ConversationSummary, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, session_id, created_at FROM conversations ORDER BY created_at DESC, id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	summaries := []domain.ConversationSummary{}
	index := make(map[int64]int)
	for rows.Next() {
		var conv domain.Conversation
		if err := rows.Scan(&conv.ID, &conv.SessionID, &conv.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		index[conv.ID] = len(summaries)
		summaries = append(summaries, domain.ConversationSummary{Conversation: conv, PDFs: []domain.PDF{}})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	pdfRows, err := db.pool.Query(ctx,
		`SELECT id, conversation_id, collection_id, COALESCE(filename, ''), uploaded_at
		 FROM pdfs ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list pdfs: %w", err)
	}
	defer pdfRows.Close()

	pdfs, err := scanPDFs(pdfRows)
	if err != nil {
		return nil, err
	}
	return attachPDFs(summaries, index, pdfs), nil
}

func scanPDFs(rows pgx.Rows) ([]domain.PDF, error) {
	pdfs := []domain.PDF{}
	for rows.Next() {
		var pdf domain.PDF
		if err := rows.Scan(&pdf.ID, &pdf.ConversationID, &pdf.CollectionID, &pdf.Filename, &pdf.UploadedAt); err != nil {
			return nil, fmt.Errorf("failed to scan pdf: %w", err)
		}
		pdfs = append(pdfs, pdf)
	}
	return pdfs, rows.Err()
}

// attachPDFs distributes pdfs over their conversations, keeping upload order
func attachPDFs(summaries []domain.ConversationSummary, index map[int64]int, pdfs []domain.PDF) []domain.ConversationSummary {
	for _, pdf := range pdfs {
		i, ok := index[pdf.ConversationID]
		if !ok {
			continue
		}
		summaries[i].PDFs = append(summaries[i].PDFs, pdf)
	}
	return summaries
}
