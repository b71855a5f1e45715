// Package sqlite stores conversations, messages and PDF records in a local SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/lumina-ai/lumina/internal/domain"
)

// Store is a SQLite implementation of domain.ConversationStore
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the database at path and ensures the schema exists
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer keeps SQLite from returning SQLITE_BUSY under concurrent requests
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`PRAGMA foreign_keys=ON;`,
		`CREATE TABLE IF NOT EXISTS conversations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL UNIQUE,
			created_at INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			conversation_id INTEGER NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
			sender TEXT NOT NULL,
			content TEXT NOT NULL,
			timestamp INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, timestamp, id);`,
		`CREATE TABLE IF NOT EXISTS pdfs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			conversation_id INTEGER NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
			collection_id TEXT NOT NULL,
			filename TEXT,
			uploaded_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_pdfs_conversation ON pdfs(conversation_id, uploaded_at, id);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	return nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// GetOrCreateConversation returns the conversation for sessionID, creating it on first use
func (s *Store) GetOrCreateConversation(ctx context.Context, sessionID string) (*domain.Conversation, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (session_id, created_at) VALUES (?, ?)
		 ON CONFLICT(session_id) DO NOTHING`,
		sessionID, s.now().UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}

	conv, err := s.FindConversation(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, fmt.Errorf("conversation %q vanished after insert: %w", sessionID, domain.ErrConversationNotFound)
	}
	return conv, nil
}

// FindConversation retrieves a conversation by session id, or nil if there is none
func (s *Store) FindConversation(ctx context.Context, sessionID string) (*domain.Conversation, error) {
	var conv domain.Conversation
	var createdAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, session_id, created_at FROM conversations WHERE session_id = ?`,
		sessionID,
	).Scan(&conv.ID, &conv.SessionID, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	conv.CreatedAt = fromNanos(createdAt)
	return &conv, nil
}

// AddMessage appends a message to a conversation
func (s *Store) AddMessage(ctx context.Context, conversationID int64, sender domain.Sender, content string) (*domain.Message, error) {
	ts := s.now()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (conversation_id, sender, content, timestamp) VALUES (?, ?, ?, ?)`,
		conversationID, string(sender), content, ts.UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read message id: %w", err)
	}
	return &domain.Message{
		ID:             id,
		ConversationID: conversationID,
		Sender:         sender,
		Content:        content,
		Timestamp:      fromNanos(ts.UnixNano()),
	}, nil
}

// ListMessages returns a conversation's messages in history order
func (s *Store) ListMessages(ctx context.Context, conversationID int64) ([]domain.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, conversation_id, sender, content, timestamp
		 FROM messages WHERE conversation_id = ?
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
		var ts int64
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &sender, &msg.Content, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msg.Sender = domain.Sender(sender)
		msg.Timestamp = fromNanos(ts)
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// AddPDF records an uploaded PDF for a conversation
func (s *Store) AddPDF(ctx context.Context, conversationID int64, collectionID, filename string) (*domain.PDF, error) {
	ts := s.now()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO pdfs (conversation_id, collection_id, filename, uploaded_at) VALUES (?, ?, ?, ?)`,
		conversationID, collectionID, filename, ts.UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert pdf: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read pdf id: %w", err)
	}
	return &domain.PDF{
		ID:             id,
		ConversationID: conversationID,
		CollectionID:   collectionID,
		Filename:       filename,
		UploadedAt:     fromNanos(ts.UnixNano()),
	}, nil
}

// ListPDFs returns a conversation's PDFs in upload order
func (s *Store) ListPDFs(ctx context.Context, conversationID int64) ([]domain.PDF, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, conversation_id, collection_id, COALESCE(filename, ''), uploaded_at
		 FROM pdfs WHERE conversation_id = ?
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
func (s *Store) ListConversations(ctx context.Context) ([]domain.ConversationSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, created_at FROM conversations ORDER BY created_at DESC, id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}

	summaries := []domain.ConversationSummary{}
	index := make(map[int64]int)
	for rows.Next() {
		var conv domain.Conversation
		var createdAt int64
		if err := rows.Scan(&conv.ID, &conv.SessionID, &createdAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		conv.CreatedAt = fromNanos(createdAt)
		index[conv.ID] = len(summaries)
		summaries = append(summaries, domain.ConversationSummary{Conversation: conv, PDFs: []domain.PDF{}})
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, err
	}

	pdfRows, err := s.db.QueryContext(ctx,
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
	for _, pdf := range pdfs {
		if i, ok := index[pdf.ConversationID]; ok {
			summaries[i].PDFs = append(summaries[i].PDFs, pdf)
		}
	}
	return summaries, nil
}

func scanPDFs(rows *sql.Rows) ([]domain.PDF, error) {
	pdfs := []domain.PDF{}
	for rows.Next() {
		var pdf domain.PDF
		var uploadedAt int64
		if err := rows.Scan(&pdf.ID, &pdf.ConversationID, &pdf.CollectionID, &pdf.Filename, &uploadedAt); err != nil {
			return nil, fmt.Errorf("failed to scan pdf: %w", err)
		}
		pdf.UploadedAt = fromNanos(uploadedAt)
		pdfs = append(pdfs, pdf)
	}
	return pdfs, rows.Err()
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}
