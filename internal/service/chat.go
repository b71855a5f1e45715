// Package service coordinates ingestion and retrieval-augmented chat turns.
package service

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lumina-ai/lumina/internal/documents"
	"github.com/lumina-ai/lumina/internal/domain"
	"github.com/lumina-ai/lumina/internal/log"
	"github.com/lumina-ai/lumina/internal/rag"
	"github.com/lumina-ai/lumina/internal/render"
	"github.com/lumina-ai/lumina/internal/translate"
)

// Options tune the chat pipeline
type Options struct {
	TargetLanguage     string
	ExtractionTimeout  time.Duration
	TranslationTimeout time.Duration
	GenerationTimeout  time.Duration
}

// Deps are the collaborators of a ChatService
type Deps struct {
	Store      domain.ConversationStore
	Retriever  *rag.Retriever
	Contexts   *rag.ContextBuilder
	Processor  *documents.Processor
	Extractor  domain.Extractor
	Generator  domain.Generator
	Translator translate.Translator
	Renderer   *render.Renderer
}

// ChatService runs chat turns and PDF ingestion
type ChatService struct {
	deps    Deps
	opts    Options
	uploads sessionLocks
	logger  *slog.Logger
}

// NewChatService creates a new chat service
func NewChatService(deps Deps, opts Options) *ChatService {
	if opts.TargetLanguage == "" {
		opts.TargetLanguage = "ne"
	}
	if deps.Translator == nil {
		deps.Translator = translate.Noop{}
	}
	if deps.Renderer == nil {
		deps.Renderer = render.New()
	}
	return &ChatService{
		deps:   deps,
		opts:   opts,
		logger: log.NewModuleLogger("service", "chat"),
	}
}

// Reply is the outcome of one chat turn
type Reply struct {
	// HTML is the rendered answer, stored as the bot message
	HTML          string
	Prompt        string
	ContextFound  bool
	Translation   translate.Result
	GenerationErr error
}

// NewSessionID returns a fresh session identifier
func NewSessionID() string {
	return "sess-" + uuid.NewString()
}

// NewConversation resolves or creates the conversation for sessionID.
// An empty id gets a generated one.
func (s *ChatService) NewConversation(ctx context.Context, sessionID string) (*domain.Conversation, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		sessionID = NewSessionID()
	}

	conv, err := s.deps.Store.GetOrCreateConversation(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}
	s.logger.Info("Conversation ready", "session_id", conv.SessionID, "conversation_id", conv.ID)
	return conv, nil
}

// Chat answers userMessage within sessionID. Exactly one user and one bot
// message are persisted, in that order, whenever the store is reachable.
func (s *ChatService) Chat(ctx context.Context, sessionID, userMessage string) (*Reply, error) {
	if strings.TrimSpace(sessionID) == "" || strings.TrimSpace(userMessage) == "" {
		return nil, fmt.Errorf("%w: session_id and user_message are required", domain.ErrValidation)
	}

	ctx = log.WithSessionID(ctx, sessionID)
	logger := log.FromContext(ctx, s.logger)

	conv, err := s.deps.Store.GetOrCreateConversation(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve conversation: %w", err)
	}

	if _, err := s.deps.Store.AddMessage(ctx, conv.ID, domain.SenderUser, userMessage); err != nil {
		return nil, fmt.Errorf("failed to store user message: %w", err)
	}

	reply := &Reply{}

	tctx, cancel := withTimeout(ctx, s.opts.TranslationTimeout)
	reply.Translation = s.deps.Translator.Translate(tctx, userMessage, s.opts.TargetLanguage)
	cancel()
	if reply.Translation.Fallback {
		logger.Warn("Using untranslated query", "reason", reply.Translation.Reason)
	}

	pdfs, err := s.deps.Store.ListPDFs(ctx, conv.ID)
	if err != nil {
		logger.Warn("Failed to list PDFs, continuing without context", "error", err)
		pdfs = nil
	}

	retrieved := s.deps.Retriever.Retrieve(ctx, reply.Translation.Text, pdfs)
	contextText := s.deps.Contexts.BuildContext(retrieved.Chunks)
	reply.ContextFound = contextText != ""
	reply.Prompt = rag.BuildPrompt(contextText, userMessage, reply.Translation.Text)

	logger.Debug("Prompt assembled",
		"pdfs", len(pdfs),
		"chunks", len(retrieved.Chunks),
		"context_found", reply.ContextFound,
		"prompt_tokens", s.deps.Contexts.CountTokens(reply.Prompt),
	)

	gctx, cancel := withTimeout(ctx, s.opts.GenerationTimeout)
	answer, err := s.deps.Generator.Generate(gctx, reply.Prompt)
	cancel()
	if err != nil {
		logger.Error("Answer generation failed", "error", err)
		reply.GenerationErr = err
		answer = "Error generating answer: " + err.Error()
	}

	reply.HTML, err = s.deps.Renderer.Render(answer)
	if err != nil {
		logger.Warn("Failed to render answer, storing escaped text", "error", err)
		reply.HTML = "<p>" + html.EscapeString(answer) + "</p>"
	}

	if _, err := s.deps.Store.AddMessage(ctx, conv.ID, domain.SenderBot, reply.HTML); err != nil {
		return nil, fmt.Errorf("failed to store bot message: %w", err)
	}

	return reply, nil
}

// History returns the messages of sessionID oldest first; unknown sessions have none
func (s *ChatService) History(ctx context.Context, sessionID string) ([]domain.Message, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, fmt.Errorf("%w: session_id is required", domain.ErrValidation)
	}

	conv, err := s.deps.Store.FindConversation(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find conversation: %w", err)
	}
	if conv == nil {
		return []domain.Message{}, nil
	}

	messages, err := s.deps.Store.ListMessages(ctx, conv.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return messages, nil
}

// Conversations lists every conversation newest first with its PDFs
func (s *ChatService) Conversations(ctx context.Context) ([]domain.ConversationSummary, error) {
	summaries, err := s.deps.Store.ListConversations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	return summaries, nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func hasPDFExtension(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".pdf")
}
