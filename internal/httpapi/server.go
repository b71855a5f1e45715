// Package httpapi exposes the chat service over REST.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lumina-ai/lumina/internal/domain"
	"github.com/lumina-ai/lumina/internal/log"
	"github.com/lumina-ai/lumina/internal/service"
)

// ChatService is the subset of service.ChatService the handlers need
type ChatService interface {
	NewConversation(ctx context.Context, sessionID string) (*domain.Conversation, error)
	Chat(ctx context.Context, sessionID, userMessage string) (*service.Reply, error)
	History(ctx context.Context, sessionID string) ([]domain.Message, error)
	Conversations(ctx context.Context) ([]domain.ConversationSummary, error)
	UploadPDF(ctx context.Context, chatID, filename string, data []byte) (*service.UploadResult, error)
}

// Server is the HTTP server
type Server struct {
	router *gin.Engine
	addr   string
	server *http.Server
	logger *slog.Logger
}

// NewServer creates the router with every endpoint registered
func NewServer(addr string, svc ChatService, maxUploadBytes int64) *Server {
	router := gin.New()
	router.Use(gin.Recovery(), RequestID(), Logging(), CORS())

	h := NewHandler(svc, maxUploadBytes)
	router.POST("/chat/new", h.NewChat)
	router.POST("/chat", h.Chat)
	router.GET("/history", h.History)
	router.GET("/conversations", h.Conversations)
	router.POST("/pdf/upload", h.UploadPDF)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return &Server{
		router: router,
		addr:   addr,
		server: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: log.NewModuleLogger("http", "server"),
	}
}

// Handler returns the underlying http.Handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Shutdown is called
func (s *Server) Start() error {
	s.logger.Info("HTTP server starting", "addr", s.addr)

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
