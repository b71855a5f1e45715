package httpapi

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lumina-ai/lumina/internal/domain"
	"github.com/lumina-ai/lumina/internal/log"
)

const multipartMemory = 8 << 20

// Handler serves the chat endpoints
type Handler struct {
	svc            ChatService
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewHandler creates a new handler
func NewHandler(svc ChatService, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 32 << 20
	}
	return &Handler{
		svc:            svc,
		maxUploadBytes: maxUploadBytes,
		logger:         log.NewModuleLogger("http", "handler"),
	}
}

// NewChatRequest is the body of POST /chat/new
type NewChatRequest struct {
	SessionID string `json:"session_id"`
}

// ChatRequest is the body of POST /chat
type ChatRequest struct {
	SessionID   string `json:"session_id"`
	UserMessage string `json:"user_message"`
}

// MessageResponse is one entry of GET /history
type MessageResponse struct {
	Sender    string `json:"sender"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// PDFResponse is one uploaded document of a conversation
type PDFResponse struct {
	PDFID      string `json:"pdf_id"`
	Filename   string `json:"filename"`
	UploadedAt string `json:"uploaded_at"`
}

// ConversationResponse is one entry of GET /conversations
type ConversationResponse struct {
	SessionID string        `json:"session_id"`
	CreatedAt string        `json:"created_at"`
	PDFs      []PDFResponse `json:"pdfs"`
}

// UploadResponse is the body returned by POST /pdf/upload
type UploadResponse struct {
	PDFID     string `json:"pdf_id"`
	NumChunks int    `json:"num_chunks"`
	Error     string `json:"error,omitempty"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// NewChat creates or resumes a conversation
// POST /chat/new
func (h *Handler) NewChat(c *gin.Context) {
	var req NewChatRequest
	// An empty body asks for a generated session id
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON body"})
		return
	}

	conv, err := h.svc.NewConversation(c.Request.Context(), req.SessionID)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id": conv.SessionID,
		"created_at": formatTime(conv.CreatedAt),
	})
}

// Chat answers one user message
// POST /chat
func (h *Handler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.SessionID == "" || req.UserMessage == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing session_id or user_message"})
		return
	}

	reply, err := h.svc.Chat(c.Request.Context(), req.SessionID, req.UserMessage)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"bot_reply": reply.HTML})
}

// History lists a conversation's messages oldest first
// GET /history?session_id=
func (h *Handler) History(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing session_id"})
		return
	}

	messages, err := h.svc.History(c.Request.Context(), sessionID)
	if err != nil {
		h.fail(c, err)
		return
	}

	out := make([]MessageResponse, 0, len(messages))
	for _, m := range messages {
		out = append(out, MessageResponse{
			Sender:    string(m.Sender),
			Content:   m.Content,
			Timestamp: formatTime(m.Timestamp),
		})
	}
	c.JSON(http.StatusOK, gin.H{"messages": out})
}

// Conversations lists all conversations newest first
// GET /conversations
func (h *Handler) Conversations(c *gin.Context) {
	summaries, err := h.svc.Conversations(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}

	out := make([]ConversationResponse, 0, len(summaries))
	for _, s := range summaries {
		pdfs := make([]PDFResponse, 0, len(s.PDFs))
		for _, p := range s.PDFs {
			pdfs = append(pdfs, PDFResponse{
				PDFID:      p.CollectionID,
				Filename:   p.Filename,
				UploadedAt: formatTime(p.UploadedAt),
			})
		}
		out = append(out, ConversationResponse{
			SessionID: s.SessionID,
			CreatedAt: formatTime(s.CreatedAt),
			PDFs:      pdfs,
		})
	}
	c.JSON(http.StatusOK, gin.H{"conversations": out})
}

// UploadPDF ingests a PDF into a conversation
// POST /pdf/upload (multipart: chat_id, file)
func (h *Handler) UploadPDF(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "File too large."})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing chat session ID."})
		return
	}

	chatID := c.PostForm("chat_id")
	if chatID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing chat session ID."})
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid file format."})
		return
	}
	f, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid file format."})
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid file format."})
		return
	}

	result, err := h.svc.UploadPDF(c.Request.Context(), chatID, header.Filename, data)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, UploadResponse{
		PDFID:     result.PDFID,
		NumChunks: result.NumChunks,
		Error:     result.Error,
	})
}

// fail maps service errors to status codes
func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidFile):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid file format."})
	case errors.Is(err, domain.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.FromContext(c.Request.Context(), h.logger).Error("Request failed",
			"path", c.Request.URL.Path,
			"error", err,
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
