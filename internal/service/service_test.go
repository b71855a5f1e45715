package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumina-ai/lumina/internal/documents"
	"github.com/lumina-ai/lumina/internal/domain"
	"github.com/lumina-ai/lumina/internal/rag"
	"github.com/lumina-ai/lumina/internal/render"
	"github.com/lumina-ai/lumina/internal/store/sqlite"
	"github.com/lumina-ai/lumina/internal/translate"
	"github.com/lumina-ai/lumina/internal/vector"
	"github.com/lumina-ai/lumina/internal/vector/memory"
)

// hashEmbedder gives every text the same direction so all chunks match
type hashEmbedder struct{}

func (hashEmbedder) Model() string { return "test-embed" }

func (hashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.ErrEmbeddingFailed
	}
	return []float32{1, 1, 1}, nil
}

type recordingGenerator struct {
	mu      sync.Mutex
	prompts []string
	answer  string
	err     error
}

func (g *recordingGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	return g.answer, g.err
}

type fixedTranslator struct {
	result translate.Result
}

func (f fixedTranslator) Translate(context.Context, string, string) translate.Result {
	return f.result
}

type stubExtractor struct {
	text string
	err  error
}

func (e stubExtractor) Extract(context.Context, string, []byte) (string, error) {
	return e.text, e.err
}

// queueExtractor returns its texts one per call
type queueExtractor struct {
	mu    sync.Mutex
	texts []string
}

func (e *queueExtractor) Extract(context.Context, string, []byte) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	text := e.texts[0]
	e.texts = e.texts[1:]
	return text, nil
}

type failingEmbedder struct{}

func (failingEmbedder) Model() string { return "test-embed" }

func (failingEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, fmt.Errorf("%w: ollama unavailable", domain.ErrEmbeddingFailed)
}

type testEnv struct {
	svc       *ChatService
	store     *sqlite.Store
	vectors   *memory.Store
	generator *recordingGenerator
}

func setupTestService(t *testing.T, translator translate.Translator, extractor domain.Extractor) *testEnv {
	t.Helper()
	return setupTestServiceWith(t, hashEmbedder{}, translator, extractor)
}

func setupTestServiceWith(t *testing.T, embedder domain.Embedder, translator translate.Translator, extractor domain.Extractor) *testEnv {
	t.Helper()

	store, err := sqlite.Open(filepath.Join(t.TempDir(), "lumina.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	vectors := memory.NewStore()
	locked := vector.NewLocked(vectors)
	chunker, err := documents.NewChunker(512, 50)
	require.NoError(t, err)

	gen := &recordingGenerator{answer: "**Answer** text"}
	svc := NewChatService(Deps{
		Store:      store,
		Retriever:  rag.NewRetriever(embedder, locked, 5, 0, 0),
		Contexts:   rag.NewContextBuilder(0),
		Processor:  documents.NewProcessor(chunker, embedder, locked, 0, 0),
		Extractor:  extractor,
		Generator:  gen,
		Translator: translator,
		Renderer:   render.New(),
	}, Options{TargetLanguage: "ne"})

	return &testEnv{svc: svc, store: store, vectors: vectors, generator: gen}
}

var pdfBytes = []byte("%PDF-1.4\n%fake\n")

func TestChat_NoPDFsUsesTranslatedQuery(t *testing.T) {
	env := setupTestService(t, fixedTranslator{translate.Ok("नमस्ते")}, stubExtractor{})
	ctx := context.Background()

	reply, err := env.svc.Chat(ctx, "sess-1", "Hello")
	require.NoError(t, err)

	assert.Equal(t, "Answer: नमस्ते", reply.Prompt)
	assert.False(t, reply.ContextFound)
	assert.Equal(t, "<p><strong>Answer</strong> text</p>", reply.HTML)

	history, err := env.svc.History(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, domain.SenderUser, history[0].Sender)
	assert.Equal(t, "Hello", history[0].Content)
	assert.Equal(t, domain.SenderBot, history[1].Sender)
	assert.Equal(t, reply.HTML, history[1].Content)
}

func TestChat_TranslationFallbackUsesOriginal(t *testing.T) {
	fallback := translate.Fallback("Hello", errors.New("down"))
	env := setupTestService(t, fixedTranslator{fallback}, stubExtractor{})

	reply, err := env.svc.Chat(context.Background(), "sess-1", "Hello")
	require.NoError(t, err)
	assert.Equal(t, "Answer: Hello", reply.Prompt)
	assert.True(t, reply.Translation.Fallback)
}

func TestChat_WithPDFContext(t *testing.T) {
	text := strings.Repeat("क", 600) + strings.Repeat("b", 500)
	env := setupTestService(t, fixedTranslator{translate.Ok("translated")}, stubExtractor{text: text})
	ctx := context.Background()

	res, err := env.svc.UploadPDF(ctx, "sess-1", "Report.PDF", pdfBytes)
	require.NoError(t, err)
	require.Equal(t, 3, res.NumChunks)

	reply, err := env.svc.Chat(ctx, "sess-1", "What is in the report?")
	require.NoError(t, err)
	assert.True(t, reply.ContextFound)

	chunker, err := documents.NewChunker(512, 50)
	require.NoError(t, err)
	chunks := chunker.Split(text)

	assert.True(t, strings.HasPrefix(reply.Prompt, "Given the following context:\n"))
	assert.True(t, strings.HasSuffix(reply.Prompt, "\n\nAnswer the following query:\nWhat is in the report?"))
	for _, c := range chunks {
		assert.Contains(t, reply.Prompt, c, "chunks appear verbatim")
	}
	assert.NotContains(t, reply.Prompt, "translated")
}

func TestChat_GenerationFailureStoredAsBotMessage(t *testing.T) {
	env := setupTestService(t, translate.Noop{}, stubExtractor{})
	env.generator.err = errors.New("quota exceeded")
	ctx := context.Background()

	reply, err := env.svc.Chat(ctx, "sess-1", "Hi")
	require.NoError(t, err)
	require.Error(t, reply.GenerationErr)
	assert.Contains(t, reply.HTML, "Error generating answer: quota exceeded")

	history, err := env.svc.History(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, reply.HTML, history[1].Content)
}

func TestChat_Validation(t *testing.T) {
	env := setupTestService(t, translate.Noop{}, stubExtractor{})

	_, err := env.svc.Chat(context.Background(), "", "Hi")
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = env.svc.Chat(context.Background(), "sess-1", "  ")
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Empty(t, env.generator.prompts)
}

func TestChat_MessageOrderAcrossTurns(t *testing.T) {
	env := setupTestService(t, translate.Noop{}, stubExtractor{})
	ctx := context.Background()

	for _, q := range []string{"one", "two", "three"} {
		_, err := env.svc.Chat(ctx, "sess-1", q)
		require.NoError(t, err)
	}

	history, err := env.svc.History(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, history, 6)
	for i, q := range []string{"one", "two", "three"} {
		assert.Equal(t, domain.SenderUser, history[2*i].Sender)
		assert.Equal(t, q, history[2*i].Content)
		assert.Equal(t, domain.SenderBot, history[2*i+1].Sender)
	}
}

func TestNewConversation(t *testing.T) {
	env := setupTestService(t, translate.Noop{}, stubExtractor{})
	ctx := context.Background()

	generated, err := env.svc.NewConversation(ctx, "")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(generated.SessionID, "sess-"))

	first, err := env.svc.NewConversation(ctx, "sess-1")
	require.NoError(t, err)
	again, err := env.svc.NewConversation(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
}

func TestHistory_UnknownSessionIsEmpty(t *testing.T) {
	env := setupTestService(t, translate.Noop{}, stubExtractor{})

	history, err := env.svc.History(context.Background(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, history)
	assert.Empty(t, history)

	_, err = env.svc.History(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestUploadPDF_StoresChunksAndRecord(t *testing.T) {
	env := setupTestService(t, translate.Noop{}, stubExtractor{text: strings.Repeat("x", 1100)})
	ctx := context.Background()

	res, err := env.svc.UploadPDF(ctx, "sess-9", "../My Notes.pdf", pdfBytes)
	require.NoError(t, err)
	assert.Equal(t, "chat_sess-9", res.PDFID)
	assert.Equal(t, "My_Notes.pdf", res.Filename)
	assert.Equal(t, 3, res.NumChunks)
	assert.Empty(t, res.Error)
	assert.Equal(t, 3, env.vectors.Len("chat_sess-9"))

	convs, err := env.svc.Conversations(ctx)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, "sess-9", convs[0].SessionID)
	require.Len(t, convs[0].PDFs, 1)
	assert.Equal(t, "chat_sess-9", convs[0].PDFs[0].CollectionID)
	assert.Equal(t, "My_Notes.pdf", convs[0].PDFs[0].Filename)
}

func TestUploadPDF_SecondUploadSharesCollection(t *testing.T) {
	env := setupTestService(t, translate.Noop{}, stubExtractor{text: "short text"})
	ctx := context.Background()

	_, err := env.svc.UploadPDF(ctx, "sess-1", "a.pdf", pdfBytes)
	require.NoError(t, err)
	_, err = env.svc.UploadPDF(ctx, "sess-1", "b.pdf", pdfBytes)
	require.NoError(t, err)
	assert.Equal(t, 2, env.vectors.Len("chat_sess-1"))

	reply, err := env.svc.Chat(ctx, "sess-1", "q")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(reply.Prompt, "short text\nshort text"), "each chunk retrieved once")
}

func TestUploadPDF_ExtractionFailure(t *testing.T) {
	env := setupTestService(t, translate.Noop{}, stubExtractor{err: domain.ErrExtractionFailed})
	ctx := context.Background()

	res, err := env.svc.UploadPDF(ctx, "sess-1", "a.pdf", pdfBytes)
	require.NoError(t, err)
	assert.Zero(t, res.NumChunks)
	assert.Contains(t, res.Error, "Error extracting text")
	assert.Zero(t, env.vectors.Len("chat_sess-1"))

	convs, err := env.svc.Conversations(ctx)
	require.NoError(t, err)
	require.Len(t, convs, 1, "conversation is still created")
	assert.Empty(t, convs[0].PDFs)
}

func TestUploadPDF_Validation(t *testing.T) {
	env := setupTestService(t, translate.Noop{}, stubExtractor{text: "x"})
	ctx := context.Background()

	_, err := env.svc.UploadPDF(ctx, "", "a.pdf", pdfBytes)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = env.svc.UploadPDF(ctx, "sess-1", "a.docx", pdfBytes)
	assert.ErrorIs(t, err, domain.ErrInvalidFile)
	_, err = env.svc.UploadPDF(ctx, "sess-1", "a.pdf", []byte("not a pdf"))
	assert.ErrorIs(t, err, domain.ErrInvalidFile)
}

func TestUploadPDF_UnsafeNamesKeepSeparateChunks(t *testing.T) {
	extractor := &queueExtractor{texts: []string{"FIRST DOC", "SECOND DOC"}}
	env := setupTestService(t, translate.Noop{}, extractor)
	ctx := context.Background()

	first, err := env.svc.UploadPDF(ctx, "sess-1", "नेपाली.pdf", pdfBytes)
	require.NoError(t, err)
	second, err := env.svc.UploadPDF(ctx, "sess-1", "हिन्दी.pdf", pdfBytes)
	require.NoError(t, err)

	assert.NotEqual(t, first.Filename, second.Filename)
	assert.Equal(t, 2, env.vectors.Len("chat_sess-1"))

	reply, err := env.svc.Chat(ctx, "sess-1", "q")
	require.NoError(t, err)
	assert.Contains(t, reply.Prompt, "FIRST DOC")
	assert.Contains(t, reply.Prompt, "SECOND DOC")
}

func TestUploadPDF_SameNameGetsSuffix(t *testing.T) {
	extractor := &queueExtractor{texts: []string{"old report", "new report", "newest report"}}
	env := setupTestService(t, translate.Noop{}, extractor)
	ctx := context.Background()

	var names []string
	for range 3 {
		res, err := env.svc.UploadPDF(ctx, "sess-1", "report.pdf", pdfBytes)
		require.NoError(t, err)
		names = append(names, res.Filename)
	}
	assert.Equal(t, []string{"report.pdf", "report_2.pdf", "report_3.pdf"}, names)
	assert.Equal(t, 3, env.vectors.Len("chat_sess-1"))

	convs, err := env.svc.Conversations(ctx)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	require.Len(t, convs[0].PDFs, 3)
	assert.Equal(t, "report_3.pdf", convs[0].PDFs[2].Filename)
}

func TestUploadPDF_BlankRunsBetweenPages(t *testing.T) {
	text := "A" + strings.Repeat("\n", 1000) + "B"
	env := setupTestService(t, translate.Noop{}, stubExtractor{text: text})

	res, err := env.svc.UploadPDF(context.Background(), "sess-1", "a.pdf", pdfBytes)
	require.NoError(t, err)
	assert.Empty(t, res.Error)
	assert.Equal(t, 2, res.NumChunks)
	assert.Equal(t, res.NumChunks, env.vectors.Len("chat_sess-1"))
}

func TestUploadPDF_EmbeddingFailureReportedInResult(t *testing.T) {
	env := setupTestServiceWith(t, failingEmbedder{}, translate.Noop{}, stubExtractor{text: "some text"})
	ctx := context.Background()

	res, err := env.svc.UploadPDF(ctx, "sess-1", "a.pdf", pdfBytes)
	require.NoError(t, err)
	assert.Zero(t, res.NumChunks)
	assert.Contains(t, res.Error, "Error processing document")
	assert.Contains(t, res.Error, "ollama unavailable")
	assert.Zero(t, env.vectors.Len("chat_sess-1"))

	convs, err := env.svc.Conversations(ctx)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Empty(t, convs[0].PDFs)
}
