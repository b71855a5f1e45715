package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/lumina-ai/lumina/config"
	"github.com/lumina-ai/lumina/internal/db"
	"github.com/lumina-ai/lumina/internal/documents"
	"github.com/lumina-ai/lumina/internal/domain"
	"github.com/lumina-ai/lumina/internal/embeddings"
	"github.com/lumina-ai/lumina/internal/gemini"
	"github.com/lumina-ai/lumina/internal/ollama"
	"github.com/lumina-ai/lumina/internal/rag"
	"github.com/lumina-ai/lumina/internal/render"
	"github.com/lumina-ai/lumina/internal/service"
	"github.com/lumina-ai/lumina/internal/store/sqlite"
	"github.com/lumina-ai/lumina/internal/translate"
	"github.com/lumina-ai/lumina/internal/vector"
	"github.com/lumina-ai/lumina/internal/vector/qdrantstore"
)

// app owns the wired chat service and the resources it must release
type app struct {
	svc     *service.ChatService
	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	store, pg, err := a.openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	vectors, err := a.openVectors(ctx, cfg, pg)
	if err != nil {
		return nil, err
	}

	generator, err := newGenerator(ctx, cfg)
	if err != nil {
		return nil, err
	}

	extractor, err := newExtractor(ctx, cfg)
	if err != nil {
		return nil, err
	}

	chunker, err := documents.NewChunker(cfg.Processing.ChunkSize, cfg.Processing.ChunkOverlap)
	if err != nil {
		return nil, err
	}

	embedder := embeddings.NewTextEmbedder(cfg.Ollama.BaseURL, cfg.Embeddings.TextModel)

	var translator translate.Translator = translate.Noop{}
	if cfg.Translation.Enabled {
		translator = translate.NewLLM(generator)
	}

	a.svc = service.NewChatService(service.Deps{
		Store:      store,
		Retriever:  rag.NewRetriever(embedder, vectors, cfg.Processing.TopK, cfg.Timeouts.Embedding, cfg.Timeouts.Vector),
		Contexts:   rag.NewContextBuilder(cfg.Processing.MaxContextTokens),
		Processor:  documents.NewProcessor(chunker, embedder, vectors, cfg.Timeouts.Embedding, cfg.Timeouts.Vector),
		Extractor:  extractor,
		Generator:  generator,
		Translator: translator,
		Renderer:   render.New(),
	}, service.Options{
		TargetLanguage:     cfg.Translation.TargetLanguage,
		ExtractionTimeout:  cfg.Timeouts.Extraction,
		TranslationTimeout: cfg.Timeouts.Translation,
		GenerationTimeout:  cfg.Timeouts.Generation,
	})

	slog.Info("lumina initialized",
		"database", cfg.Database.Driver,
		"vector_backend", cfg.Vector.Backend,
		"extraction", cfg.Extraction.Provider,
		"generation", cfg.Generation.Provider,
		"embedding_model", embedder.Model(),
		"translation", cfg.Translation.Enabled,
	)

	ok = true
	return a, nil
}

func (a *app) openStore(ctx context.Context, cfg *config.Config) (domain.ConversationStore, *db.DB, error) {
	switch cfg.Database.Driver {
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(cfg.Database.SQLitePath), 0755); err != nil {
			return nil, nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		s, err := sqlite.Open(cfg.Database.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, func() { _ = s.Close() })
		return s, nil, nil
	default:
		if err := db.RunMigrations(cfg.Database.ConnectionString); err != nil {
			slog.Warn("migration check failed", "error", err)
		}
		pg, err := db.New(ctx, cfg.Database.ConnectionString)
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, pg.Close)
		return pg, pg, nil
	}
}

func (a *app) openVectors(ctx context.Context, cfg *config.Config, pg *db.DB) (domain.VectorStore, error) {
	switch cfg.Vector.Backend {
	case "qdrant":
		q, err := qdrantstore.New(qdrantstore.Config{
			Host:   cfg.Vector.QdrantHost,
			Port:   cfg.Vector.QdrantPort,
			APIKey: cfg.Vector.QdrantAPIKey,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = q.Close() })
		if err := q.Ping(ctx); err != nil {
			slog.Warn("qdrant not reachable yet", "error", err)
		}
		return vector.NewLocked(q), nil
	default:
		return vector.NewLocked(db.NewChunkStore(pg)), nil
	}
}

func newGenerator(ctx context.Context, cfg *config.Config) (domain.Generator, error) {
	if cfg.Generation.Provider == "ollama" {
		client := ollama.NewClient(cfg.Ollama.BaseURL)
		model, err := ollama.NewModelSelector(client).GetDefaultModel(ctx, cfg.Ollama.DefaultModel)
		if err != nil {
			return nil, fmt.Errorf("failed to select ollama model: %w", err)
		}
		return ollama.NewGenerator(client, model), nil
	}

	if cfg.Gemini.APIKey == "" {
		slog.Warn("gemini api key is empty; generation will fail until it is set")
	}
	client, err := newGeminiClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return gemini.NewGenerator(client), nil
}

func newExtractor(ctx context.Context, cfg *config.Config) (domain.Extractor, error) {
	if cfg.Extraction.Provider == "fitz" {
		return documents.NewFitzExtractor(), nil
	}
	client, err := newGeminiClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return gemini.NewExtractor(client), nil
}

func newGeminiClient(ctx context.Context, cfg *config.Config) (*gemini.Client, error) {
	return gemini.NewClient(ctx, gemini.Config{
		BaseURL: cfg.Gemini.BaseURL,
		APIKey:  cfg.Gemini.APIKey,
		Model:   cfg.Gemini.Model,
	})
}
