package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/lumina-ai/lumina/internal/log"
)

// Config holds application configuration
type Config struct {
	Server struct {
		Addr           string `yaml:"addr" env:"ADDR"`
		MaxUploadBytes int64  `yaml:"max_upload_bytes" env:"MAX_UPLOAD_BYTES"`
	} `yaml:"server" envPrefix:"SERVER_"`
	Database struct {
		Driver           string `yaml:"driver" env:"DRIVER"`
		ConnectionString string `yaml:"connection_string" env:"URL"`
		SQLitePath       string `yaml:"sqlite_path" env:"SQLITE_PATH"`
	} `yaml:"database" envPrefix:"DATABASE_"`
	Vector struct {
		Backend      string `yaml:"backend" env:"BACKEND"`
		QdrantHost   string `yaml:"qdrant_host" env:"QDRANT_HOST"`
		QdrantPort   int    `yaml:"qdrant_port" env:"QDRANT_PORT"`
		QdrantAPIKey string `yaml:"qdrant_api_key" env:"QDRANT_API_KEY"`
	} `yaml:"vector" envPrefix:"VECTOR_"`
	Ollama struct {
		BaseURL      string `yaml:"base_url" env:"BASE_URL"`
		DefaultModel string `yaml:"default_model" env:"DEFAULT_MODEL"`
	} `yaml:"ollama" envPrefix:"OLLAMA_"`
	Gemini struct {
		APIKey  string `yaml:"api_key" env:"API_KEY"`
		BaseURL string `yaml:"base_url" env:"BASE_URL"`
		Model   string `yaml:"model" env:"MODEL"`
	} `yaml:"gemini" envPrefix:"GEMINI_"`
	Embeddings struct {
		TextModel string `yaml:"text_model" env:"TEXT_MODEL"`
	} `yaml:"embeddings" envPrefix:"EMBEDDINGS_"`
	Generation struct {
		Provider string `yaml:"provider" env:"PROVIDER"`
	} `yaml:"generation" envPrefix:"GENERATION_"`
	Extraction struct {
		Provider string `yaml:"provider" env:"PROVIDER"`
	} `yaml:"extraction" envPrefix:"EXTRACTION_"`
	Translation struct {
		Enabled        bool   `yaml:"enabled" env:"ENABLED"`
		TargetLanguage string `yaml:"target_language" env:"TARGET_LANGUAGE"`
	} `yaml:"translation" envPrefix:"TRANSLATION_"`
	Processing struct {
		ChunkSize        int `yaml:"chunk_size" env:"CHUNK_SIZE"`
		ChunkOverlap     int `yaml:"chunk_overlap" env:"CHUNK_OVERLAP"`
		TopK             int `yaml:"top_k" env:"TOP_K"`
		MaxContextTokens int `yaml:"max_context_tokens" env:"MAX_CONTEXT_TOKENS"`
	} `yaml:"processing" envPrefix:"PROCESSING_"`
	Timeouts Timeouts   `yaml:"timeouts" envPrefix:"TIMEOUT_"`
	Log      log.Config `yaml:"log" envPrefix:"LOG_"`
}

// Timeouts bounds every call to an external service
type Timeouts struct {
	Extraction  time.Duration `yaml:"extraction" env:"EXTRACTION"`
	Translation time.Duration `yaml:"translation" env:"TRANSLATION"`
	Embedding   time.Duration `yaml:"embedding" env:"EMBEDDING"`
	Generation  time.Duration `yaml:"generation" env:"GENERATION"`
	Vector      time.Duration `yaml:"vector" env:"VECTOR"`
}

// Path returns the config file location, honouring LUMINA_CONFIG
func Path() string {
	if p := os.Getenv("LUMINA_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(os.Getenv("HOME"), ".lumina", "config.yaml")
}

// Load reads defaults, the YAML file (if any), .env and LUMINA_* environment overrides
func Load() (*Config, error) {
	return LoadFile(Path())
}

// LoadFile is Load with an explicit config file path
func LoadFile(configPath string) (*Config, error) {
	cfg := Default()

	// A missing .env is the normal case
	_ = godotenv.Load()

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: "LUMINA_"}); err != nil {
		return cfg, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects settings the pipeline cannot run with
func (c *Config) Validate() error {
	if c.Processing.ChunkSize <= 0 {
		return fmt.Errorf("processing.chunk_size must be positive, got %d", c.Processing.ChunkSize)
	}
	if c.Processing.ChunkOverlap < 0 || c.Processing.ChunkOverlap >= c.Processing.ChunkSize {
		return fmt.Errorf("processing.chunk_overlap must be in [0, chunk_size), got %d", c.Processing.ChunkOverlap)
	}
	if c.Processing.TopK <= 0 {
		return fmt.Errorf("processing.top_k must be positive, got %d", c.Processing.TopK)
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database.driver %q", c.Database.Driver)
	}
	switch c.Vector.Backend {
	case "pgvector":
		if c.Database.Driver != "postgres" {
			return errors.New("vector.backend pgvector requires database.driver postgres")
		}
	case "qdrant":
	default:
		return fmt.Errorf("unsupported vector.backend %q", c.Vector.Backend)
	}
	switch c.Generation.Provider {
	case "gemini", "ollama":
	default:
		return fmt.Errorf("unsupported generation.provider %q", c.Generation.Provider)
	}
	switch c.Extraction.Provider {
	case "gemini", "fitz":
	default:
		return fmt.Errorf("unsupported extraction.provider %q", c.Extraction.Provider)
	}
	return nil
}

// Default returns default configuration
func Default() *Config {
	cfg := &Config{}

	cfg.Server.Addr = ":5000"
	cfg.Server.MaxUploadBytes = 32 << 20

	cfg.Database.Driver = "postgres"
	cfg.Database.ConnectionString = "postgres://postgres@localhost/lumina?sslmode=disable"
	cfg.Database.SQLitePath = filepath.Join(os.Getenv("HOME"), ".lumina", "lumina.db")

	cfg.Vector.Backend = "pgvector"
	cfg.Vector.QdrantHost = "localhost"
	cfg.Vector.QdrantPort = 6334

	cfg.Ollama.BaseURL = "http://localhost:11434"
	cfg.Ollama.DefaultModel = ""

	cfg.Gemini.Model = "gemini-2.0-flash"

	cfg.Embeddings.TextModel = "paraphrase-multilingual"
	cfg.Generation.Provider = "gemini"
	cfg.Extraction.Provider = "gemini"

	cfg.Translation.Enabled = true
	cfg.Translation.TargetLanguage = "ne"

	cfg.Processing.ChunkSize = 512
	cfg.Processing.ChunkOverlap = 50
	cfg.Processing.TopK = 5
	cfg.Processing.MaxContextTokens = 0

	cfg.Timeouts = Timeouts{
		Extraction:  2 * time.Minute,
		Translation: 15 * time.Second,
		Embedding:   30 * time.Second,
		Generation:  2 * time.Minute,
		Vector:      15 * time.Second,
	}

	cfg.Log.Level = "info"
	cfg.Log.Format = "console"

	return cfg
}
