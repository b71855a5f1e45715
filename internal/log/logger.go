package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	mu            sync.RWMutex
	defaultLogger *slog.Logger
)

// Init configures the process-wide logger and installs it as the slog default
func Init(cfg *Config) {
	InitWithWriter(cfg, os.Stdout)
}

// InitWithWriter is Init with an explicit output, used by tests
func InitWithWriter(cfg *Config, w io.Writer) {
	if cfg == nil {
		cfg = NewConfigFromEnv()
	}
	cfg = cfg.withEnvironment()

	opts := &slog.HandlerOptions{
		Level:     parseLevel(cfg.Level),
		AddSource: cfg.AddSource,
	}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(handler.WithAttrs([]slog.Attr{
		slog.String("service", "lumina"),
	}))

	mu.Lock()
	defaultLogger = logger
	mu.Unlock()

	slog.SetDefault(logger)
}

// GetLogger returns the process-wide logger, initializing it from the environment if needed
func GetLogger() *slog.Logger {
	mu.RLock()
	l := defaultLogger
	mu.RUnlock()
	if l == nil {
		Init(nil)
		mu.RLock()
		l = defaultLogger
		mu.RUnlock()
	}
	return l
}

// NewModuleLogger returns a logger tagged with module and component
func NewModuleLogger(module, component string) *slog.Logger {
	return GetLogger().With(
		slog.String("module", module),
		slog.String("component", component),
	)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
