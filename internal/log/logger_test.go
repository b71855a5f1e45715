package log

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("nonsense"))
}

func TestNewConfigFromEnv(t *testing.T) {
	t.Setenv("ENV", "")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_ADD_SOURCE", "not-a-bool")

	cfg := NewConfigFromEnv()
	assert.Equal(t, "warn", cfg.Level)
	assert.Equal(t, "json", cfg.Format)
	assert.False(t, cfg.AddSource)

	t.Setenv("ENV", "Development")
	cfg = NewConfigFromEnv()
	assert.Equal(t, "debug", cfg.Level)
	assert.Equal(t, "console", cfg.Format)
	assert.True(t, cfg.AddSource)
}

func TestInit_DevelopmentOverridesConfig(t *testing.T) {
	t.Setenv("ENV", "development")
	cfg := &Config{Level: "error", Format: "json"}
	var buf bytes.Buffer
	InitWithWriter(cfg, &buf)
	t.Cleanup(func() { InitWithWriter(&Config{Level: "info"}, io.Discard) })

	NewModuleLogger("service", "chat").Debug("visible in development")

	out := buf.String()
	assert.Contains(t, out, "msg=\"visible in development\"")
	assert.Contains(t, out, "source=")
	assert.Equal(t, "error", cfg.Level, "caller config is not mutated")
}

func TestModuleLoggerWithContext(t *testing.T) {
	t.Setenv("ENV", "")
	var buf bytes.Buffer
	InitWithWriter(&Config{Level: "info", Format: "json"}, &buf)

	ctx := WithSessionID(WithRequestID(context.Background(), "req-1"), "sess-1")
	logger := FromContext(ctx, NewModuleLogger("service", "chat"))
	logger.Debug("hidden")
	logger.Info("turn completed", "chunks", 3)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "turn completed", record["msg"])
	assert.Equal(t, "lumina", record["service"])
	assert.Equal(t, "service", record["module"])
	assert.Equal(t, "chat", record["component"])
	assert.Equal(t, "req-1", record["request_id"])
	assert.Equal(t, "sess-1", record["session_id"])
	assert.EqualValues(t, 3, record["chunks"])
}

func TestFromContextWithoutAttrs(t *testing.T) {
	logger := slog.Default()
	assert.Same(t, logger, FromContext(context.Background(), logger))
	assert.Empty(t, Attrs(context.Background()))
}
