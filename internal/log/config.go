package log

import (
	"os"
	"strconv"
	"strings"
)

// Config holds logging configuration
type Config struct {
	// Level is one of debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`

	// Format is console or json
	Format string `yaml:"format" env:"FORMAT"`

	// AddSource adds file:line to every record
	AddSource bool `yaml:"add_source" env:"ADD_SOURCE"`
}

// NewConfigFromEnv builds a logging config from LOG_* environment variables
func NewConfigFromEnv() *Config {
	cfg := &Config{
		Level:     getEnvWithDefault("LOG_LEVEL", "info"),
		Format:    getEnvWithDefault("LOG_FORMAT", "console"),
		AddSource: getEnvBool("LOG_ADD_SOURCE", false),
	}

	return cfg.withEnvironment()
}

// withEnvironment returns c, or a debug console copy of it when ENV=development
func (c *Config) withEnvironment() *Config {
	if !c.isDevelopment() {
		return c
	}
	dev := *c
	dev.Level = "debug"
	dev.Format = "console"
	dev.AddSource = true
	return &dev
}

func (c *Config) isDevelopment() bool {
	return strings.ToLower(getEnvWithDefault("ENV", "production")) == "development"
}

func getEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}
