// Package config loads application configuration from an optional .env file
// and environment variables. All variables use the LESSONNOTES_ prefix.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	OpenAI   OpenAIConfig
	Batch    BatchConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Drafts   DraftConfig
	Log      LogConfig
	// AbbreviationsFile overrides the built-in subject abbreviation table.
	AbbreviationsFile string
	// ImportPublic marks imported curriculum records as shared with all users.
	ImportPublic bool
	// MergePolicy names the curriculum merge key policy: "curriculum" or
	// "indicator-fidelity".
	MergePolicy string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int
	Host string
}

// OpenAIConfig holds the lesson generation endpoint settings.
type OpenAIConfig struct {
	Provider string // "openai", "anthropic" or "huggingface"
	APIKey   string
	Model    string
	BaseURL  string
	Timeout  time.Duration
}

// BatchConfig bounds fan-out for batch generation and multi-file imports.
type BatchConfig struct {
	Concurrency int
}

// DatabaseConfig holds PostgreSQL connection settings. An empty URL keeps
// curriculum records in memory.
type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
}

// CacheConfig holds Redis connection settings.
type CacheConfig struct {
	URL string
}

// DraftConfig selects where lesson drafts are kept.
type DraftConfig struct {
	Backend string // "file" or "redis"
	Dir     string
	TTL     time.Duration
}

// LogConfig holds logging settings.
type LogConfig struct {
	Mode string
}

// Load reads .env (if present) and then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load() // a missing .env is fine

	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("LESSONNOTES_SERVER_PORT", 8080),
			Host: envStr("LESSONNOTES_SERVER_HOST", "0.0.0.0"),
		},
		OpenAI: OpenAIConfig{
			Provider: strings.ToLower(envStr("LESSONNOTES_LLM_PROVIDER", "openai")),
			APIKey:   envStr("LESSONNOTES_OPENAI_API_KEY", os.Getenv("OPENAI_API_KEY")),
			Model:    envStr("LESSONNOTES_OPENAI_MODEL", ""),
			BaseURL:  envStr("LESSONNOTES_OPENAI_BASE_URL", ""),
			Timeout:  envDuration("LESSONNOTES_OPENAI_TIMEOUT", 90*time.Second),
		},
		Batch: BatchConfig{
			Concurrency: envInt("LESSONNOTES_BATCH_CONCURRENCY", 3),
		},
		Database: DatabaseConfig{
			URL:      envStr("LESSONNOTES_DATABASE_URL", ""),
			MaxConns: envInt("LESSONNOTES_DATABASE_MAX_CONNS", 10),
			MinConns: envInt("LESSONNOTES_DATABASE_MIN_CONNS", 1),
		},
		Cache: CacheConfig{
			URL: envStr("LESSONNOTES_CACHE_URL", "redis://localhost:6379"),
		},
		Drafts: DraftConfig{
			Backend: strings.ToLower(envStr("LESSONNOTES_DRAFT_BACKEND", "file")),
			Dir:     envStr("LESSONNOTES_DRAFT_DIR", "data/drafts"),
			TTL:     envDuration("LESSONNOTES_DRAFT_TTL", 7*24*time.Hour),
		},
		Log: LogConfig{
			Mode: envStr("LESSONNOTES_LOG_MODE", "dev"),
		},
		AbbreviationsFile: envStr("LESSONNOTES_ABBREVIATIONS_FILE", ""),
		ImportPublic:      envBool("LESSONNOTES_IMPORT_PUBLIC", true),
		MergePolicy:       strings.ToLower(envStr("LESSONNOTES_MERGE_POLICY", "curriculum")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Batch.Concurrency < 1 {
		return fmt.Errorf("LESSONNOTES_BATCH_CONCURRENCY must be >= 1, got %d", c.Batch.Concurrency)
	}
	if c.Drafts.Backend != "file" && c.Drafts.Backend != "redis" {
		return fmt.Errorf("LESSONNOTES_DRAFT_BACKEND must be 'file' or 'redis', got %q", c.Drafts.Backend)
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("LESSONNOTES_SERVER_PORT must be positive, got %d", c.Server.Port)
	}
	return nil
}

// HasGenerator reports whether lesson generation can be enabled.
func (c *Config) HasGenerator() bool {
	return c.OpenAI.APIKey != ""
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		return strings.EqualFold(v, "true") || v == "1"
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
