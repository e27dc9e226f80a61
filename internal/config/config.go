// Package config loads docrag settings: defaults, then a TOML file, then a
// .env file, then DOCRAG_* environment variables (env wins).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// DefaultPath is the config file read when no path is given and
// DOCRAG_CONFIG is unset.
const DefaultPath = "docrag.toml"

type Config struct {
	Chunking  ChunkingConfig  `toml:"chunking"`
	Retrieval RetrievalConfig `toml:"retrieval"`
	Ingestion IngestionConfig `toml:"ingestion"`
	Embedding EmbeddingConfig `toml:"embedding"`
	Store     StoreConfig     `toml:"store"`
	Observer  ObserverConfig  `toml:"observer"`
	Log       LogConfig       `toml:"log"`
}

type ChunkingConfig struct {
	ChunkSize    int    `toml:"chunk_size"`
	ChunkOverlap int    `toml:"chunk_overlap"`
	Splitter     string `toml:"splitter"` // "recursive" or "stride"
}

type RetrievalConfig struct {
	K                        int     `toml:"k"`
	DistanceSuccessThreshold float64 `toml:"distance_success_threshold"`
	LatencyWarningMS         int     `toml:"latency_warning_ms"`
}

// LatencyWarning returns the slow-retrieval budget as a duration.
func (c RetrievalConfig) LatencyWarning() time.Duration {
	return time.Duration(c.LatencyWarningMS) * time.Millisecond
}

type IngestionConfig struct {
	BatchSize          int `toml:"batch_size"`
	FileTimeoutSeconds int `toml:"file_timeout_seconds"` // 0 disables the per-file deadline
}

// FileTimeout returns the per-file ingestion deadline, 0 when disabled.
func (c IngestionConfig) FileTimeout() time.Duration {
	return time.Duration(c.FileTimeoutSeconds) * time.Second
}

type EmbeddingConfig struct {
	Provider   string `toml:"provider"` // "hashing" or "openai"
	Model      string `toml:"model"`
	Dimensions int    `toml:"dimensions"`
	BaseURL    string `toml:"base_url"`
	APIKey     string `toml:"api_key"`
	RPM        int    `toml:"rpm"` // 0 disables rate limiting
	MaxRetries int    `toml:"max_retries"`
}

type StoreConfig struct {
	Backend     string `toml:"backend"` // "sqlite", "postgres", "qdrant" or "memory"
	Path        string `toml:"path"`
	PostgresDSN string `toml:"postgres_dsn"`
	QdrantHost  string `toml:"qdrant_host"`
	QdrantPort  int    `toml:"qdrant_port"`
	Collection  string `toml:"collection"`
}

type ObserverConfig struct {
	Enabled bool `toml:"enabled"`
}

type LogConfig struct {
	Level  string `toml:"level"`  // debug, info, warn, error
	Format string `toml:"format"` // text or json
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		Chunking:  ChunkingConfig{ChunkSize: 1500, ChunkOverlap: 300, Splitter: "recursive"},
		Retrieval: RetrievalConfig{K: 10, DistanceSuccessThreshold: 1.0, LatencyWarningMS: 300},
		Ingestion: IngestionConfig{BatchSize: 5000},
		Embedding: EmbeddingConfig{
			Provider:   "hashing",
			Model:      "text-embedding-3-small",
			Dimensions: 384,
			BaseURL:    "https://api.openai.com/v1",
			MaxRetries: 3,
		},
		Store: StoreConfig{
			Backend:    "sqlite",
			Path:       "docrag.db",
			QdrantHost: "localhost",
			QdrantPort: 6334,
			Collection: "docrag_chunks",
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads config: defaults -> TOML file -> .env -> env vars (env wins).
// An empty path falls back to $DOCRAG_CONFIG, then DefaultPath. A missing
// file is not an error; a malformed one is.
func Load(path string) (Config, error) {
	return load(path, ".env")
}

func load(path, envFile string) (Config, error) {
	cfg := Default()

	// .env never overrides variables already set in the environment.
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	if path == "" {
		path = os.Getenv("DOCRAG_CONFIG")
	}
	if path == "" {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case !errors.Is(err, fs.ErrNotExist):
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}

	// Fallbacks
	if cfg.Embedding.APIKey == "" {
		cfg.Embedding.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	return cfg, cfg.Validate()
}

func applyEnv(cfg *Config) error {
	var errs []error
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}

	num("DOCRAG_CHUNK_SIZE", &cfg.Chunking.ChunkSize)
	num("DOCRAG_CHUNK_OVERLAP", &cfg.Chunking.ChunkOverlap)
	str("DOCRAG_SPLITTER", &cfg.Chunking.Splitter)

	num("DOCRAG_RETRIEVAL_K", &cfg.Retrieval.K)
	if v := os.Getenv("DOCRAG_SUCCESS_THRESHOLD"); v != "" {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("DOCRAG_SUCCESS_THRESHOLD: %w", err))
		} else {
			cfg.Retrieval.DistanceSuccessThreshold = f
		}
	}
	num("DOCRAG_LATENCY_WARNING_MS", &cfg.Retrieval.LatencyWarningMS)

	num("DOCRAG_BATCH_SIZE", &cfg.Ingestion.BatchSize)
	num("DOCRAG_FILE_TIMEOUT_SECONDS", &cfg.Ingestion.FileTimeoutSeconds)

	str("DOCRAG_EMBEDDING_PROVIDER", &cfg.Embedding.Provider)
	str("DOCRAG_EMBEDDING_MODEL", &cfg.Embedding.Model)
	num("DOCRAG_EMBEDDING_DIMENSIONS", &cfg.Embedding.Dimensions)
	str("DOCRAG_EMBEDDING_BASE_URL", &cfg.Embedding.BaseURL)
	str("DOCRAG_EMBEDDING_API_KEY", &cfg.Embedding.APIKey)
	num("DOCRAG_EMBEDDING_RPM", &cfg.Embedding.RPM)
	num("DOCRAG_EMBEDDING_MAX_RETRIES", &cfg.Embedding.MaxRetries)

	str("DOCRAG_STORE_BACKEND", &cfg.Store.Backend)
	str("DOCRAG_STORE_PATH", &cfg.Store.Path)
	str("DOCRAG_POSTGRES_DSN", &cfg.Store.PostgresDSN)
	str("DOCRAG_QDRANT_HOST", &cfg.Store.QdrantHost)
	num("DOCRAG_QDRANT_PORT", &cfg.Store.QdrantPort)
	str("DOCRAG_COLLECTION", &cfg.Store.Collection)

	if v := os.Getenv("DOCRAG_OBSERVER_ENABLED"); v == "true" || v == "1" {
		cfg.Observer.Enabled = true
	}

	str("DOCRAG_LOG_LEVEL", &cfg.Log.Level)
	str("DOCRAG_LOG_FORMAT", &cfg.Log.Format)

	return errors.Join(errs...)
}

// Validate reports settings no component can run with.
func (c Config) Validate() error {
	var errs []error
	if c.Chunking.ChunkSize < 1 {
		errs = append(errs, fmt.Errorf("chunking.chunk_size must be positive, got %d", c.Chunking.ChunkSize))
	}
	if c.Chunking.ChunkOverlap < 0 {
		errs = append(errs, fmt.Errorf("chunking.chunk_overlap must not be negative, got %d", c.Chunking.ChunkOverlap))
	}
	switch c.Chunking.Splitter {
	case "recursive", "stride":
	default:
		errs = append(errs, fmt.Errorf("chunking.splitter %q is not one of recursive, stride", c.Chunking.Splitter))
	}
	if c.Ingestion.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("ingestion.batch_size must be positive, got %d", c.Ingestion.BatchSize))
	}
	if c.Ingestion.FileTimeoutSeconds < 0 {
		errs = append(errs, fmt.Errorf("ingestion.file_timeout_seconds must not be negative, got %d", c.Ingestion.FileTimeoutSeconds))
	}
	switch c.Embedding.Provider {
	case "hashing", "openai":
	default:
		errs = append(errs, fmt.Errorf("embedding.provider %q is not one of hashing, openai", c.Embedding.Provider))
	}
	if c.Embedding.Dimensions < 1 {
		errs = append(errs, fmt.Errorf("embedding.dimensions must be positive, got %d", c.Embedding.Dimensions))
	}
	switch c.Store.Backend {
	case "sqlite", "memory", "qdrant":
	case "postgres":
		if c.Store.PostgresDSN == "" {
			errs = append(errs, errors.New("store.postgres_dsn is required for the postgres backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.backend %q is not one of sqlite, postgres, qdrant, memory", c.Store.Backend))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is not one of text, json", c.Log.Format))
	}
	return errors.Join(errs...)
}
