// Package config provides configuration loading and structs for the kensaku server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Backend types.
const (
	BackendLocal    = "local"
	BackendPostgres = "postgres"
)

// Embedding providers.
const (
	ProviderMock   = "mock"
	ProviderONNX   = "onnx"
	ProviderOpenAI = "openai"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Backend   string          `yaml:"backend"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Search    SearchConfig    `yaml:"search"`
	Ingest    IngestConfig    `yaml:"ingest"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// RateLimit is the sustained request rate per second; 0 disables limiting.
	RateLimit float64 `yaml:"rate_limit"`
	RateBurst int     `yaml:"rate_burst"`
}

// StorageConfig holds paths for the local backend's catalog and full-text index.
type StorageConfig struct {
	DatabasePath   string `yaml:"database_path"`
	BleveIndexPath string `yaml:"bleve_index_path"`
}

// EmbeddingConfig selects and configures the embedder used for ingestion and
// text-only queries.
type EmbeddingConfig struct {
	Provider      string `yaml:"provider"`
	ModelPath     string `yaml:"model_path"`
	Dimensions    int    `yaml:"dimensions"`
	MaxTokens     int    `yaml:"max_tokens"`
	CacheSize     int    `yaml:"cache_size"`
	OpenAIAPIKey  string `yaml:"openai_api_key"`
	OpenAIBaseURL string `yaml:"openai_base_url"`
	OpenAIModel   string `yaml:"openai_model"`
}

// SearchConfig holds search defaults.
type SearchConfig struct {
	DefaultLimit   int      `yaml:"default_limit"`
	MaxLimit       int      `yaml:"max_limit"`
	SemanticWeight *float64 `yaml:"semantic_weight"`
	LexicalWeight  *float64 `yaml:"lexical_weight"`
	TitleBoost     float64  `yaml:"title_boost"`
	// StrictDimensionInference rejects embeddings whose length matches no
	// supported dimension before falling back to 1536. Such requests fail
	// either way, since the fallback tag never matches the vector length;
	// the setting only changes the error message and skips the warning.
	StrictDimensionInference bool `yaml:"strict_dimension_inference"`
}

// SemanticWeightOrDefault returns the configured semantic weight; 0.7 when unset.
func (s *SearchConfig) SemanticWeightOrDefault() float64 {
	if s.SemanticWeight != nil {
		return *s.SemanticWeight
	}
	return DefaultSemanticWeight
}

// LexicalWeightOrDefault returns the configured lexical weight; 0.3 when unset.
func (s *SearchConfig) LexicalWeightOrDefault() float64 {
	if s.LexicalWeight != nil {
		return *s.LexicalWeight
	}
	return DefaultLexicalWeight
}

// IngestConfig holds settings for the index command and document API.
type IngestConfig struct {
	Extensions []string `yaml:"extensions"`
	SourceID   string   `yaml:"source_id"`
	// Watch lists directories the server keeps indexed (local backend only).
	Watch []WatchConfig `yaml:"watch"`
}

// WatchConfig is a directory watched by the server. SourceID defaults to
// ingest.source_id.
type WatchConfig struct {
	Path     string `yaml:"path"`
	SourceID string `yaml:"source_id"`
}

// Load reads and parses the config file at path, expands paths, applies
// environment overrides and defaults. Returns an error if the file cannot be
// read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyEnv(&cfg, os.Getenv)
	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.BleveIndexPath = expandPath(cfg.Storage.BleveIndexPath, configDir)
	if cfg.Embedding.ModelPath != "" {
		cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	}
	for i := range cfg.Ingest.Watch {
		cfg.Ingest.Watch[i].Path = expandPath(cfg.Ingest.Watch[i].Path, configDir)
	}

	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate reports configuration that cannot be started.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendLocal:
	case BackendPostgres:
		if err := c.Postgres.Validate(); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
	default:
		return fmt.Errorf("unknown backend %q (supported: local, postgres)", c.Backend)
	}
	switch c.Embedding.Provider {
	case ProviderMock, ProviderONNX, ProviderOpenAI:
	default:
		return fmt.Errorf("unknown embedding provider %q (supported: mock, onnx, openai)", c.Embedding.Provider)
	}
	switch c.Embedding.Dimensions {
	case 384, 768, 1024, 1536, 3072:
	default:
		return fmt.Errorf("unsupported embedding dimensions %d", c.Embedding.Dimensions)
	}
	if len(c.Ingest.Watch) > 0 && c.Backend != BackendLocal {
		return fmt.Errorf("ingest.watch requires the local backend")
	}
	for _, w := range c.Ingest.Watch {
		if w.Path == "" {
			return fmt.Errorf("ingest.watch entries need a path")
		}
	}
	if c.Search.DefaultLimit > c.Search.MaxLimit {
		return fmt.Errorf("search.default_limit %d exceeds search.max_limit %d", c.Search.DefaultLimit, c.Search.MaxLimit)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) || path == ":memory:" {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
