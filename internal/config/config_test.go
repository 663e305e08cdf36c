package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  host: "127.0.0.1"
  port: 9000
storage:
  database_path: "test.db"
search:
  semantic_weight: 0
  lexical_weight: 1.5
  strict_dimension_inference: true
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Storage.DatabasePath == "" {
		t.Error("database_path should be set")
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
	if cfg.Backend != BackendLocal {
		t.Errorf("backend = %q, want local", cfg.Backend)
	}
	if got := cfg.Search.SemanticWeightOrDefault(); got != 0 {
		t.Errorf("explicit zero semantic weight replaced: %f", got)
	}
	if got := cfg.Search.LexicalWeightOrDefault(); got != 1.5 {
		t.Errorf("lexical weight = %f", got)
	}
	if !cfg.Search.StrictDimensionInference {
		t.Error("strict_dimension_inference should be true")
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	path := writeConfig(t, `
storage:
  database_path: "./data/db/documents.db"
  bleve_index_path: ":memory:"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	wantDB := filepath.Join(filepath.Dir(path), "data", "db", "documents.db")
	if cfg.Storage.DatabasePath != wantDB {
		t.Errorf("database_path = %s, want %s", cfg.Storage.DatabasePath, wantDB)
	}
	if cfg.Storage.BleveIndexPath != ":memory:" {
		t.Errorf(":memory: should not be expanded, got %s", cfg.Storage.BleveIndexPath)
	}
}

func TestLoad_Watch(t *testing.T) {
	path := writeConfig(t, `
ingest:
  source_id: notes
  watch:
    - path: ./docs
    - path: /srv/wiki
      source_id: wiki
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	want := []WatchConfig{
		{Path: filepath.Join(filepath.Dir(path), "docs"), SourceID: "notes"},
		{Path: "/srv/wiki", SourceID: "wiki"},
	}
	if !reflect.DeepEqual(cfg.Ingest.Watch, want) {
		t.Errorf("watch = %+v, want %+v", cfg.Ingest.Watch, want)
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := Load(writeConfig(t, "server: [unclosed")); err == nil {
		t.Error("expected error for invalid yaml")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Server.Host != "localhost" || cfg.Server.Port != 8080 {
		t.Errorf("default server: %+v", cfg.Server)
	}
	if cfg.Search.DefaultLimit != 10 || cfg.Search.MaxLimit != 100 {
		t.Errorf("default limits: %+v", cfg.Search)
	}
	if cfg.Search.SemanticWeightOrDefault() != 0.7 || cfg.Search.LexicalWeightOrDefault() != 0.3 {
		t.Error("default weights should be 0.7/0.3")
	}
	if cfg.Embedding.Provider != ProviderMock || cfg.Embedding.Dimensions != 384 {
		t.Errorf("default embedding: %+v", cfg.Embedding)
	}
	if cfg.Postgres.Port != 5432 || cfg.Postgres.SSLMode != "prefer" {
		t.Errorf("default postgres: %+v", cfg.Postgres)
	}
	if !cfg.Postgres.BreakerEnabledOrDefault() {
		t.Error("breaker should default to enabled")
	}
	if len(cfg.Ingest.Extensions) == 0 || cfg.Ingest.SourceID != "local" {
		t.Errorf("default ingest: %+v", cfg.Ingest)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestApplyDefaults_OpenAIDimensions(t *testing.T) {
	cfg := &Config{Embedding: EmbeddingConfig{Provider: ProviderOpenAI}}
	ApplyDefaults(cfg)
	if cfg.Embedding.Dimensions != 1536 {
		t.Errorf("openai default dimensions = %d, want 1536", cfg.Embedding.Dimensions)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"unknown backend", func(c *Config) { c.Backend = "redis" }, "unknown backend"},
		{"unknown provider", func(c *Config) { c.Embedding.Provider = "cohere" }, "unknown embedding provider"},
		{"bad dimensions", func(c *Config) { c.Embedding.Dimensions = 999 }, "unsupported embedding dimensions"},
		{"postgres without credentials", func(c *Config) { c.Backend = BackendPostgres }, "postgres"},
		{"postgres with url", func(c *Config) {
			c.Backend = BackendPostgres
			c.Postgres.URL = "postgresql://u:p@db:5432/kb"
		}, ""},
		{"default limit above max", func(c *Config) { c.Search.DefaultLimit = 500 }, "exceeds"},
		{"watch on postgres", func(c *Config) {
			c.Backend = BackendPostgres
			c.Postgres.URL = "postgresql://u:p@db:5432/kb"
			c.Ingest.Watch = []WatchConfig{{Path: "/docs"}}
		}, "requires the local backend"},
		{"watch without path", func(c *Config) { c.Ingest.Watch = []WatchConfig{{SourceID: "x"}} }, "need a path"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			ApplyDefaults(cfg)
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saved.yaml")
	cfg := &Config{
		Server:  ServerConfig{Host: "localhost", Port: 9090},
		Storage: StorageConfig{DatabasePath: "/tmp/db"},
	}
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Server.Port != 9090 {
		t.Errorf("loaded port: got %d", loaded.Server.Port)
	}
}
