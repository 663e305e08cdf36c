package embedding

import (
	"testing"

	"github.com/hyperjump/kensaku/internal/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.EmbeddingConfig
		dims    int
		wantErr bool
	}{
		{"mock", config.EmbeddingConfig{Provider: config.ProviderMock, Dimensions: 768}, 768, false},
		{"mock cached", config.EmbeddingConfig{Provider: config.ProviderMock, Dimensions: 384, CacheSize: 10}, 384, false},
		{"openai without key", config.EmbeddingConfig{Provider: config.ProviderOpenAI, Dimensions: 1536}, 0, true},
		{"openai", config.EmbeddingConfig{Provider: config.ProviderOpenAI, Dimensions: 1536, OpenAIAPIKey: "k"}, 1536, false},
		{"unknown", config.EmbeddingConfig{Provider: "word2vec"}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := New(&tt.cfg, nil)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			defer e.Close()
			if e.Dimensions() != tt.dims {
				t.Errorf("Dimensions() = %d, want %d", e.Dimensions(), tt.dims)
			}
		})
	}
}
