package embedding

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/kensaku/internal/config"
)

// New builds the embedder selected by cfg.Provider, with an LRU cache in
// front when cfg.CacheSize > 0.
func New(cfg *config.EmbeddingConfig, logger *zap.Logger) (Embedder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var (
		e   Embedder
		err error
	)
	switch cfg.Provider {
	case config.ProviderMock, "":
		e = NewMockEmbedder(cfg.Dimensions)
	case config.ProviderONNX:
		e, err = NewONNXEmbedder(ONNXConfig{
			ModelPath:  cfg.ModelPath,
			Dimensions: cfg.Dimensions,
			MaxTokens:  cfg.MaxTokens,
		})
	case config.ProviderOpenAI:
		e, err = NewOpenAIEmbedder(&OpenAIConfig{
			APIKey:     cfg.OpenAIAPIKey,
			BaseURL:    cfg.OpenAIBaseURL,
			Model:      cfg.OpenAIModel,
			Dimensions: cfg.Dimensions,
			Logger:     logger,
		})
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s embedder: %w", cfg.Provider, err)
	}
	logger.Info("embedder ready",
		zap.String("provider", cfg.Provider),
		zap.Int("dimensions", e.Dimensions()),
		zap.Int("cache_size", cfg.CacheSize))
	return NewCachedEmbedder(e, cfg.Provider, cfg.CacheSize), nil
}
