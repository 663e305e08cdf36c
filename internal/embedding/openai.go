package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/hyperjump/kensaku/internal/metrics"
	"github.com/hyperjump/kensaku/internal/models"
)

// OpenAIConfig holds settings for an OpenAI-compatible embeddings API.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	Logger     *zap.Logger
}

// OpenAIEmbedder calls the embeddings endpoint of an OpenAI-compatible API.
type OpenAIEmbedder struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
	logger     *zap.Logger
}

// NewOpenAIEmbedder creates an embedder. Dimensions must be a supported
// embedding dimension; it is sent with each request so models with
// adjustable output size return vectors of that size.
func NewOpenAIEmbedder(cfg *OpenAIConfig) (*OpenAIEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required: %w", models.ErrInvalidArgument)
	}
	if !models.Dimension(cfg.Dimensions).IsSupported() {
		return nil, fmt.Errorf("unsupported embedding dimension %d: %w", cfg.Dimensions, models.ErrInvalidArgument)
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OpenAIEmbedder{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      openai.EmbeddingModel(cfg.Model),
		dimensions: cfg.Dimensions,
		logger:     logger,
	}, nil
}

// Embed implements Embedder.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedBatch sends all texts in one request.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	start := time.Now()
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:          texts,
		Model:          e.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
		Dimensions:     e.dimensions,
	})
	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues("openai", "error").Inc()
		return nil, parseAPIError(err)
	}
	if len(resp.Data) != len(texts) {
		metrics.EmbeddingRequestsTotal.WithLabelValues("openai", "error").Inc()
		return nil, fmt.Errorf("got %d embeddings for %d inputs: %w", len(resp.Data), len(texts), ErrEmptyResponse)
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("embedding index %d out of range: %w", d.Index, ErrEmptyResponse)
		}
		if len(d.Embedding) != e.dimensions {
			return nil, fmt.Errorf("model returned %d values, expected %d: %w", len(d.Embedding), e.dimensions, models.ErrInvalidArgument)
		}
		out[d.Index] = d.Embedding
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues("openai", "success").Inc()
	metrics.EmbeddingDuration.WithLabelValues("openai").Observe(time.Since(start).Seconds())
	e.logger.Debug("embedded texts",
		zap.Int("count", len(texts)),
		zap.String("model", string(e.model)),
		zap.Int("total_tokens", resp.Usage.TotalTokens))
	return out, nil
}

// Dimensions implements Embedder.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op.
func (e *OpenAIEmbedder) Close() error {
	return nil
}

// parseAPIError keeps the HTTP status and message of API failures. Provider
// failures surface as models.ErrUnavailable.
func parseAPIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("embedding API error %d: %s: %w", apiErr.HTTPStatusCode, apiErr.Message, models.ErrUnavailable)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("embedding API error %d: %s: %w", reqErr.HTTPStatusCode, string(reqErr.Body), models.ErrUnavailable)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("embedding request failed: %v: %w", err, models.ErrUnavailable)
}
