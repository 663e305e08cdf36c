// Package embedding turns text into vectors for ingestion and text-only queries.
package embedding

import (
	"context"
	"errors"
)

// ErrEmptyResponse is returned when a provider answers without a vector.
var ErrEmptyResponse = errors.New("embedding provider returned no vector")

// Embedder produces vector embeddings for text. Every vector an Embedder
// returns has Dimensions() values.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

// embedEach is the EmbedBatch of providers without a native batch call.
func embedEach(ctx context.Context, e Embedder, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}
