// Package vector provides per-dimension cosine similarity indexes and the
// embedding dimension resolver.
package vector

import "context"

// VectorIndex defines vector storage and similarity search for one dimension.
type VectorIndex interface {
	Upsert(ctx context.Context, id, sourceID string, values []float32) error
	Search(ctx context.Context, query []float32, k int, sourceIDs []string) ([]*VectorResult, error)
	Remove(ctx context.Context, ids []string) error
	Size() int
	Close() error
}

// VectorResult is a single vector search hit.
type VectorResult struct {
	ID       string
	SourceID string
	Score    float64 // cosine similarity in [-1, 1]
}
