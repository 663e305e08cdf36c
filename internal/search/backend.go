package search

import (
	"context"

	"github.com/hyperjump/kensaku/internal/models"
)

// Backend is the storage the engine reads from. Implementations must only
// return vector matches whose embedding has the query's dimension.
type Backend interface {
	// VectorSearch returns up to limit documents ordered by descending cosine
	// similarity to query. An empty sourceIDs means no source restriction.
	VectorSearch(ctx context.Context, query models.Embedding, limit int, sourceIDs []string) ([]*models.VectorMatch, error)
	// LexicalSearch scores every document matching at least one token of text.
	LexicalSearch(ctx context.Context, text string, sourceIDs []string) ([]*models.LexicalHit, error)
}
