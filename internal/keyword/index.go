// Package keyword provides full-text indexing and lexical relevance scoring.
package keyword

import (
	"context"

	"github.com/hyperjump/kensaku/internal/models"
)

// SearchOptions optional parameters for keyword search. Nil means use defaults.
type SearchOptions struct {
	// TitleBoost multiplies the score contribution from matches in the title field.
	// Values > 1 make title matches rank higher than body matches.
	TitleBoost float64
	// SourceIDs restricts hits to documents from these sources. Empty means all.
	SourceIDs []string
	// Limit caps the number of hits. Zero means every matching document.
	Limit int
}

// KeywordIndex defines keyword search operations.
type KeywordIndex interface {
	Index(ctx context.Context, doc *models.Document) error
	Search(ctx context.Context, query string, opts *SearchOptions) ([]*KeywordResult, error)
	Delete(ctx context.Context, id string) error
	Close() error
	// DocCount returns the total number of documents in the index.
	DocCount() (uint64, error)
}

// KeywordResult is a single keyword search hit.
type KeywordResult struct {
	ID       string
	SourceID string
	Score    float64
}
