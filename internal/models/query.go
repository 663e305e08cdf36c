package models

import "fmt"

// SearchQuery is a hybrid or vector-only search request. Pointer fields
// distinguish "not provided" from an explicit zero.
type SearchQuery struct {
	Embedding      []float32 `json:"query_embedding"`
	Text           string    `json:"query_text,omitempty"`
	Dimension      *int      `json:"dimension,omitempty"`
	Limit          *int      `json:"limit,omitempty"`
	SourceFilter   []string  `json:"source_filter,omitempty"`
	SemanticWeight *float64  `json:"semantic_weight,omitempty"`
	LexicalWeight  *float64  `json:"lexical_weight,omitempty"`
}

// Validate checks the fields that do not depend on configuration.
func (q *SearchQuery) Validate() error {
	if len(q.Embedding) == 0 {
		return fmt.Errorf("query embedding is required: %w", ErrInvalidArgument)
	}
	if q.Limit != nil && *q.Limit < 0 {
		return fmt.Errorf("limit must not be negative, got %d: %w", *q.Limit, ErrInvalidArgument)
	}
	return nil
}

// LimitOr returns the requested limit or def when none was given.
func (q *SearchQuery) LimitOr(def int) int {
	if q.Limit == nil {
		return def
	}
	return *q.Limit
}

// SemanticWeightOr returns the requested semantic weight or def.
func (q *SearchQuery) SemanticWeightOr(def float64) float64 {
	if q.SemanticWeight == nil {
		return def
	}
	return *q.SemanticWeight
}

// LexicalWeightOr returns the requested lexical weight or def.
func (q *SearchQuery) LexicalWeightOr(def float64) float64 {
	if q.LexicalWeight == nil {
		return def
	}
	return *q.LexicalWeight
}
