// Package models defines core data structures for documents, queries, and search results.
package models

import "time"

// Document is a crawled page or ingested file. A document carries at most one
// embedding; its dimension decides which vector searches can see it.
type Document struct {
	ID        string                 `json:"id" db:"id"`
	SourceID  string                 `json:"source_id" db:"source_id"`
	URL       string                 `json:"url" db:"url"`
	Title     string                 `json:"title" db:"title"`
	Content   string                 `json:"content" db:"content"`
	Metadata  map[string]interface{} `json:"metadata" db:"metadata"`
	Embedding Embedding              `json:"-" db:"-"`
	CreatedAt time.Time              `json:"created_at" db:"created_at"`
	UpdatedAt time.Time              `json:"updated_at" db:"updated_at"`
}

// DocumentInput is the input for creating or updating a document.
// When Embedding is empty the indexer computes one with its embedder.
type DocumentInput struct {
	ID        string                 `json:"id,omitempty"`
	SourceID  string                 `json:"source_id,omitempty"`
	URL       string                 `json:"url,omitempty"`
	Title     string                 `json:"title,omitempty"`
	Content   string                 `json:"content"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Embedding []float32              `json:"embedding,omitempty"`
	Dimension *int                   `json:"dimension,omitempty"`
}

// VectorMatch is a document returned by a vector search with its cosine similarity.
type VectorMatch struct {
	Document   *Document
	Similarity float64
}

// LexicalHit is a full-text relevance score for one document.
type LexicalHit struct {
	ID    string
	Score float64
}
