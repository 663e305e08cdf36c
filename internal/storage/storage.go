// Package storage defines the persistence interface for the document catalog.
package storage

import (
	"context"

	"github.com/hyperjump/kensaku/internal/models"
)

// Storage defines document persistence operations. Documents are stored with
// their embedding so that in-memory indexes can be rebuilt on startup.
type Storage interface {
	UpsertDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	GetDocuments(ctx context.Context, ids []string) (map[string]*models.Document, error)
	DeleteDocument(ctx context.Context, id string) error
	ListDocuments(ctx context.Context, offset, limit int) ([]*models.Document, error)
	// ForEachDocument streams every document, embedding included.
	ForEachDocument(ctx context.Context, fn func(*models.Document) error) error

	// Stats
	CountDocuments(ctx context.Context) (int64, error)
	CountByDimension(ctx context.Context) (map[models.Dimension]int64, error)
	ListSources(ctx context.Context) ([]string, error)

	Close() error
}
