// Package localstore is the embedded search backend: a SQLite document
// catalog, one in-memory cosine index per embedding dimension and a Bleve
// full-text index. The vector indexes are rebuilt from the catalog on open.
package localstore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/hyperjump/kensaku/internal/config"
	"github.com/hyperjump/kensaku/internal/keyword"
	"github.com/hyperjump/kensaku/internal/models"
	"github.com/hyperjump/kensaku/internal/storage"
	"github.com/hyperjump/kensaku/internal/vector"
)

// Store implements search.Backend and the indexer's write path.
type Store struct {
	storage    storage.Storage
	keywords   keyword.KeywordIndex
	vectors    *vector.Catalog
	titleBoost float64
	logger     *zap.Logger

	// writeMu serializes writes so the three indexes change together.
	writeMu sync.Mutex
	// vectorsMu guards swapping vectors on Reload.
	vectorsMu sync.RWMutex
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTitleBoost sets the lexical weight of title matches relative to content.
func WithTitleBoost(boost float64) Option {
	return func(s *Store) {
		if boost > 0 {
			s.titleBoost = boost
		}
	}
}

// Open opens the catalog and full-text index at the configured paths and
// loads every stored embedding into memory.
func Open(ctx context.Context, cfg *config.Config, opts ...Option) (*Store, error) {
	st, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open document catalog: %w", err)
	}
	kw, err := keyword.NewBleveIndex(cfg.Storage.BleveIndexPath)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to open full-text index: %w", err)
	}
	opts = append([]Option{WithTitleBoost(cfg.Search.TitleBoost)}, opts...)
	s, err := New(ctx, st, kw, opts...)
	if err != nil {
		kw.Close()
		st.Close()
		return nil, err
	}
	return s, nil
}

// New assembles a Store from already opened components.
func New(ctx context.Context, st storage.Storage, kw keyword.KeywordIndex, opts ...Option) (*Store, error) {
	s := &Store{
		storage:    st,
		keywords:   kw,
		vectors:    vector.NewCatalog(),
		titleBoost: keyword.DefaultTitleBoost,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.Reload(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload rebuilds the vector indexes from the catalog.
func (s *Store) Reload(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	catalog := vector.NewCatalog()
	loaded := 0
	err := s.storage.ForEachDocument(ctx, func(doc *models.Document) error {
		if doc.Embedding.IsZero() {
			return nil
		}
		loaded++
		return catalog.Upsert(ctx, doc.ID, doc.SourceID, doc.Embedding)
	})
	if err != nil {
		catalog.Close()
		return fmt.Errorf("failed to load embeddings: %w", err)
	}
	s.vectorsMu.Lock()
	old := s.vectors
	s.vectors = catalog
	s.vectorsMu.Unlock()
	old.Close()

	s.logger.Info("vector indexes loaded", zap.Int("documents", loaded), zap.Any("sizes", sizesByName(catalog.Sizes())))
	return nil
}

// PutDocument stores doc and makes it visible to vector and lexical search.
// A document's previous embedding, whatever its dimension, is replaced.
// When indexing fails the catalog and indexes are restored to the previous
// version of the document, or cleared of it if it is new.
func (s *Store) PutDocument(ctx context.Context, doc *models.Document) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	prev, err := s.storage.GetDocument(ctx, doc.ID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("failed to load document: %w", err)
	}
	if err := s.storage.UpsertDocument(ctx, doc); err != nil {
		return fmt.Errorf("failed to store document: %w", err)
	}
	if err := s.catalog().Upsert(ctx, doc.ID, doc.SourceID, doc.Embedding); err != nil {
		s.rollback(ctx, doc.ID, prev)
		return fmt.Errorf("failed to index embedding: %w", err)
	}
	if err := s.keywords.Index(ctx, doc); err != nil {
		s.rollback(ctx, doc.ID, prev)
		return fmt.Errorf("failed to index text: %w", err)
	}
	return nil
}

// rollback puts prev back in place of a partially written document.
// A nil prev removes id everywhere. Failures are logged, the caller already
// returns the original error.
func (s *Store) rollback(ctx context.Context, id string, prev *models.Document) {
	var steps []func() error
	if prev == nil {
		steps = []func() error{
			func() error { return s.storage.DeleteDocument(ctx, id) },
			func() error { return s.catalog().Remove(ctx, id) },
			func() error { return s.keywords.Delete(ctx, id) },
		}
	} else {
		steps = []func() error{
			func() error { return s.storage.UpsertDocument(ctx, prev) },
			func() error { return s.catalog().Upsert(ctx, prev.ID, prev.SourceID, prev.Embedding) },
			func() error { return s.keywords.Index(ctx, prev) },
		}
	}
	for _, step := range steps {
		if err := step(); err != nil {
			s.logger.Error("failed to roll back document", zap.String("id", id), zap.Error(err))
		}
	}
}

// DeleteDocument removes a document from the catalog and every index.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.storage.DeleteDocument(ctx, id); err != nil {
		return err
	}
	if err := s.catalog().Remove(ctx, id); err != nil {
		return err
	}
	if err := s.keywords.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to remove from full-text index: %w", err)
	}
	return nil
}

// GetDocument returns a stored document.
func (s *Store) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	return s.storage.GetDocument(ctx, id)
}

// ListSources returns the distinct source ids in the catalog.
func (s *Store) ListSources(ctx context.Context) ([]string, error) {
	return s.storage.ListSources(ctx)
}

// Stats summarizes the store for the status endpoint.
type Stats struct {
	Documents     int64            `json:"documents"`
	ByDimension   map[string]int64 `json:"documents_by_dimension"`
	VectorIndexes map[string]int   `json:"vector_index_sizes"`
	LexicalDocs   uint64           `json:"lexical_documents"`
}

// Stats reports document counts per dimension and index sizes.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	total, err := s.storage.CountDocuments(ctx)
	if err != nil {
		return nil, err
	}
	byDim, err := s.storage.CountByDimension(ctx)
	if err != nil {
		return nil, err
	}
	lexical, err := s.keywords.DocCount()
	if err != nil {
		return nil, err
	}
	stats := &Stats{
		Documents:     total,
		ByDimension:   make(map[string]int64, len(byDim)),
		VectorIndexes: sizesByName(s.catalog().Sizes()),
		LexicalDocs:   lexical,
	}
	for d, n := range byDim {
		stats.ByDimension[d.String()] = n
	}
	return stats, nil
}

// Close releases the catalog and indexes.
func (s *Store) Close() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	var firstErr error
	for _, c := range []func() error{s.catalog().Close, s.keywords.Close, s.storage.Close} {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *Store) catalog() *vector.Catalog {
	s.vectorsMu.RLock()
	defer s.vectorsMu.RUnlock()
	return s.vectors
}

func sizesByName(sizes map[models.Dimension]int) map[string]int {
	out := make(map[string]int, len(sizes))
	for d, n := range sizes {
		out[d.String()] = n
	}
	return out
}
