// Package indexer turns document input and files into catalog entries with
// one embedding each.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/kensaku/internal/config"
	"github.com/hyperjump/kensaku/internal/embedding"
	"github.com/hyperjump/kensaku/internal/extract"
	"github.com/hyperjump/kensaku/internal/fileid"
	"github.com/hyperjump/kensaku/internal/models"
	"github.com/hyperjump/kensaku/internal/vector"
)

// Store is where indexed documents go.
type Store interface {
	PutDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	DeleteDocument(ctx context.Context, id string) error
}

// Indexer validates, embeds and stores documents.
type Indexer struct {
	store      Store
	embedder   embedding.Embedder
	extractor  *extract.Extractor
	config     *config.IngestConfig
	extensions []string
	logger     *zap.Logger
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) {
		if l != nil {
			idx.logger = l
		}
	}
}

// NewIndexer creates an indexer. embedder may be nil, in which case every
// input must carry its own embedding.
func NewIndexer(store Store, embedder embedding.Embedder, extractor *extract.Extractor, cfg *config.IngestConfig, opts ...IndexerOption) *Indexer {
	if extractor == nil {
		extractor = extract.NewExtractor()
	}
	idx := &Indexer{
		store:      store,
		embedder:   embedder,
		extractor:  extractor,
		config:     cfg,
		extensions: cfg.Extensions,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// IndexDocument stores input. A missing ID gets a random UUID and a missing
// source the configured default. A supplied embedding must have a supported
// length and match Dimension when both are given; without one the document
// is embedded from its title and content.
func (idx *Indexer) IndexDocument(ctx context.Context, input *models.DocumentInput) (*models.Document, error) {
	content := Preprocess(input.Content)
	if content == "" && strings.TrimSpace(input.Title) == "" {
		return nil, fmt.Errorf("document has no title or content: %w", models.ErrInvalidArgument)
	}
	emb, err := idx.embed(ctx, input, content)
	if err != nil {
		return nil, err
	}

	doc := &models.Document{
		ID:        input.ID,
		SourceID:  input.SourceID,
		URL:       input.URL,
		Title:     strings.TrimSpace(input.Title),
		Content:   content,
		Metadata:  input.Metadata,
		Embedding: emb,
	}
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	if doc.SourceID == "" {
		doc.SourceID = idx.config.SourceID
	}
	if err := idx.store.PutDocument(ctx, doc); err != nil {
		return nil, err
	}
	idx.logger.Debug("document indexed",
		zap.String("id", doc.ID),
		zap.String("source_id", doc.SourceID),
		zap.Int("dimension", int(emb.Dimension())))
	return doc, nil
}

func (idx *Indexer) embed(ctx context.Context, input *models.DocumentInput, content string) (models.Embedding, error) {
	if len(input.Embedding) > 0 {
		var dim models.Dimension
		if input.Dimension != nil {
			d, err := vector.ParseDimension(*input.Dimension)
			if err != nil {
				return models.Embedding{}, err
			}
			dim = d
		} else {
			d, ok := vector.ResolveDimension(input.Embedding)
			if !ok {
				return models.Embedding{}, fmt.Errorf("embedding has %d values, not a supported dimension: %w", len(input.Embedding), models.ErrInvalidArgument)
			}
			dim = d
		}
		return models.NewEmbedding(dim, input.Embedding)
	}

	if idx.embedder == nil {
		return models.Embedding{}, fmt.Errorf("no embedding given and no embedder configured: %w", models.ErrInvalidArgument)
	}
	dim, err := vector.ParseDimension(idx.embedder.Dimensions())
	if err != nil {
		return models.Embedding{}, fmt.Errorf("embedder output size: %w", err)
	}
	values, err := idx.embedder.Embed(ctx, EmbeddingText(input.Title, content))
	if err != nil {
		return models.Embedding{}, fmt.Errorf("failed to generate embedding: %w", err)
	}
	return models.NewEmbedding(dim, values)
}

// EmbeddingText is the text a document is embedded from.
func EmbeddingText(title, content string) string {
	title = strings.TrimSpace(title)
	switch {
	case title == "":
		return content
	case content == "":
		return title
	default:
		return title + "\n\n" + content
	}
}

const (
	metaKeySourcePath  = "source_path"
	metaKeySourceMtime = "source_mtime"
	metaKeySourceSize  = "source_size"
)

// IndexFile extracts and indexes the file at path under a document ID
// derived from its absolute path. Unchanged files (same mtime and size as
// when last indexed) are skipped; indexed reports whether work was done.
func (idx *Indexer) IndexFile(ctx context.Context, path, sourceID string) (indexed bool, err error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false, fmt.Errorf("absolute path: %w", err)
	}
	ext := filepath.Ext(absPath)
	if len(idx.extensions) > 0 && !extensionAllowed(ext, idx.extensions) {
		return false, fmt.Errorf("extension %q not in allowed list: %w", ext, models.ErrInvalidArgument)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return false, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return false, fmt.Errorf("not a regular file: %s: %w", absPath, models.ErrInvalidArgument)
	}

	docID := fileid.FileDocID(absPath)
	if idx.unchanged(ctx, docID, absPath, info) {
		idx.logger.Debug("skipping unchanged file", zap.String("path", absPath))
		return false, nil
	}

	c, err := idx.extractor.Extract(absPath)
	if err != nil {
		return false, fmt.Errorf("extract %s: %w", absPath, err)
	}
	title := c.Title
	if title == "" {
		title = filepath.Base(absPath)
	}
	_, err = idx.IndexDocument(ctx, &models.DocumentInput{
		ID:       docID,
		SourceID: sourceID,
		URL:      "file://" + filepath.ToSlash(absPath),
		Title:    title,
		Content:  c.Text,
		Metadata: map[string]interface{}{
			metaKeySourcePath: absPath,
			// strings: UnixNano exceeds float64 precision after a JSON round trip
			metaKeySourceMtime: strconv.FormatInt(info.ModTime().UnixNano(), 10),
			metaKeySourceSize:  strconv.FormatInt(info.Size(), 10),
		},
	})
	if err != nil {
		return false, fmt.Errorf("index %s: %w", absPath, err)
	}
	idx.logger.Debug("file indexed", zap.String("path", absPath), zap.String("doc_id", docID))
	return true, nil
}

func (idx *Indexer) unchanged(ctx context.Context, docID, absPath string, info os.FileInfo) bool {
	doc, err := idx.store.GetDocument(ctx, docID)
	if err != nil || doc.Metadata == nil {
		return false
	}
	if doc.Metadata[metaKeySourcePath] != absPath {
		return false
	}
	return metadataInt64(doc.Metadata, metaKeySourceMtime) == info.ModTime().UnixNano() &&
		metadataInt64(doc.Metadata, metaKeySourceSize) == info.Size()
}

func metadataInt64(m map[string]interface{}, key string) int64 {
	switch n := m[key].(type) {
	case string:
		x, _ := strconv.ParseInt(n, 10, 64)
		return x
	case float64:
		return int64(n)
	case int64:
		return n
	default:
		return 0
	}
}

// DirectoryStats summarizes an IndexDirectory run.
type DirectoryStats struct {
	Indexed int `json:"indexed"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// IndexDirectory walks dir and indexes every regular file with an allowed
// extension. Files that fail to index are logged and counted; the walk
// continues. Cancellation stops the walk.
func (idx *Indexer) IndexDirectory(ctx context.Context, dir, sourceID string) (*DirectoryStats, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return nil, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s: %w", absDir, models.ErrInvalidArgument)
	}

	stats := &DirectoryStats{}
	err = filepath.WalkDir(absDir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if path != absDir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if len(idx.extensions) > 0 && !extensionAllowed(filepath.Ext(path), idx.extensions) {
			return nil
		}
		indexed, err := idx.IndexFile(ctx, path, sourceID)
		switch {
		case errors.Is(err, context.Canceled):
			return err
		case err != nil:
			stats.Failed++
			idx.logger.Warn("failed to index file", zap.String("path", path), zap.Error(err))
		case indexed:
			stats.Indexed++
		default:
			stats.Skipped++
		}
		return nil
	})
	idx.logger.Info("directory indexed",
		zap.String("path", absDir),
		zap.Int("indexed", stats.Indexed),
		zap.Int("skipped", stats.Skipped),
		zap.Int("failed", stats.Failed))
	return stats, err
}

func extensionAllowed(ext string, allowed []string) bool {
	ext = strings.TrimPrefix(ext, ".")
	for _, a := range allowed {
		if strings.EqualFold(strings.TrimPrefix(a, "."), ext) {
			return true
		}
	}
	return false
}

// DeleteDocument removes a document from the store and its indexes.
func (idx *Indexer) DeleteDocument(ctx context.Context, id string) error {
	if err := idx.store.DeleteDocument(ctx, id); err != nil {
		return err
	}
	idx.logger.Debug("document deleted", zap.String("id", id))
	return nil
}

// DeleteFile removes the document indexed from path.
func (idx *Indexer) DeleteFile(ctx context.Context, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("absolute path: %w", err)
	}
	return idx.DeleteDocument(ctx, fileid.FileDocID(absPath))
}
