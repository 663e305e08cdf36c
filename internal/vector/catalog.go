package vector

import (
	"context"
	"fmt"

	"github.com/hyperjump/kensaku/internal/models"
)

// Catalog keeps one index per supported dimension. A vector is only ever
// stored in the index of its own dimension, so searches never mix sizes.
type Catalog struct {
	indexes map[models.Dimension]VectorIndex
}

// NewCatalog creates an empty MemoryIndex for every supported dimension.
func NewCatalog() *Catalog {
	c := &Catalog{indexes: make(map[models.Dimension]VectorIndex, len(models.SupportedDimensions))}
	for _, d := range models.SupportedDimensions {
		idx, _ := NewMemoryIndex(int(d))
		c.indexes[d] = idx
	}
	return c
}

func (c *Catalog) index(d models.Dimension) (VectorIndex, error) {
	idx, ok := c.indexes[d]
	if !ok {
		return nil, fmt.Errorf("no index for dimension %d: %w", int(d), models.ErrInvalidArgument)
	}
	return idx, nil
}

// Upsert stores emb under id, removing any vector the document previously
// had under a different dimension.
func (c *Catalog) Upsert(ctx context.Context, id, sourceID string, emb models.Embedding) error {
	if emb.IsZero() {
		return c.Remove(ctx, id)
	}
	idx, err := c.index(emb.Dimension())
	if err != nil {
		return err
	}
	for d, other := range c.indexes {
		if d == emb.Dimension() {
			continue
		}
		if err := other.Remove(ctx, []string{id}); err != nil {
			return err
		}
	}
	return idx.Upsert(ctx, id, sourceID, emb.Values())
}

// Remove deletes id from every dimension.
func (c *Catalog) Remove(ctx context.Context, id string) error {
	for _, idx := range c.indexes {
		if err := idx.Remove(ctx, []string{id}); err != nil {
			return err
		}
	}
	return nil
}

// Search runs a cosine search in the index matching the query's dimension.
func (c *Catalog) Search(ctx context.Context, query models.Embedding, k int, sourceIDs []string) ([]*VectorResult, error) {
	idx, err := c.index(query.Dimension())
	if err != nil {
		return nil, err
	}
	return idx.Search(ctx, query.Values(), k, sourceIDs)
}

// Sizes returns the vector count per dimension.
func (c *Catalog) Sizes() map[models.Dimension]int {
	out := make(map[models.Dimension]int, len(c.indexes))
	for d, idx := range c.indexes {
		out[d] = idx.Size()
	}
	return out
}

// Close closes every index.
func (c *Catalog) Close() error {
	for _, idx := range c.indexes {
		if err := idx.Close(); err != nil {
			return err
		}
	}
	return nil
}
