package vector

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

type entry struct {
	id       string
	sourceID string
	values   []float32
	norm     float64
}

// MemoryIndex is an in-memory vector index using brute-force cosine search.
// It holds vectors of a single dimension.
type MemoryIndex struct {
	dimensions int
	entries    []entry
	pos        map[string]int
	mu         sync.RWMutex
}

// NewMemoryIndex creates an in-memory vector index with the given dimension.
func NewMemoryIndex(dimensions int) (*MemoryIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &MemoryIndex{
		dimensions: dimensions,
		entries:    make([]entry, 0),
		pos:        make(map[string]int),
	}, nil
}

// Dimensions returns the vector length accepted by the index.
func (m *MemoryIndex) Dimensions() int {
	return m.dimensions
}

// Upsert adds a vector or replaces the one stored under id.
func (m *MemoryIndex) Upsert(ctx context.Context, id, sourceID string, values []float32) error {
	if len(values) != m.dimensions {
		return fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(values), m.dimensions)
	}
	vec := make([]float32, m.dimensions)
	copy(vec, values)
	e := entry{id: id, sourceID: sourceID, values: vec, norm: L2Norm(vec)}

	m.mu.Lock()
	defer m.mu.Unlock()
	if i, ok := m.pos[id]; ok {
		m.entries[i] = e
		return nil
	}
	m.pos[id] = len(m.entries)
	m.entries = append(m.entries, e)
	return nil
}

// Search returns the k most similar vectors by cosine similarity. When
// sourceIDs is non-empty only vectors from those sources are considered.
func (m *MemoryIndex) Search(ctx context.Context, query []float32, k int, sourceIDs []string) ([]*VectorResult, error) {
	if len(query) != m.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), m.dimensions)
	}
	if k <= 0 {
		return nil, nil
	}
	var allowed map[string]struct{}
	if len(sourceIDs) > 0 {
		allowed = make(map[string]struct{}, len(sourceIDs))
		for _, s := range sourceIDs {
			allowed[s] = struct{}{}
		}
	}
	qnorm := L2Norm(query)

	m.mu.RLock()
	defer m.mu.RUnlock()
	scores := make([]*VectorResult, 0, len(m.entries))
	for _, e := range m.entries {
		if allowed != nil {
			if _, ok := allowed[e.sourceID]; !ok {
				continue
			}
		}
		var sim float64
		if qnorm > 0 && e.norm > 0 {
			sim = clamp(InnerProduct(query, e.values) / (qnorm * e.norm))
		}
		scores = append(scores, &VectorResult{ID: e.id, SourceID: e.sourceID, Score: sim})
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].Score > scores[j].Score })
	if k < len(scores) {
		scores = scores[:k]
	}
	return scores, nil
}

// Remove deletes vectors by ID. Unknown IDs are ignored.
func (m *MemoryIndex) Remove(ctx context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := false
	for _, id := range ids {
		if _, ok := m.pos[id]; ok {
			delete(m.pos, id)
			removed = true
		}
	}
	if !removed {
		return nil
	}
	kept := make([]entry, 0, len(m.pos))
	for _, e := range m.entries {
		if _, ok := m.pos[e.id]; ok {
			m.pos[e.id] = len(kept)
			kept = append(kept, e)
		}
	}
	m.entries = kept
	return nil
}

// Size returns the number of vectors in the index.
func (m *MemoryIndex) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Close is a no-op for MemoryIndex.
func (m *MemoryIndex) Close() error {
	return nil
}
