package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/hyperjump/kensaku/internal/models"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func embedding(t *testing.T, d models.Dimension, first float32) models.Embedding {
	t.Helper()
	v := make([]float32, int(d))
	v[0] = first
	e, err := models.NewEmbedding(d, v)
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func TestSQLiteStorage_CRUD(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	doc := &models.Document{
		ID:        "doc1",
		SourceID:  "docs.example.com",
		URL:       "https://docs.example.com/a",
		Title:     "Title",
		Content:   "Content",
		Metadata:  map[string]interface{}{"k": "v"},
		Embedding: embedding(t, models.Dim384, 0.5),
	}
	if err := store.UpsertDocument(ctx, doc); err != nil {
		t.Fatal(err)
	}
	if doc.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}

	got, err := store.GetDocument(ctx, "doc1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "Title" || got.Content != "Content" || got.SourceID != "docs.example.com" || got.URL != doc.URL {
		t.Errorf("got %+v", got)
	}
	if got.Metadata["k"] != "v" {
		t.Errorf("metadata not round-tripped: %v", got.Metadata)
	}
	if got.Embedding.Dimension() != models.Dim384 || got.Embedding.Values()[0] != 0.5 {
		t.Errorf("embedding not round-tripped: dim=%d", got.Embedding.Dimension())
	}

	doc.Title = "Updated"
	doc.Embedding = models.Embedding{}
	if err := store.UpsertDocument(ctx, doc); err != nil {
		t.Fatal(err)
	}
	got, _ = store.GetDocument(ctx, "doc1")
	if got.Title != "Updated" {
		t.Errorf("expected Updated, got %s", got.Title)
	}
	if !got.Embedding.IsZero() {
		t.Error("embedding should be cleared")
	}

	list, err := store.ListDocuments(ctx, 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Errorf("expected 1 doc, got %d", len(list))
	}

	if err := store.DeleteDocument(ctx, "doc1"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.GetDocument(ctx, "doc1"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.DeleteDocument(ctx, "doc1"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound deleting twice, got %v", err)
	}
}

func TestSQLiteStorage_Stats(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	docs := []*models.Document{
		{ID: "a", SourceID: "wiki", Content: "a", Embedding: embedding(t, models.Dim768, 1)},
		{ID: "b", SourceID: "wiki", Content: "b", Embedding: embedding(t, models.Dim768, 1)},
		{ID: "c", SourceID: "blog", Content: "c", Embedding: embedding(t, models.Dim3072, 1)},
		{ID: "d", Content: "d"},
	}
	for _, d := range docs {
		if err := store.UpsertDocument(ctx, d); err != nil {
			t.Fatal(err)
		}
	}

	n, err := store.CountDocuments(ctx)
	if err != nil || n != 4 {
		t.Errorf("CountDocuments = %d, %v", n, err)
	}
	byDim, err := store.CountByDimension(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if byDim[models.Dim768] != 2 || byDim[models.Dim3072] != 1 || len(byDim) != 2 {
		t.Errorf("CountByDimension = %v", byDim)
	}
	sources, err := store.ListSources(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(sources) != 2 || sources[0] != "blog" || sources[1] != "wiki" {
		t.Errorf("ListSources = %v", sources)
	}

	found, err := store.GetDocuments(ctx, []string{"a", "c", "missing"})
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != 2 || found["a"] == nil || found["c"] == nil {
		t.Errorf("GetDocuments = %v", found)
	}

	var seen []string
	err = store.ForEachDocument(ctx, func(d *models.Document) error {
		seen = append(seen, d.ID)
		return nil
	})
	if err != nil || len(seen) != 4 {
		t.Errorf("ForEachDocument saw %v, err %v", seen, err)
	}
}

func TestSQLiteStorage_InMemory(t *testing.T) {
	store, err := NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	ctx := context.Background()
	if err := store.UpsertDocument(ctx, &models.Document{ID: "x", Content: "y"}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.GetDocument(ctx, "x"); err != nil {
		t.Fatal(err)
	}
}
