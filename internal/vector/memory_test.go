package vector

import (
	"context"
	"testing"
)

func TestMemoryIndex_UpsertSearch(t *testing.T) {
	idx, err := NewMemoryIndex(3)
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	ctx := context.Background()

	vecs := map[string][]float32{
		"a": {2, 0, 0},
		"b": {0.9, 0.1, 0},
		"c": {0, 1, 0},
		"d": {-1, 0, 0},
	}
	for id, v := range vecs {
		if err := idx.Upsert(ctx, id, "src", v); err != nil {
			t.Fatal(err)
		}
	}
	if idx.Size() != 4 {
		t.Errorf("Size=%d", idx.Size())
	}

	results, err := idx.Search(ctx, []float32{1, 0, 0}, 10, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	if results[0].ID != "a" {
		t.Errorf("top result should be a, got %s", results[0].ID)
	}
	if results[0].Score < 0.999 {
		t.Errorf("unnormalized parallel vector should score 1, got %f", results[0].Score)
	}
	if last := results[len(results)-1]; last.ID != "d" || last.Score > -0.999 {
		t.Errorf("opposite vector should score -1 and rank last, got %s=%f", last.ID, last.Score)
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Errorf("results not sorted at %d", i)
		}
	}
}

func TestMemoryIndex_Limit(t *testing.T) {
	idx, _ := NewMemoryIndex(2)
	ctx := context.Background()
	_ = idx.Upsert(ctx, "x", "s", []float32{1, 0})
	_ = idx.Upsert(ctx, "y", "s", []float32{0, 1})

	for _, k := range []int{0, 1, 2, 5} {
		results, err := idx.Search(ctx, []float32{1, 1}, k, nil)
		if err != nil {
			t.Fatal(err)
		}
		want := k
		if want > 2 {
			want = 2
		}
		if len(results) != want {
			t.Errorf("k=%d: got %d results, want %d", k, len(results), want)
		}
	}
}

func TestMemoryIndex_SourceFilter(t *testing.T) {
	idx, _ := NewMemoryIndex(2)
	ctx := context.Background()
	_ = idx.Upsert(ctx, "x", "docs", []float32{1, 0})
	_ = idx.Upsert(ctx, "y", "blog", []float32{1, 0.1})
	_ = idx.Upsert(ctx, "z", "wiki", []float32{1, 0.2})

	results, err := idx.Search(ctx, []float32{1, 0}, 10, []string{"blog", "wiki"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for _, r := range results {
		if r.SourceID == "docs" {
			t.Errorf("filtered source returned: %s", r.ID)
		}
	}
}

func TestMemoryIndex_UpsertReplaces(t *testing.T) {
	idx, _ := NewMemoryIndex(2)
	ctx := context.Background()
	_ = idx.Upsert(ctx, "x", "s", []float32{1, 0})
	_ = idx.Upsert(ctx, "x", "s", []float32{0, 1})
	if idx.Size() != 1 {
		t.Fatalf("expected size 1 after replace, got %d", idx.Size())
	}
	results, _ := idx.Search(ctx, []float32{0, 1}, 1, nil)
	if len(results) != 1 || results[0].Score < 0.999 {
		t.Errorf("expected replaced vector to match, got %+v", results)
	}
}

func TestMemoryIndex_Remove(t *testing.T) {
	idx, _ := NewMemoryIndex(2)
	ctx := context.Background()
	_ = idx.Upsert(ctx, "x", "s", []float32{1, 0})
	_ = idx.Upsert(ctx, "y", "s", []float32{0, 1})
	_ = idx.Upsert(ctx, "z", "s", []float32{1, 1})
	if err := idx.Remove(ctx, []string{"x", "missing"}); err != nil {
		t.Fatal(err)
	}
	if idx.Size() != 2 {
		t.Errorf("expected size 2, got %d", idx.Size())
	}
	// positions must stay consistent after compaction
	_ = idx.Upsert(ctx, "z", "s", []float32{-1, -1})
	results, _ := idx.Search(ctx, []float32{-1, -1}, 1, nil)
	if len(results) != 1 || results[0].ID != "z" {
		t.Errorf("expected z after remove+upsert, got %+v", results)
	}
}

func TestMemoryIndex_DimensionMismatch(t *testing.T) {
	idx, _ := NewMemoryIndex(3)
	ctx := context.Background()
	if err := idx.Upsert(ctx, "x", "s", []float32{1, 0}); err == nil {
		t.Error("expected error for short vector")
	}
	if _, err := idx.Search(ctx, []float32{1}, 1, nil); err == nil {
		t.Error("expected error for short query")
	}
	if _, err := NewMemoryIndex(0); err == nil {
		t.Error("expected error for zero dimension")
	}
}
