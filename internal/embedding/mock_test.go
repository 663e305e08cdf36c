package embedding

import (
	"context"
	"math"
	"testing"
)

func TestMockEmbedder(t *testing.T) {
	e := NewMockEmbedder(384)
	ctx := context.Background()

	a1, _ := e.Embed(ctx, "alpha")
	a2, _ := e.Embed(ctx, "alpha")
	b, _ := e.Embed(ctx, "beta")
	if len(a1) != 384 {
		t.Fatalf("len = %d, want 384", len(a1))
	}
	same := true
	for i := range a1 {
		if a1[i] != a2[i] {
			t.Fatal("embedding not deterministic")
		}
		if a1[i] != b[i] {
			same = false
		}
	}
	if same {
		t.Error("different texts produced the same embedding")
	}

	var sum float64
	for _, v := range a1 {
		sum += float64(v) * float64(v)
	}
	if math.Abs(math.Sqrt(sum)-1) > 1e-5 {
		t.Errorf("embedding not unit length: %f", math.Sqrt(sum))
	}
}

func TestNewMockEmbedder_DefaultSize(t *testing.T) {
	if d := NewMockEmbedder(0).Dimensions(); d != 384 {
		t.Errorf("Dimensions() = %d, want 384", d)
	}
}

func TestNormalizeL2_Zero(t *testing.T) {
	v := []float32{0, 0}
	NormalizeL2(v)
	if v[0] != 0 || v[1] != 0 {
		t.Error("zero vector should be unchanged")
	}
}

func BenchmarkMockEmbedder_Embed(b *testing.B) {
	e := NewMockEmbedder(384)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = e.Embed(ctx, "benchmark query text for embedding")
	}
}
