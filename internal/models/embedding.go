package models

import "fmt"

// Dimension is the length of an embedding vector. Only the values listed in
// SupportedDimensions can be stored or searched.
type Dimension int

const (
	Dim384  Dimension = 384
	Dim768  Dimension = 768
	Dim1024 Dimension = 1024
	Dim1536 Dimension = 1536
	Dim3072 Dimension = 3072
)

// SupportedDimensions lists the storable embedding sizes in ascending order.
var SupportedDimensions = []Dimension{Dim384, Dim768, Dim1024, Dim1536, Dim3072}

// IsSupported reports whether d is one of SupportedDimensions.
func (d Dimension) IsSupported() bool {
	switch d {
	case Dim384, Dim768, Dim1024, Dim1536, Dim3072:
		return true
	}
	return false
}

func (d Dimension) String() string {
	return fmt.Sprintf("%d", int(d))
}

// Embedding is a vector tagged with its dimension. The zero value means
// "no embedding". A non-zero Embedding always has a supported dimension and
// exactly that many values.
type Embedding struct {
	dim    Dimension
	values []float32
}

// NewEmbedding validates values against dim.
func NewEmbedding(dim Dimension, values []float32) (Embedding, error) {
	if !dim.IsSupported() {
		return Embedding{}, fmt.Errorf("unsupported embedding dimension %d: %w", int(dim), ErrInvalidArgument)
	}
	if len(values) != int(dim) {
		return Embedding{}, fmt.Errorf("embedding has %d values, dimension %d expected: %w", len(values), int(dim), ErrInvalidArgument)
	}
	return Embedding{dim: dim, values: values}, nil
}

// Dimension returns the tag, or 0 for the zero Embedding.
func (e Embedding) Dimension() Dimension { return e.dim }

// Values returns the vector. Callers must not modify it.
func (e Embedding) Values() []float32 { return e.values }

// IsZero reports whether the embedding is absent.
func (e Embedding) IsZero() bool { return e.dim == 0 }
