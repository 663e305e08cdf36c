package vector

import (
	"fmt"

	"github.com/hyperjump/kensaku/internal/models"
)

// DefaultDimension is used when a vector's size matches no supported dimension.
const DefaultDimension = models.Dim1536

// vectorHeaderSize is the fixed header of a stored vector: a 4-byte varlena
// length word plus 2 bytes of dimension and 2 unused bytes.
const vectorHeaderSize = 8

// EncodedSize returns the physical size in bytes of a stored vector with d elements.
func EncodedSize(d models.Dimension) int {
	return vectorHeaderSize + 4*int(d)
}

var dimensionsByEncodedSize = func() map[int]models.Dimension {
	m := make(map[int]models.Dimension, len(models.SupportedDimensions))
	for _, d := range models.SupportedDimensions {
		m[EncodedSize(d)] = d
	}
	return m
}()

// DimensionForEncodedSize maps a stored vector size back to its dimension.
func DimensionForEncodedSize(size int) (models.Dimension, bool) {
	d, ok := dimensionsByEncodedSize[size]
	return d, ok
}

// ResolveDimension infers the dimension of values from their encoded size.
// When the size matches no supported dimension it returns DefaultDimension
// and false; callers decide whether to reject or warn.
func ResolveDimension(values []float32) (models.Dimension, bool) {
	if d, ok := DimensionForEncodedSize(EncodedSize(models.Dimension(len(values)))); ok {
		return d, true
	}
	return DefaultDimension, false
}

// ParseDimension validates a dimension asserted by a caller. Unsupported
// values are rejected, never coerced.
func ParseDimension(n int) (models.Dimension, error) {
	d := models.Dimension(n)
	if !d.IsSupported() {
		return 0, fmt.Errorf("unsupported embedding dimension %d (supported: 384, 768, 1024, 1536, 3072): %w", n, models.ErrInvalidArgument)
	}
	return d, nil
}
