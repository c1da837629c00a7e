package tensor

import "math"

// Default tolerances for Allclose, matching the usual numeric-library defaults.
const (
	DefaultRTol = 1e-5
	DefaultATol = 1e-8
)

// Allclose reports whether a and b have the same shape and every element pair
// satisfies |a-b| <= atol + rtol*|b|. NaN never compares close.
func Allclose(a, b *RawTensor, rtol, atol float64) bool {
	if !a.shape.Equal(b.shape) {
		return false
	}
	if a.dtype.IsInteger() && b.dtype.IsInteger() {
		return Equal(a, b)
	}
	av, bv := a.Float64s(), b.Float64s()
	for i := range av {
		if math.IsNaN(av[i]) || math.IsNaN(bv[i]) {
			return false
		}
		if av[i] == bv[i] {
			continue
		}
		if math.Abs(av[i]-bv[i]) > atol+rtol*math.Abs(bv[i]) {
			return false
		}
	}
	return true
}

// Equal reports exact element-wise equality of two same-shaped buffers.
// Integer buffers of different widths compare by value.
func Equal(a, b *RawTensor) bool {
	if !a.shape.Equal(b.shape) {
		return false
	}
	if a.dtype.IsInteger() && b.dtype.IsInteger() {
		ai, _ := a.Ints()
		bi, _ := b.Ints()
		for i := range ai {
			if ai[i] != bi[i] {
				return false
			}
		}
		return true
	}
	av, bv := a.Float64s(), b.Float64s()
	for i := range av {
		if av[i] != bv[i] {
			return false
		}
	}
	return true
}
