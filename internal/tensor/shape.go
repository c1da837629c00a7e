package tensor

import "github.com/cockroachdb/errors"

// Shape represents the dimensions of a buffer.
type Shape []int

// NumElements returns the total number of elements.
func (s Shape) NumElements() int {
	if len(s) == 0 {
		return 1 // Scalar has 1 element
	}
	n := 1
	for _, dim := range s {
		n *= dim
	}
	return n
}

// Validate checks that no dimension is negative.
// Zero-sized dimensions are legal: empty ragged buffers are common.
func (s Shape) Validate() error {
	for i, dim := range s {
		if dim < 0 {
			return errors.Newf("invalid dimension at index %d: %d (must be >= 0)", i, dim)
		}
	}
	return nil
}

// Equal checks if two shapes are equal.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	clone := make(Shape, len(s))
	copy(clone, s)
	return clone
}

// ComputeStrides calculates row-major strides for the shape.
// Strides define memory layout: stride[i] = product of all dimensions after i.
func (s Shape) ComputeStrides() []int {
	strides := make([]int, len(s))
	if len(s) == 0 {
		return strides
	}

	strides[len(s)-1] = 1
	for i := len(s) - 2; i >= 0; i-- {
		strides[i] = strides[i+1] * s[i+1]
	}
	return strides
}

// resolve replaces a single -1 dimension with the size implied by numElements.
func (s Shape) resolve(numElements int) (Shape, error) {
	out := s.Clone()
	infer := -1
	known := 1
	for i, dim := range out {
		switch {
		case dim == -1:
			if infer >= 0 {
				return nil, errors.Newf("only one dimension can be inferred, got %v", s)
			}
			infer = i
		case dim < 0:
			return nil, errors.Newf("invalid dimension at index %d: %d", i, dim)
		default:
			known *= dim
		}
	}
	if infer >= 0 {
		if known == 0 || numElements%known != 0 {
			return nil, errors.Newf("cannot infer dimension of %v for %d elements", s, numElements)
		}
		out[infer] = numElements / known
	}
	if out.NumElements() != numElements {
		return nil, errors.Newf("shape %v requires %d elements, but got %d", out, out.NumElements(), numElements)
	}
	return out, nil
}
