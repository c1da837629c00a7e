package tensor

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Narrow returns a view of length elements starting at start along dim.
// No data is copied; the view may be non-contiguous when dim > 0.
//
// Example:
//
//	x, _ := tensor.FromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}, tensor.CPU)
//	col, _ := x.Narrow(1, 1, 2) // [[2, 3], [5, 6]]
func (r *RawTensor) Narrow(dim, start, length int) (*RawTensor, error) {
	if dim < 0 {
		dim += len(r.shape)
	}
	if dim < 0 || dim >= len(r.shape) {
		return nil, errors.Newf("narrow: dimension %d out of range for shape %v", dim, r.shape)
	}
	if start < 0 || length < 0 || start+length > r.shape[dim] {
		return nil, errors.Newf("narrow: window [%d, %d) out of range for dimension %d of size %d",
			start, start+length, dim, r.shape[dim])
	}

	view := r.Clone()
	view.shape[dim] = length
	view.offset += start * r.stride[dim] * r.dtype.Size()
	return view, nil
}

// Slice returns rows [start, end) along the leading dimension.
// Like a Go slice expression it panics on out-of-range bounds.
func (r *RawTensor) Slice(start, end int) *RawTensor {
	view, err := r.Narrow(0, start, end-start)
	if err != nil {
		panic(err)
	}
	return view
}

// Reshape returns a view with a new shape. One dimension may be -1.
// The source must be contiguous.
func (r *RawTensor) Reshape(shape Shape) (*RawTensor, error) {
	if !r.IsContiguous() {
		return nil, errors.Newf("reshape: tensor with strides %v is not contiguous", r.stride)
	}
	resolved, err := shape.resolve(r.NumElements())
	if err != nil {
		return nil, errors.Wrap(err, "reshape")
	}

	view := r.Clone()
	view.shape = resolved
	view.stride = resolved.ComputeStrides()
	return view, nil
}

// MustReshape is Reshape for shapes the caller has already validated.
func (r *RawTensor) MustReshape(shape Shape) *RawTensor {
	view, err := r.Reshape(shape)
	if err != nil {
		panic(err)
	}
	return view
}

// Contiguous returns r itself when already row-major, otherwise a packed copy.
func (r *RawTensor) Contiguous() *RawTensor {
	if r.IsContiguous() {
		return r
	}
	return r.Copy()
}

// copyInto packs the logical elements of r into dst in row-major order.
func (r *RawTensor) copyInto(dst []byte) {
	if r.IsContiguous() {
		copy(dst, r.buffer.data[r.offset:r.offset+r.ByteSize()])
		return
	}
	size := r.dtype.Size()
	pos := 0
	r.forEachElement(func(byteOffset int) {
		copy(dst[pos:pos+size], r.buffer.data[byteOffset:byteOffset+size])
		pos += size
	})
}

// forEachElement calls fn with the byte offset of every element in row-major order.
func (r *RawTensor) forEachElement(fn func(byteOffset int)) {
	n := r.NumElements()
	if n == 0 {
		return
	}
	if len(r.shape) == 0 {
		fn(r.offset)
		return
	}

	size := r.dtype.Size()
	idx := make([]int, len(r.shape))
	for k := 0; k < n; k++ {
		off := r.offset
		for d, i := range idx {
			off += i * r.stride[d] * size
		}
		fn(off)

		for d := len(idx) - 1; d >= 0; d-- {
			idx[d]++
			if idx[d] < r.shape[d] {
				break
			}
			idx[d] = 0
		}
	}
}

// Concat packs tensors end to end along the leading dimension.
// All inputs must share dtype and trailing dimensions.
func Concat(tensors []*RawTensor) (*RawTensor, error) {
	if len(tensors) == 0 {
		return nil, errors.New("concat: at least one tensor required")
	}
	first := tensors[0]
	if first.Dim() == 0 {
		return nil, errors.New("concat: scalars cannot be concatenated")
	}

	rows := 0
	for i, t := range tensors {
		if t.dtype != first.dtype {
			return nil, errors.Newf("concat: tensor %d has dtype %s, expected %s", i, t.dtype, first.dtype)
		}
		if !t.shape[1:].Equal(first.shape[1:]) {
			return nil, errors.Newf("concat: tensor %d has shape %v, incompatible with %v", i, t.shape, first.shape)
		}
		rows += t.shape[0]
	}

	shape := first.shape.Clone()
	shape[0] = rows
	out, err := NewRaw(shape, first.dtype, first.device)
	if err != nil {
		return nil, err
	}
	pos := 0
	for _, t := range tensors {
		n := t.ByteSize()
		t.copyInto(out.buffer.data[pos : pos+n])
		pos += n
	}
	return out, nil
}

// Format renders small buffers for debugging and test output.
func (r *RawTensor) Format() string {
	vals := r.Float64s()
	if r.Dim() <= 1 {
		return fmt.Sprint(vals)
	}
	rowLen := r.shape[1:].NumElements()
	out := "["
	for i := 0; i < r.shape[0]; i++ {
		if i > 0 {
			out += " "
		}
		out += fmt.Sprint(vals[i*rowLen : (i+1)*rowLen])
	}
	return out + "]"
}
