package cpu

import (
	"github.com/cockroachdb/errors"

	"github.com/born-ml/ragged/internal/tensor"
)

// Cat concatenates tensors along dim. Inputs may be strided views.
func (cpu *CPUBackend) Cat(tensors []*tensor.RawTensor, dim int) (*tensor.RawTensor, error) {
	if len(tensors) == 0 {
		return nil, errors.New("cat: at least one tensor required")
	}
	first := tensors[0]
	ndim := first.Dim()
	if dim < 0 {
		dim += ndim
	}
	if dim < 0 || dim >= ndim {
		return nil, errors.Newf("cat: invalid dim %d for %dD tensor", dim, ndim)
	}

	total := 0
	for i, t := range tensors {
		if t.DType() != first.DType() {
			return nil, errors.Newf("cat: tensor %d has dtype %s, expected %s", i, t.DType(), first.DType())
		}
		if t.Dim() != ndim {
			return nil, errors.Newf("cat: tensor %d has rank %d, expected %d", i, t.Dim(), ndim)
		}
		for d := 0; d < ndim; d++ {
			if d != dim && t.Size(d) != first.Size(d) {
				return nil, errors.Newf("cat: tensor %d has shape %v, incompatible with %v along dim %d",
					i, t.Shape(), first.Shape(), dim)
			}
		}
		total += t.Size(dim)
	}
	if dim == 0 {
		return tensor.Concat(tensors)
	}

	shape := first.Shape().Clone()
	shape[dim] = total
	out, err := tensor.NewRaw(shape, first.DType(), first.Device())
	if err != nil {
		return nil, errors.Wrap(err, "cat")
	}

	outer := first.Shape()[:dim].NumElements()
	inner := first.Shape()[dim+1:].NumElements() * first.DType().Size()
	dst := out.Data()
	srcs := make([][]byte, len(tensors))
	for i, t := range tensors {
		srcs[i] = t.Contiguous().Data()
	}

	pos := 0
	for o := 0; o < outer; o++ {
		for i, t := range tensors {
			n := t.Size(dim) * inner
			copy(dst[pos:pos+n], srcs[i][o*n:(o+1)*n])
			pos += n
		}
	}
	return out, nil
}
