package cpu

import (
	"github.com/cockroachdb/errors"

	"github.com/born-ml/ragged/internal/parallel"
	"github.com/born-ml/ragged/internal/tensor"
)

// JaggedToPaddedDense lays jagged rows out in a (rows, width, ...) buffer.
// Rows longer than width are truncated; shorter rows are padded with padValue.
func (cpu *CPUBackend) JaggedToPaddedDense(
	values, offsets *tensor.RawTensor, width int, padValue float64,
) (*tensor.RawTensor, error) {
	if width < 0 {
		return nil, errors.Newf("jagged_to_padded_dense: negative width %d", width)
	}
	offs, err := offsets.Ints()
	if err != nil {
		return nil, errors.Wrap(err, "jagged_to_padded_dense")
	}
	if values.Dim() == 0 {
		return nil, errors.New("jagged_to_padded_dense: values must have a leading dimension")
	}
	if err := checkOffsets(offs, values.Len()); err != nil {
		return nil, errors.Wrap(err, "jagged_to_padded_dense")
	}
	rows := max(len(offs)-1, 0)

	shape := append(tensor.Shape{rows, width}, values.Shape()[1:]...)
	out, err := tensor.NewRaw(shape, values.DType(), values.Device())
	if err != nil {
		return nil, errors.Wrap(err, "jagged_to_padded_dense")
	}
	if padValue != 0 {
		out.Fill(padValue)
	}

	rowBytes := values.RowBytes()
	in := values.Contiguous().Data()
	dst := out.Data()
	parallel.ForRange(rows, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			n := min(offs[i+1]-offs[i], width) * rowBytes
			from := offs[i] * rowBytes
			to := i * width * rowBytes
			copy(dst[to:to+n], in[from:from+n])
		}
	}, cpu.par)
	return out, nil
}

// PaddedDenseToJagged keeps the first min(lengths[i], width) entries of each
// row of a (rows, width, ...) buffer.
func (cpu *CPUBackend) PaddedDenseToJagged(dense, lengths *tensor.RawTensor) (*tensor.RawTensor, error) {
	if dense.Dim() < 2 {
		return nil, errors.Newf("padded_dense_to_jagged: expected at least 2-D input, got shape %v", dense.Shape())
	}
	ls, err := lengths.Ints()
	if err != nil {
		return nil, errors.Wrap(err, "padded_dense_to_jagged")
	}
	rows, width := dense.Size(0), dense.Size(1)
	if len(ls) != rows {
		return nil, errors.Newf("padded_dense_to_jagged: %d lengths for %d rows", len(ls), rows)
	}

	kept := make([]int, rows)
	starts := make([]int, rows)
	total := 0
	for i, l := range ls {
		if l < 0 {
			return nil, errors.Newf("padded_dense_to_jagged: negative length %d at row %d", l, i)
		}
		kept[i] = min(l, width)
		starts[i] = total
		total += kept[i]
	}

	shape := append(tensor.Shape{total}, dense.Shape()[2:]...)
	out, err := tensor.NewRaw(shape, dense.DType(), dense.Device())
	if err != nil {
		return nil, errors.Wrap(err, "padded_dense_to_jagged")
	}

	elemBytes := dense.Shape()[2:].NumElements() * dense.DType().Size()
	in := dense.Contiguous().Data()
	dst := out.Data()
	parallel.ForRange(rows, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			n := kept[i] * elemBytes
			from := i * width * elemBytes
			to := starts[i] * elemBytes
			copy(dst[to:to+n], in[from:from+n])
		}
	}, cpu.par)
	return out, nil
}
