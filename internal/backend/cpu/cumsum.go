package cpu

import (
	"github.com/cockroachdb/errors"

	"github.com/born-ml/ragged/internal/parallel"
	"github.com/born-ml/ragged/internal/tensor"
)

// CompleteCumsum returns [0, l0, l0+l1, ...] in the dtype of lengths.
func (cpu *CPUBackend) CompleteCumsum(lengths *tensor.RawTensor) (*tensor.RawTensor, error) {
	if lengths.Dim() != 1 {
		return nil, errors.Newf("complete_cumsum: expected a 1-D buffer, got shape %v", lengths.Shape())
	}
	if !lengths.DType().IsInteger() {
		return nil, errors.Newf("complete_cumsum: lengths dtype %s is not an integer type", lengths.DType())
	}
	ls, err := lengths.Ints()
	if err != nil {
		return nil, errors.Wrap(err, "complete_cumsum")
	}

	out := make([]int, len(ls)+1)
	for i, l := range ls {
		out[i+1] = out[i] + l
	}
	res, err := tensor.FromInts(out, lengths.DType(), lengths.Device())
	if err != nil {
		return nil, errors.Wrap(err, "complete_cumsum")
	}
	return res, nil
}

// SegmentSumCSR sums the 1-D values over each CSR window.
// Integer inputs are summed exactly; floating inputs accumulate in float64.
func (cpu *CPUBackend) SegmentSumCSR(values *tensor.RawTensor, segmentOffsets []int) (*tensor.RawTensor, error) {
	if values.Dim() != 1 {
		return nil, errors.Newf("segment_sum_csr: expected a 1-D buffer, got shape %v", values.Shape())
	}
	if err := checkOffsets(segmentOffsets, values.Len()); err != nil {
		return nil, errors.Wrap(err, "segment_sum_csr")
	}
	numSegments := max(len(segmentOffsets)-1, 0)

	if values.DType().IsInteger() {
		vs, err := values.Ints()
		if err != nil {
			return nil, errors.Wrap(err, "segment_sum_csr")
		}
		sums := make([]int, numSegments)
		parallel.For(numSegments, func(i int) {
			for _, v := range vs[segmentOffsets[i]:segmentOffsets[i+1]] {
				sums[i] += v
			}
		}, cpu.par)
		return tensor.FromInts(sums, values.DType(), values.Device())
	}

	vs := values.Float64s()
	sums := make([]float64, numSegments)
	parallel.For(numSegments, func(i int) {
		for _, v := range vs[segmentOffsets[i]:segmentOffsets[i+1]] {
			sums[i] += v
		}
	}, cpu.par)
	return tensor.FromFloat64s(sums, values.DType(), values.Device())
}

func checkOffsets(offsets []int, n int) error {
	if len(offsets) == 0 {
		return nil
	}
	if offsets[0] < 0 {
		return errors.Newf("offsets start at %d", offsets[0])
	}
	for i := 1; i < len(offsets); i++ {
		if offsets[i] < offsets[i-1] {
			return errors.Newf("offsets decrease at index %d: %d < %d", i, offsets[i], offsets[i-1])
		}
	}
	if last := offsets[len(offsets)-1]; last > n {
		return errors.Newf("offsets end at %d past buffer of %d elements", last, n)
	}
	return nil
}
