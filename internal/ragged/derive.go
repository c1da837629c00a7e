package ragged

import (
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/swiss"

	"github.com/born-ml/ragged/internal/tensor"
)

// Segment-sum cost model coefficients. The bulk kernel wins once the number of
// segments reaches a quadratic in the mean segment size.
const (
	segmentSumIntercept = 1.39771
	segmentSumLinear    = 0.0000312222
	segmentSumQuadratic = 1.63949e-10
)

// UseSegmentSumCSR reports whether per-key length sums over blocks of
// stridePerKey rows should go through the bulk SegmentSumCSR kernel rather
// than one reduction per block.
func UseSegmentSumCSR(stridePerKey []int) bool {
	if len(stridePerKey) == 0 {
		return false
	}
	avg := float64(sumInts(stridePerKey)) / float64(len(stridePerKey))
	threshold := int(segmentSumIntercept + segmentSumLinear*avg + segmentSumQuadratic*avg*avg)
	return len(stridePerKey) >= threshold
}

// cumsum returns [0, o0, o0+o1, ...].
func cumsum(o []int) []int {
	out := make([]int, len(o)+1)
	for i, v := range o {
		out[i+1] = out[i] + v
	}
	return out
}

func sumInts(o []int) int {
	s := 0
	for _, v := range o {
		s += v
	}
	return s
}

// sumBySplits sums consecutive runs of in whose sizes are given by splits.
func sumBySplits(in, splits []int) []int {
	out := make([]int, len(splits))
	start := 0
	for i, n := range splits {
		end := min(start+n, len(in))
		out[i] = sumInts(in[min(start, end):end])
		start += n
	}
	return out
}

// keyIndex maps a key to the position of its first occurrence.
type keyIndex struct {
	m swiss.Map[string, int]
}

func newKeyIndex(keys []string) *keyIndex {
	idx := &keyIndex{}
	idx.m.Init(len(keys))
	for i, k := range keys {
		if _, ok := idx.m.Get(k); !ok {
			idx.m.Put(k, i)
		}
	}
	return idx
}

func (idx *keyIndex) lookup(key string) (int, bool) {
	return idx.m.Get(key)
}

// checkAddressing validates a lengths or offsets buffer.
func checkAddressing(name string, t *tensor.RawTensor) error {
	if t == nil {
		return nil
	}
	if t.Dim() != 1 {
		return errors.Wrapf(ErrShapeMismatch, "%s must be 1-D, got shape %v", name, t.Shape())
	}
	if t.NumElements() > 0 && !t.DType().IsInteger() {
		return errors.Wrapf(ErrNonIntegerAddressing, "%s has dtype %s", name, t.DType())
	}
	return nil
}

// mustInts reads an addressing buffer that construction already validated.
func mustInts(t *tensor.RawTensor) []int {
	out, err := t.Ints()
	if err != nil {
		panic(errors.NewAssertionErrorWithWrappedErrf(err, "addressing buffer"))
	}
	return out
}

// lastInt reads the final element of a non-empty 1-D integer buffer.
func lastInt(t *tensor.RawTensor) int {
	return mustInts(t.Slice(t.Len()-1, t.Len()))[0]
}

// lengthsFromOffsets is the adjacent difference of offsets, in the offsets dtype.
func lengthsFromOffsets(offsets *tensor.RawTensor) *tensor.RawTensor {
	offs := mustInts(offsets)
	if len(offs) == 0 {
		return tensor.Empty(offsets.DType(), offsets.Device())
	}
	ls := make([]int, len(offs)-1)
	for i := range ls {
		ls[i] = offs[i+1] - offs[i]
	}
	return tensor.MustFromInts(ls, offsets.DType(), offsets.Device())
}

// offsetsFromLengths runs the complete cumsum kernel. Byte-sized lengths are
// widened first so the running total cannot overflow.
func offsetsFromLengths(k tensor.Kernels, lengths *tensor.RawTensor) *tensor.RawTensor {
	if lengths.DType() == tensor.Uint8 || !lengths.DType().IsInteger() {
		lengths = tensor.MustFromInts(mustInts(lengths), tensor.Int64, lengths.Device())
	}
	offsets, err := k.CompleteCumsum(lengths)
	if err != nil {
		panic(errors.NewAssertionErrorWithWrappedErrf(err, "complete cumsum"))
	}
	return offsets
}
