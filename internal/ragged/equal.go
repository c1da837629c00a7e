package ragged

import (
	"slices"

	"github.com/born-ml/ragged/internal/tensor"
)

// SequencesEqual reports whether two sequences hold the same rows.
//
// Values are compared within the default tolerance. Weights, lengths and offsets
// must each be absent on both sides or equal on both. Each operand first derives
// its missing addressing half, so a sequence built from lengths equals one built
// from the matching offsets.
func SequencesEqual(a, b *Sequence) bool {
	if a == nil || b == nil {
		return a == b
	}
	if !buffersClose(a.values, b.values) {
		return false
	}
	a.forceAddressing()
	b.forceAddressing()
	return buffersClose(a.weights, b.weights) &&
		buffersClose(a.lengths, b.lengths) &&
		buffersClose(a.offsets, b.offsets)
}

func (s *Sequence) forceAddressing() {
	s.Lengths()
	s.Offsets()
}

// BatchesEqual reports whether two batches hold the same keys and data.
//
// Keys must match in order. Both operands are synced and derive their missing
// addressing half before lengths, weights, offsets, LengthPerKey, OffsetPerKey
// and Stride are compared, each under the absent-on-both-or-equal rule.
func BatchesEqual(a, b *KeyedBatch) bool {
	if a == nil || b == nil {
		return a == b
	}
	if !slices.Equal(a.keys, b.keys) {
		return false
	}
	if !buffersClose(a.values, b.values) {
		return false
	}

	a.Lengths()
	a.Offsets()
	b.Lengths()
	b.Offsets()
	a.Sync()
	b.Sync()

	return buffersClose(a.lengths, b.lengths) &&
		buffersClose(a.weights, b.weights) &&
		buffersClose(a.offsets, b.offsets) &&
		slices.Equal(a.lengthPerKey, b.lengthPerKey) &&
		slices.Equal(a.offsetPerKey, b.offsetPerKey) &&
		a.stride == b.stride
}

// buffersClose applies the absent-on-both-or-equal rule to optional buffers.
func buffersClose(a, b *tensor.RawTensor) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return tensor.Allclose(a, b, tensor.DefaultRTol, tensor.DefaultATol)
}
