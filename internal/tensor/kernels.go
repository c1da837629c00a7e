package tensor

// Kernels is the set of numeric primitives the ragged containers delegate to.
// The containers only do bookkeeping; every pass over element data goes through
// a Kernels implementation.
//
// Implementations:
//   - internal/backend/cpu: pure Go reference kernels
//
// Integer arguments that describe addressing (block sizes, permutations,
// segment offsets) are passed as []int because the containers already hold them
// on the host.
type Kernels interface {
	// CompleteCumsum returns the exclusive prefix sum of a 1-D integer buffer
	// with the total appended: len(out) == len(lengths)+1, out[0] == 0.
	CompleteCumsum(lengths *RawTensor) (*RawTensor, error)

	// SegmentSumCSR sums values over the windows [segmentOffsets[i], segmentOffsets[i+1]).
	SegmentSumCSR(values *RawTensor, segmentOffsets []int) (*RawTensor, error)

	// PermuteBlocks splits data into consecutive blocks of blockSizes and
	// emits block permutation[0], block permutation[1], ... Indices may repeat or
	// be omitted. weights, when non-nil, is permuted in lockstep.
	PermuteBlocks(data *RawTensor, blockSizes, permutation []int, weights *RawTensor) (*RawTensor, *RawTensor, error)

	// PermuteBlocks2D gathers rows of a (blocks, stride) lengths matrix and the
	// value spans they address. It returns the flattened permuted lengths,
	// values and weights.
	PermuteBlocks2D(permutation []int, lengths, values, weights *RawTensor) (*RawTensor, *RawTensor, *RawTensor, error)

	// JaggedToPaddedDense writes row i (values[offsets[i]:offsets[i+1]]) into
	// row i of a (rows, width) buffer, truncating long rows and filling short
	// ones with padValue.
	JaggedToPaddedDense(values, offsets *RawTensor, width int, padValue float64) (*RawTensor, error)

	// PaddedDenseToJagged keeps the first lengths[i] entries of each row of a
	// (rows, width) buffer and packs them end to end.
	PaddedDenseToJagged(dense, lengths *RawTensor) (*RawTensor, error)

	// Cat concatenates tensors along dim.
	Cat(tensors []*RawTensor, dim int) (*RawTensor, error)

	// Device hooks.
	Move(t *RawTensor, device Device) *RawTensor
	Pin(t *RawTensor) *RawTensor
	RecordStream(t *RawTensor, s *Stream)

	Name() string
	Device() Device
}
