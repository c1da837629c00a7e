package ragged

import (
	"github.com/cockroachdb/errors"

	"github.com/born-ml/ragged/internal/tensor"
)

// Split partitions the keys into consecutive runs of the given sizes.
//
// Values and weights are sliced at element-space key boundaries, lengths at
// row-space key boundaries. A segment spanning every key returns the original
// buffers; a zero segment yields empty typed buffers.
func (b *KeyedBatch) Split(segments []int) ([]*KeyedBatch, error) {
	total := 0
	for _, s := range segments {
		if s < 0 {
			return nil, errors.Wrapf(ErrSegmentsMismatch, "negative segment %d", s)
		}
		total += s
	}
	if total != len(b.keys) {
		return nil, errors.Wrapf(ErrSegmentsMismatch, "segments %v sum to %d, have %d keys", segments, total, len(b.keys))
	}

	lengthPerKey := b.LengthPerKey()
	offsetPerKey := b.OffsetPerKey()
	rowOffsets := b.LengthsOffsetPerKey()
	dev := b.Device()
	lengthsDType := b.Lengths().DType()
	offsetsDType := lengthsDType
	if b.offsets != nil {
		offsetsDType = b.offsets.DType()
	}

	out := make([]*KeyedBatch, 0, len(segments))
	start := 0
	for _, segment := range segments {
		end := start + segment
		var spkpr [][]int
		if b.variableStridePerKey {
			spkpr = b.stridePerKeyPerRank[start:end]
		}
		strideOpt := b.strideOptions(spkpr)

		var (
			part *KeyedBatch
			err  error
		)
		switch segment {
		case len(b.keys):
			part, err = NewKeyedBatch(b.keys, b.values,
				WithWeights(b.weights), WithLengths(b.lengths), WithOffsets(b.offsets), strideOpt,
				withLengthPerKey(b.lengthPerKey), withOffsetPerKey(b.offsetPerKey),
				withIndexPerKey(b.indexPerKey), withSeqDict(b.seqDict), WithKernels(b.kernels))
		case 0:
			opts := []Option{
				WithLengths(tensor.Empty(lengthsDType, dev)),
				WithOffsets(tensor.Empty(offsetsDType, dev)),
				strideOpt, WithKernels(b.kernels),
			}
			if b.weights != nil {
				opts = append(opts, WithWeights(tensor.Empty(b.weights.DType(), dev)))
			}
			part, err = NewKeyedBatch(b.keys[start:end], tensor.Empty(b.values.DType(), dev), opts...)
		default:
			lo, hi := offsetPerKey[start], offsetPerKey[end]
			opts := []Option{
				WithLengths(b.Lengths().Slice(rowOffsets[start], rowOffsets[end])),
				strideOpt,
				withLengthPerKey(lengthPerKey[start:end]),
				WithKernels(b.kernels),
			}
			if b.weights != nil {
				opts = append(opts, WithWeights(b.weights.Slice(lo, hi)))
			}
			part, err = NewKeyedBatch(b.keys[start:end], b.values.Slice(lo, hi), opts...)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "split segment [%d, %d)", start, end)
		}
		out = append(out, part)
		start = end
	}
	return out, nil
}

// Permute reorders keys by indices, which may repeat or omit keys.
// Per-key blocks of lengths, values and weights move as units.
// With includeInverseIndices the result carries b's inverse indices unchanged.
func (b *KeyedBatch) Permute(indices []int, includeInverseIndices bool) (*KeyedBatch, error) {
	for i, idx := range indices {
		if idx < 0 || idx >= len(b.keys) {
			return nil, errors.Wrapf(ErrKeyIndexRange, "indices[%d] = %d for %d keys", i, idx, len(b.keys))
		}
	}

	lengthPerKey := b.LengthPerKey()
	keys := make([]string, len(indices))
	spkpr := make([][]int, len(indices))
	permutedLengthPerKey := make([]int, len(indices))
	for i, idx := range indices {
		keys[i] = b.keys[idx]
		spkpr[i] = b.stridePerKeyPerRank[idx]
		permutedLengthPerKey[i] = lengthPerKey[idx]
	}

	var lengths, values, weights *tensor.RawTensor
	var err error
	if b.variableStridePerKey {
		lengths, _, err = b.kernels.PermuteBlocks(b.Lengths(), b.stridePerKey, indices, nil)
		if err != nil {
			return nil, errors.Wrap(err, "permute lengths")
		}
		values, weights, err = b.kernels.PermuteBlocks(b.values, lengthPerKey, indices, b.weights)
		if err != nil {
			return nil, errors.Wrap(err, "permute values")
		}
	} else {
		grid, rerr := b.Lengths().Contiguous().Reshape(tensor.Shape{len(b.keys), b.stride})
		if rerr != nil {
			return nil, errors.Wrap(rerr, "view lengths per key")
		}
		lengths, values, weights, err = b.kernels.PermuteBlocks2D(indices, grid, b.values, b.weights)
		if err != nil {
			return nil, errors.Wrap(err, "permute blocks")
		}
	}

	opts := []Option{
		WithLengths(lengths), WithWeights(weights), b.strideOptions(spkpr), WithKernels(b.kernels),
	}
	if len(keys) > 0 {
		opts = append(opts, withLengthPerKey(permutedLengthPerKey))
	}
	if includeInverseIndices && b.inverseIndices != nil {
		opts = append(opts, WithInverseIndices(b.inverseIndices.Keys, b.inverseIndices.Indices))
	}
	return NewKeyedBatch(keys, values, opts...)
}

// Concat merges batches end to end along the key axis.
//
// All batches must agree on weightedness and on variable stride per key;
// uniform-stride batches must also share one stride. LengthPerKey is carried
// over only when every input has it cached.
func Concat(batches []*KeyedBatch) (*KeyedBatch, error) {
	if len(batches) == 0 {
		return nil, ErrEmptyConcat
	}
	first := batches[0]
	weighted := first.weights != nil
	variable := first.variableStridePerKey

	var (
		keys            []string
		values          []*tensor.RawTensor
		weights         []*tensor.RawTensor
		lengths         []*tensor.RawTensor
		spkpr           [][]int
		lengthPerKey    []int
		hasLengthPerKey = true
	)
	for i, b := range batches {
		if b.variableStridePerKey != variable {
			return nil, errors.Wrapf(ErrVariableStrideMode, "batch %d", i)
		}
		if (b.weights != nil) != weighted {
			return nil, errors.Wrapf(ErrWeightedness, "batch %d", i)
		}
		if !variable && b.stride != first.stride {
			return nil, errors.Wrapf(ErrStrideMismatch, "batch %d has stride %d, expected %d", i, b.stride, first.stride)
		}
		if b.lengthPerKey == nil {
			hasLengthPerKey = false
		} else if hasLengthPerKey {
			lengthPerKey = append(lengthPerKey, b.lengthPerKey...)
		}
		keys = append(keys, b.keys...)
		values = append(values, b.values)
		lengths = append(lengths, b.Lengths())
		if weighted {
			weights = append(weights, b.weights)
		}
		if variable {
			spkpr = append(spkpr, b.stridePerKeyPerRank...)
		}
	}

	k := first.kernels
	v, err := k.Cat(values, 0)
	if err != nil {
		return nil, errors.Wrap(err, "concatenate values")
	}
	l, err := k.Cat(lengths, 0)
	if err != nil {
		return nil, errors.Wrap(err, "concatenate lengths")
	}
	opts := []Option{WithLengths(l), WithKernels(k)}
	if weighted {
		w, err := k.Cat(weights, 0)
		if err != nil {
			return nil, errors.Wrap(err, "concatenate weights")
		}
		opts = append(opts, WithWeights(w))
	}
	if variable {
		opts = append(opts, WithStridePerKeyPerRank(spkpr))
	} else {
		opts = append(opts, WithStride(first.stride))
	}
	if hasLengthPerKey {
		if lengthPerKey == nil {
			lengthPerKey = []int{}
		}
		opts = append(opts, withLengthPerKey(lengthPerKey))
	}
	return NewKeyedBatch(keys, v, opts...)
}

// FlattenLengths returns a batch with the same data, 1-D lengths and no offsets.
func (b *KeyedBatch) FlattenLengths() *KeyedBatch {
	flat, err := b.Lengths().Contiguous().Reshape(tensor.Shape{-1})
	if err != nil {
		panic(errors.NewAssertionErrorWithWrappedErrf(err, "flatten lengths"))
	}
	out, err := NewKeyedBatch(b.keys, b.values,
		WithWeights(b.weights), WithLengths(flat), b.strideOptions(b.stridePerKeyPerRank),
		withLengthPerKey(b.LengthPerKey()), WithKernels(b.kernels))
	if err != nil {
		panic(errors.NewAssertionErrorWithWrappedErrf(err, "flatten lengths"))
	}
	return out
}

// Get returns the sequence of the first key named key.
func (b *KeyedBatch) Get(key string) (*Sequence, error) {
	idx, ok := b.KeyIndex(key)
	if !ok {
		return nil, errors.Wrapf(ErrUnknownKey, "%q", key)
	}
	offsetPerKey := b.OffsetPerKey()
	rowOffsets := b.LengthsOffsetPerKey()

	lo := offsetPerKey[idx]
	hi := lo
	if idx+1 < len(offsetPerKey) {
		hi = offsetPerKey[idx+1]
	}
	var weights *tensor.RawTensor
	if b.weights != nil {
		weights = b.weights.Slice(lo, hi)
	}
	return NewSequence(b.values.Slice(lo, hi),
		WithWeights(weights),
		WithLengths(b.Lengths().Slice(rowOffsets[idx], rowOffsets[idx+1])),
		WithKernels(b.kernels))
}

// ToDict splits the batch into one sequence per key in a single pass and caches
// the result. For repeated keys the first occurrence wins.
func (b *KeyedBatch) ToDict() map[string]*Sequence {
	if b.seqDict != nil {
		return b.seqDict
	}
	lengthPerKey := b.LengthPerKey()
	out := make(map[string]*Sequence, len(b.keys))
	if len(lengthPerKey) == 0 {
		b.seqDict = out
		return out
	}

	offsetPerKey := b.OffsetPerKey()
	rowOffsets := b.LengthsOffsetPerKey()
	lengths := b.Lengths()
	for i, key := range b.keys {
		if _, dup := out[key]; dup {
			continue
		}
		keyLengths := lengths.Slice(rowOffsets[i], rowOffsets[i+1])
		lo, hi := offsetPerKey[i], offsetPerKey[i+1]
		seq := &Sequence{
			values:  b.values.Slice(lo, hi),
			lengths: keyLengths,
			offsets: offsetsFromLengths(b.kernels, keyLengths),
			kernels: b.kernels,
		}
		if b.weights != nil {
			seq.weights = b.weights.Slice(lo, hi)
		}
		out[key] = seq
	}
	b.seqDict = out
	return out
}

// To returns a copy of the batch with every buffer moved to device.
func (b *KeyedBatch) To(device tensor.Device) *KeyedBatch {
	return b.mapBuffers(func(t *tensor.RawTensor) *tensor.RawTensor {
		return b.kernels.Move(t, device)
	})
}

// PinMemory returns a copy of the batch with every buffer pinned.
func (b *KeyedBatch) PinMemory() *KeyedBatch {
	return b.mapBuffers(b.kernels.Pin)
}

func (b *KeyedBatch) mapBuffers(fn func(*tensor.RawTensor) *tensor.RawTensor) *KeyedBatch {
	out := *b
	out.values = fn(b.values)
	if b.weights != nil {
		out.weights = fn(b.weights)
	}
	if b.lengths != nil {
		out.lengths = fn(b.lengths)
	}
	if b.offsets != nil {
		out.offsets = fn(b.offsets)
	}
	if b.inverseIndices != nil {
		out.inverseIndices = &InverseIndices{Keys: b.inverseIndices.Keys, Indices: fn(b.inverseIndices.Indices)}
	}
	out.seqDict = nil
	return &out
}

// RecordStream keeps every buffer alive until stream is synchronized.
func (b *KeyedBatch) RecordStream(stream *tensor.Stream) {
	for _, t := range []*tensor.RawTensor{b.values, b.weights, b.lengths, b.offsets} {
		if t != nil {
			b.kernels.RecordStream(t, stream)
		}
	}
}
