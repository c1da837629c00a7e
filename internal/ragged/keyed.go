package ragged

import (
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/born-ml/ragged/internal/tensor"
)

// InverseIndices records how to expand a deduplicated per-key output back to
// per-example order.
type InverseIndices struct {
	Keys    []string
	Indices *tensor.RawTensor
}

// KeyedBatch packs one ragged sequence per key into shared flat buffers.
//
// Rows are laid out key-major: every row of Keys()[0], then every row of
// Keys()[1], and so on. Two address spaces index the layout. Element space
// (OffsetPerKey) locates a key's values; row space (LengthsOffsetPerKey)
// locates its lengths.
//
// Keys may repeat. Lookups by name resolve to the first occurrence.
//
// Derived fields are computed on first access and cached in place, so the first
// access is not safe for concurrent use. Call Sync before sharing an instance.
//
//	#              0       1        2  <-- rows
//	# "F0"       [1,2]     []      [3]
//	# "F1"        [4]      [5]   [6,7,8]
//
//	values:  [1, 2, 3, 4, 5, 6, 7, 8]
//	offsets: [0, 2, 2, 3, 4, 5, 8]
//	lengths: [2, 0, 1, 1, 1, 3]
//	offset_per_key: [0, 3, 8]
type KeyedBatch struct {
	keys    []string
	values  *tensor.RawTensor
	weights *tensor.RawTensor
	lengths *tensor.RawTensor
	offsets *tensor.RawTensor

	stride               int // -1 when keys differ in batch size
	stridePerKeyPerRank  [][]int
	stridePerKey         []int
	variableStridePerKey bool

	lengthPerKey        []int
	offsetPerKey        []int
	lengthsOffsetPerKey []int
	indexPerKey         *keyIndex
	seqDict             map[string]*Sequence
	inverseIndices      *InverseIndices

	kernels tensor.Kernels
}

const noStride = -1

// NewKeyedBatch builds a batch over key-major values. WithLengths or WithOffsets
// is required; WithStride and WithStridePerKeyPerRank are mutually exclusive.
//
// Without either stride option the stride is inferred from the row count:
// (len(offsets)-1)/len(keys) or len(lengths)/len(keys).
func NewKeyedBatch(keys []string, values *tensor.RawTensor, opts ...Option) (*KeyedBatch, error) {
	o := buildOptions(opts)
	if err := validateRagged(values, o.lengths, o.offsets, o.weights); err != nil {
		return nil, err
	}

	b := &KeyedBatch{
		keys:           keys,
		values:         values,
		weights:        o.weights,
		lengths:        o.lengths,
		offsets:        o.offsets,
		stride:         noStride,
		lengthPerKey:   o.lengthPerKey,
		offsetPerKey:   o.offsetPerKey,
		indexPerKey:    o.indexPerKey,
		seqDict:        o.seqDict,
		inverseIndices: o.inverseIndices,
		kernels:        o.kernels,
	}

	if o.hasStridePerRank {
		if o.hasStride {
			return nil, ErrStrideConflict
		}
		if len(o.stridePerKeyPerRank) != len(keys) {
			return nil, errors.Wrapf(ErrShapeMismatch, "%d per-rank stride lists for %d keys",
				len(o.stridePerKeyPerRank), len(keys))
		}
		b.variableStridePerKey = true
		b.stridePerKeyPerRank = o.stridePerKeyPerRank
		b.stridePerKey = make([]int, len(keys))
		for i, s := range o.stridePerKeyPerRank {
			b.stridePerKey[i] = sumInts(s)
		}
		switch {
		case len(b.stridePerKey) == 0:
			b.stride = 0
		case allEqual(b.stridePerKey):
			b.stride = b.stridePerKey[0]
		}
	} else {
		b.stride = inferStride(keys, o)
		b.stridePerKeyPerRank = make([][]int, len(keys))
		b.stridePerKey = make([]int, len(keys))
		for i := range keys {
			b.stridePerKeyPerRank[i] = []int{b.stride}
			b.stridePerKey[i] = b.stride
		}
	}

	if rows := b.numRows(); rows != sumInts(b.stridePerKey) {
		return nil, errors.Wrapf(ErrShapeMismatch, "%d rows for %d keys with strides %v",
			rows, len(keys), b.stridePerKey)
	}
	return b, nil
}

func inferStride(keys []string, o options) int {
	switch {
	case o.hasStride:
		return o.stride
	case len(keys) == 0:
		return 0
	case o.offsets != nil && o.offsets.Len() > 0:
		return (o.offsets.Len() - 1) / len(keys)
	case o.lengths != nil:
		return o.lengths.Len() / len(keys)
	default:
		return 0
	}
}

func allEqual(s []int) bool {
	for _, v := range s[1:] {
		if v != s[0] {
			return false
		}
	}
	return true
}

func (b *KeyedBatch) numRows() int {
	if b.lengths != nil {
		return b.lengths.Len()
	}
	return max(b.offsets.Len()-1, 0)
}

// FromOffsetsSync builds a batch from offsets and syncs it.
func FromOffsetsSync(keys []string, values, offsets *tensor.RawTensor, opts ...Option) (*KeyedBatch, error) {
	b, err := NewKeyedBatch(keys, values, append([]Option{WithOffsets(offsets)}, opts...)...)
	if err != nil {
		return nil, err
	}
	return b.Sync(), nil
}

// FromLengthsSync builds a batch from lengths and syncs it.
// Unlike NewKeyedBatch it checks that the lengths cover exactly the values.
func FromLengthsSync(keys []string, values, lengths *tensor.RawTensor, opts ...Option) (*KeyedBatch, error) {
	b, err := NewKeyedBatch(keys, values, append([]Option{WithLengths(lengths)}, opts...)...)
	if err != nil {
		return nil, err
	}
	if total := sumInts(mustInts(lengths)); total != values.Len() {
		return nil, errors.Wrapf(ErrShapeMismatch, "lengths sum to %d for %d values", total, values.Len())
	}
	return b.Sync(), nil
}

// FromSequences packs one sequence per key, in the order of keys.
// Keys whose row counts differ produce a variable-stride batch with a single rank.
func FromSequences(keys []string, seqs map[string]*Sequence, opts ...Option) (*KeyedBatch, error) {
	if len(keys) == 0 {
		return nil, errors.Wrap(ErrShapeMismatch, "at least one key required")
	}
	o := buildOptions(opts)

	values := make([]*tensor.RawTensor, len(keys))
	lengths := make([]*tensor.RawTensor, len(keys))
	var weights []*tensor.RawTensor
	stridePerKey := make([]int, len(keys))
	for i, k := range keys {
		s, ok := seqs[k]
		if !ok {
			return nil, errors.Wrapf(ErrUnknownKey, "%q", k)
		}
		values[i] = s.Values()
		lengths[i] = s.Lengths()
		stridePerKey[i] = s.Lengths().Len()
		if w := s.WeightsOrNil(); w != nil {
			weights = append(weights, w)
		}
	}
	if len(weights) != 0 && len(weights) != len(keys) {
		return nil, ErrWeightedness
	}

	v, err := o.kernels.Cat(values, 0)
	if err != nil {
		return nil, errors.Wrap(err, "concatenate values")
	}
	l, err := o.kernels.Cat(lengths, 0)
	if err != nil {
		return nil, errors.Wrap(err, "concatenate lengths")
	}
	batchOpts := []Option{WithLengths(l), WithKernels(o.kernels)}
	if len(weights) > 0 {
		w, err := o.kernels.Cat(weights, 0)
		if err != nil {
			return nil, errors.Wrap(err, "concatenate weights")
		}
		batchOpts = append(batchOpts, WithWeights(w))
	}
	if allEqual(stridePerKey) {
		batchOpts = append(batchOpts, WithStride(stridePerKey[0]))
	} else {
		perRank := make([][]int, len(keys))
		for i, s := range stridePerKey {
			perRank[i] = []int{s}
		}
		batchOpts = append(batchOpts, WithStridePerKeyPerRank(perRank))
	}

	b, err := NewKeyedBatch(keys, v, batchOpts...)
	if err != nil {
		return nil, err
	}
	return b.Sync(), nil
}

// EmptyKeyedBatch returns a batch with no keys and zero-length typed buffers.
func EmptyKeyedBatch(
	weighted bool, device tensor.Device, valuesDType, weightsDType, lengthsDType tensor.DataType,
) *KeyedBatch {
	opts := []Option{WithLengths(tensor.Empty(lengthsDType, device)), WithStride(0)}
	if weighted {
		opts = append(opts, WithWeights(tensor.Empty(weightsDType, device)))
	}
	b, err := NewKeyedBatch(nil, tensor.Empty(valuesDType, device), opts...)
	if err != nil {
		panic(errors.NewAssertionErrorWithWrappedErrf(err, "empty batch"))
	}
	return b
}

// EmptyLike returns a batch with no keys and no rows that shares b's dtypes,
// device, weightedness and stride bookkeeping.
func EmptyLike(b *KeyedBatch) *KeyedBatch {
	dev := b.Device()
	out := &KeyedBatch{
		values:               tensor.Empty(b.values.DType(), dev),
		lengths:              tensor.Empty(b.Lengths().DType(), dev),
		stride:               b.stride,
		variableStridePerKey: b.variableStridePerKey,
		stridePerKeyPerRank:  [][]int{},
		stridePerKey:         []int{},
		kernels:              b.kernels,
	}
	if b.weights != nil {
		out.weights = tensor.Empty(b.weights.DType(), dev)
	}
	if out.variableStridePerKey {
		out.stride = 0
	}
	return out
}

// Keys returns the key list.
func (b *KeyedBatch) Keys() []string { return b.keys }

// Values returns the flat value buffer.
func (b *KeyedBatch) Values() *tensor.RawTensor { return b.values }

// Weights returns the weight buffer or ErrNoWeights.
func (b *KeyedBatch) Weights() (*tensor.RawTensor, error) {
	if b.weights == nil {
		return nil, ErrNoWeights
	}
	return b.weights, nil
}

// WeightsOrNil returns the weight buffer or nil.
func (b *KeyedBatch) WeightsOrNil() *tensor.RawTensor { return b.weights }

// Lengths returns per-row lengths, deriving them from offsets on first use.
func (b *KeyedBatch) Lengths() *tensor.RawTensor {
	if b.lengths == nil {
		b.lengths = lengthsFromOffsets(b.offsets)
	}
	return b.lengths
}

// LengthsOrNil returns lengths only if supplied or already derived.
func (b *KeyedBatch) LengthsOrNil() *tensor.RawTensor { return b.lengths }

// Offsets returns per-row offsets, deriving them from lengths on first use.
func (b *KeyedBatch) Offsets() *tensor.RawTensor {
	if b.offsets == nil {
		b.offsets = offsetsFromLengths(b.kernels, b.lengths)
	}
	return b.offsets
}

// OffsetsOrNil returns offsets only if supplied or already derived.
func (b *KeyedBatch) OffsetsOrNil() *tensor.RawTensor { return b.offsets }

// Device returns the placement of the value buffer.
func (b *KeyedBatch) Device() tensor.Device { return b.values.Device() }

// Stride returns the rows per key and false when keys differ in batch size.
func (b *KeyedBatch) Stride() (int, bool) {
	return b.stride, b.stride != noStride
}

// StridePerKey returns the total rows of each key across ranks.
func (b *KeyedBatch) StridePerKey() []int { return b.stridePerKey }

// StridePerKeyPerRank returns the rows of each key on each rank.
func (b *KeyedBatch) StridePerKeyPerRank() [][]int { return b.stridePerKeyPerRank }

// VariableStridePerKey reports whether the batch was built from per-rank strides.
func (b *KeyedBatch) VariableStridePerKey() bool { return b.variableStridePerKey }

// InverseIndices returns the attached inverse indices or ErrNoInverseIndices.
func (b *KeyedBatch) InverseIndices() (*InverseIndices, error) {
	if b.inverseIndices == nil {
		return nil, ErrNoInverseIndices
	}
	return b.inverseIndices, nil
}

// InverseIndicesOrNil returns the attached inverse indices or nil.
func (b *KeyedBatch) InverseIndicesOrNil() *InverseIndices { return b.inverseIndices }

// KeyIndex returns the position of the first occurrence of key.
func (b *KeyedBatch) KeyIndex(key string) (int, bool) {
	if b.indexPerKey == nil {
		b.indexPerKey = newKeyIndex(b.keys)
	}
	return b.indexPerKey.lookup(key)
}

// LengthPerKey returns the number of values of each key.
func (b *KeyedBatch) LengthPerKey() []int {
	if b.lengthPerKey == nil {
		b.lengthPerKey = b.computeLengthPerKey()
	}
	return b.lengthPerKey
}

// LengthPerKeyOrNil returns LengthPerKey only if it is cached.
func (b *KeyedBatch) LengthPerKeyOrNil() []int { return b.lengthPerKey }

// OffsetPerKey returns element-space key boundaries: len(Keys())+1 entries.
func (b *KeyedBatch) OffsetPerKey() []int {
	if b.offsetPerKey == nil {
		b.offsetPerKey = cumsum(b.LengthPerKey())
	}
	return b.offsetPerKey
}

// OffsetPerKeyOrNil returns OffsetPerKey only if it is cached.
func (b *KeyedBatch) OffsetPerKeyOrNil() []int { return b.offsetPerKey }

// LengthsOffsetPerKey returns row-space key boundaries: len(Keys())+1 entries.
func (b *KeyedBatch) LengthsOffsetPerKey() []int {
	if b.lengthsOffsetPerKey == nil {
		b.lengthsOffsetPerKey = cumsum(b.stridePerKey)
	}
	return b.lengthsOffsetPerKey
}

func (b *KeyedBatch) computeLengthPerKey() []int {
	if len(b.keys) == 0 {
		return []int{}
	}
	// Offsets-only batches are summed without caching the derived lengths.
	lengths := b.lengths
	if lengths == nil {
		lengths = lengthsFromOffsets(b.offsets)
	}
	if lengths.Len() == 0 {
		return make([]int, len(b.keys))
	}

	if b.variableStridePerKey {
		return b.lengthPerKeyByBlocks(lengths)
	}
	out := make([]int, len(b.keys))
	ls := mustInts(lengths)
	for k := range out {
		out[k] = sumInts(ls[k*b.stride : (k+1)*b.stride])
	}
	return out
}

// lengthPerKeyByBlocks sums lengths over blocks of stridePerKey rows.
func (b *KeyedBatch) lengthPerKeyByBlocks(lengths *tensor.RawTensor) []int {
	if UseSegmentSumCSR(b.stridePerKey) {
		sums, err := b.kernels.SegmentSumCSR(lengths, cumsum(b.stridePerKey))
		if err != nil {
			panic(errors.NewAssertionErrorWithWrappedErrf(err, "segment sum"))
		}
		return mustInts(sums)
	}
	ls := mustInts(lengths)
	out := make([]int, len(b.stridePerKey))
	start := 0
	for k, s := range b.stridePerKey {
		out[k] = sumInts(ls[start : start+s])
		start += s
	}
	return out
}

// Sync computes and caches LengthPerKey and OffsetPerKey.
func (b *KeyedBatch) Sync() *KeyedBatch {
	b.LengthPerKey()
	b.OffsetPerKey()
	return b
}

// Unsync drops the cached LengthPerKey and OffsetPerKey.
func (b *KeyedBatch) Unsync() *KeyedBatch {
	b.lengthPerKey = nil
	b.offsetPerKey = nil
	return b
}

// strideOptions reproduces b's stride bookkeeping for a derived batch.
func (b *KeyedBatch) strideOptions(stridePerKeyPerRank [][]int) Option {
	if b.variableStridePerKey {
		return WithStridePerKeyPerRank(stridePerKeyPerRank)
	}
	return WithStride(b.stride)
}

// String renders each key's rows.
func (b *KeyedBatch) String() string {
	if len(b.keys) == 0 || (b.offsets == nil && b.lengths == nil) {
		return "KeyedBatch()\n"
	}
	offs := mustInts(b.Offsets())
	rowStarts := b.LengthsOffsetPerKey()

	parts := make([]string, len(b.keys))
	for i, k := range b.keys {
		lo, hi := rowStarts[i], rowStarts[i+1]
		if b.weights == nil {
			parts[i] = `    "` + k + `": ` + rowsString(b.values, offs, lo, hi)
			continue
		}
		parts[i] = `    "` + k + `": {` + "\n" +
			`        "values": ` + rowsString(b.values, offs, lo, hi) + ",\n" +
			`        "weights": ` + rowsString(b.weights, offs, lo, hi) + "\n    }"
	}
	return "KeyedBatch({\n" + strings.Join(parts, ",\n") + "\n})\n"
}
