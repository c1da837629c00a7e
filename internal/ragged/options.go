package ragged

import (
	"github.com/born-ml/ragged/internal/backend/cpu"
	"github.com/born-ml/ragged/internal/tensor"
)

// Option configures a Sequence or KeyedBatch constructor.
// Options that only make sense for keyed batches are ignored by NewSequence.
type Option func(*options)

type options struct {
	lengths *tensor.RawTensor
	offsets *tensor.RawTensor
	weights *tensor.RawTensor

	stride              int
	hasStride           bool
	stridePerKeyPerRank [][]int
	hasStridePerRank    bool

	inverseIndices *InverseIndices
	kernels        tensor.Kernels

	// Caches handed over by structural operations.
	lengthPerKey []int
	offsetPerKey []int
	indexPerKey  *keyIndex
	seqDict      map[string]*Sequence
}

// WithLengths sets per-row lengths.
func WithLengths(lengths *tensor.RawTensor) Option {
	return func(o *options) { o.lengths = lengths }
}

// WithOffsets sets per-row offsets (rows+1 entries, starting at 0).
func WithOffsets(offsets *tensor.RawTensor) Option {
	return func(o *options) { o.offsets = offsets }
}

// WithWeights attaches a weight buffer parallel to the values.
func WithWeights(weights *tensor.RawTensor) Option {
	return func(o *options) { o.weights = weights }
}

// WithStride sets the uniform number of rows per key.
func WithStride(stride int) Option {
	return func(o *options) {
		o.stride = stride
		o.hasStride = true
	}
}

// WithStridePerKeyPerRank sets per-key, per-rank row counts and switches the
// batch to variable stride per key.
func WithStridePerKeyPerRank(strides [][]int) Option {
	return func(o *options) {
		o.stridePerKeyPerRank = strides
		o.hasStridePerRank = true
	}
}

// WithInverseIndices attaches inverse indices for deduplicated inputs.
func WithInverseIndices(keys []string, indices *tensor.RawTensor) Option {
	return func(o *options) {
		o.inverseIndices = &InverseIndices{Keys: keys, Indices: indices}
	}
}

// WithKernels selects the numeric kernels. The pure Go CPU kernels are the default.
func WithKernels(k tensor.Kernels) Option {
	return func(o *options) { o.kernels = k }
}

func withLengthPerKey(lpk []int) Option {
	return func(o *options) { o.lengthPerKey = lpk }
}

func withOffsetPerKey(opk []int) Option {
	return func(o *options) { o.offsetPerKey = opk }
}

func withIndexPerKey(idx *keyIndex) Option {
	return func(o *options) { o.indexPerKey = idx }
}

func withSeqDict(d map[string]*Sequence) Option {
	return func(o *options) { o.seqDict = d }
}

var defaultKernels tensor.Kernels = cpu.New()

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.kernels == nil {
		o.kernels = defaultKernels
	}
	return o
}
