package ragged

import (
	"github.com/cockroachdb/errors"

	"github.com/born-ml/ragged/internal/tensor"
)

// Wire labels, in the order DistTensors emits them.
const (
	LabelLengths = "lengths"
	LabelValues  = "values"
	LabelStrides = "strides"
	LabelWeights = "weights"
)

// DistLabels names the buffers DistTensors returns, in order.
func (b *KeyedBatch) DistLabels() []string {
	labels := []string{LabelLengths, LabelValues}
	if b.variableStridePerKey {
		labels = append(labels, LabelStrides)
	}
	if b.weights != nil {
		labels = append(labels, LabelWeights)
	}
	return labels
}

// DistSplits returns, for each buffer of DistLabels, the size each contiguous
// key group contributes: rows, then values, then keys (variable stride only),
// then weights.
func (b *KeyedBatch) DistSplits(keySplits []int) [][]int {
	batchSizePerSplit := sumBySplits(b.stridePerKey, keySplits)
	lengthPerSplit := sumBySplits(b.LengthPerKey(), keySplits)
	splits := [][]int{batchSizePerSplit, lengthPerSplit}
	if b.variableStridePerKey {
		splits = append(splits, keySplits)
	}
	if b.weights != nil {
		splits = append(splits, lengthPerSplit)
	}
	return splits
}

// DistTensors returns the buffers named by DistLabels.
func (b *KeyedBatch) DistTensors() []*tensor.RawTensor {
	tensors := []*tensor.RawTensor{b.Lengths(), b.values}
	if b.variableStridePerKey {
		tensors = append(tensors, tensor.MustFromInts(b.stridePerKey, tensor.Int64, b.Device()))
	}
	if b.weights != nil {
		tensors = append(tensors, b.weights)
	}
	return tensors
}

// DistInit rebuilds a batch from buffers gathered from numWorkers ranks.
//
// tensors follows DistLabels order, each buffer the rank-major concatenation of
// what every sender emitted. recat, when non-empty, restores key-major order.
// In variable-stride mode the strides buffer holds numWorkers x len(keys)
// counts and recat permutes per-rank key blocks; otherwise stridePerRank gives
// each rank's batch size and recat permutes (key, rank) blocks, or single rows
// when ranks differ in batch size. stagger > 1 reinterleaves per-rank strides for
// two-level topologies. The result is synced.
func DistInit(
	keys []string,
	tensors []*tensor.RawTensor,
	variableStridePerKey bool,
	numWorkers int,
	recat []int,
	stridePerRank []int,
	stagger int,
	opts ...Option,
) (*KeyedBatch, error) {
	if len(tensors) < 2 || len(tensors) > 4 {
		return nil, errors.Wrapf(ErrDistTensorCount, "got %d", len(tensors))
	}
	o := buildOptions(opts)
	lengths, values := tensors[0], tensors[1]
	var weights *tensor.RawTensor
	if (variableStridePerKey && len(tensors) == 4) || (!variableStridePerKey && len(tensors) == 3) {
		weights = tensors[len(tensors)-1]
	}

	if variableStridePerKey {
		if len(tensors) < 3 {
			return nil, errors.Wrap(ErrDistTensorCount, "variable stride requires a strides buffer")
		}
		return distInitVariable(o.kernels, keys, lengths, values, weights, tensors[2], numWorkers, recat, stagger)
	}
	if len(tensors) == 4 {
		return nil, errors.Wrap(ErrDistTensorCount, "uniform stride carries no strides buffer")
	}
	return distInitUniform(o.kernels, keys, lengths, values, weights, recat, stridePerRank)
}

func distInitVariable(
	k tensor.Kernels,
	keys []string,
	lengths, values, weights, strides *tensor.RawTensor,
	numWorkers int,
	recat []int,
	stagger int,
) (*KeyedBatch, error) {
	strideCounts, err := strides.Ints()
	if err != nil {
		return nil, errors.Wrapf(ErrNonIntegerAddressing, "strides: %v", err)
	}
	if len(strideCounts) != numWorkers*len(keys) {
		return nil, errors.Wrapf(ErrShapeMismatch, "%d strides for %d workers and %d keys",
			len(strideCounts), numWorkers, len(keys))
	}

	// strides arrives rank-major; transpose to key-major.
	spkpr := make([][]int, len(keys))
	for i := range keys {
		spkpr[i] = make([]int, numWorkers)
		for r := 0; r < numWorkers; r++ {
			spkpr[i][r] = strideCounts[r*len(keys)+i]
		}
	}

	if len(recat) > 0 {
		ls, err := lengths.Ints()
		if err != nil {
			return nil, errors.Wrapf(ErrNonIntegerAddressing, "lengths: %v", err)
		}
		stridesCumsum := cumsum(strideCounts)
		if last := stridesCumsum[len(stridesCumsum)-1]; last != len(ls) {
			return nil, errors.Wrapf(ErrShapeMismatch, "strides cover %d rows, lengths has %d", last, len(ls))
		}
		cumsumLengths := cumsum(ls)
		segmentLengths := make([]int, len(strideCounts))
		for i := range segmentLengths {
			segmentLengths[i] = cumsumLengths[stridesCumsum[i+1]] - cumsumLengths[stridesCumsum[i]]
		}

		if lengths, _, err = k.PermuteBlocks(lengths, strideCounts, recat, nil); err != nil {
			return nil, errors.Wrap(err, "recat lengths")
		}
		if values, weights, err = k.PermuteBlocks(values, segmentLengths, recat, weights); err != nil {
			return nil, errors.Wrap(err, "recat values")
		}
	}

	if len(spkpr) == 0 {
		spkpr = make([][]int, len(keys))
		for i := range spkpr {
			spkpr[i] = []int{0}
		}
	}
	if stagger > 1 {
		spkpr = staggerStrides(spkpr, numWorkers/stagger)
	}

	b, err := NewKeyedBatch(keys, values,
		WithLengths(lengths), WithWeights(weights), WithStridePerKeyPerRank(spkpr), WithKernels(k))
	if err != nil {
		return nil, err
	}
	return b.Sync(), nil
}

// staggerStrides reorders each key's per-rank strides to s[0::l], s[1::l], ...
// where l is the local world size.
func staggerStrides(spkpr [][]int, localWorldSize int) [][]int {
	if localWorldSize <= 0 {
		return spkpr
	}
	out := make([][]int, len(spkpr))
	for i, s := range spkpr {
		staggered := make([]int, 0, len(s))
		for j := 0; j < localWorldSize; j++ {
			for r := j; r < len(s); r += localWorldSize {
				staggered = append(staggered, s[r])
			}
		}
		out[i] = staggered
	}
	return out
}

func distInitUniform(
	k tensor.Kernels,
	keys []string,
	lengths, values, weights *tensor.RawTensor,
	recat []int,
	stridePerRank []int,
) (*KeyedBatch, error) {
	if stridePerRank == nil {
		return nil, errors.Wrap(ErrDistTensorCount, "uniform stride requires stride per rank")
	}

	if len(recat) > 0 {
		stride := 0
		if len(stridePerRank) > 0 {
			stride = stridePerRank[0]
		}
		var err error
		if allEqual(stridePerRank) && stride > 0 {
			grid, rerr := lengths.Contiguous().Reshape(tensor.Shape{-1, stride})
			if rerr != nil {
				return nil, errors.Wrapf(ErrShapeMismatch, "lengths do not tile stride %d: %v", stride, rerr)
			}
			lengths, values, weights, err = k.PermuteBlocks2D(recat, grid, values, weights)
		} else {
			ls, lerr := lengths.Ints()
			if lerr != nil {
				return nil, errors.Wrapf(ErrNonIntegerAddressing, "lengths: %v", lerr)
			}
			ones := make([]int, len(ls))
			for i := range ones {
				ones[i] = 1
			}
			flat := lengths.Contiguous().MustReshape(tensor.Shape{-1})
			if lengths, _, err = k.PermuteBlocks(flat, ones, recat, nil); err == nil {
				values, weights, err = k.PermuteBlocks(values, ls, recat, weights)
			}
		}
		if err != nil {
			return nil, errors.Wrap(err, "recat")
		}
	}

	b, err := NewKeyedBatch(keys, values,
		WithLengths(lengths), WithWeights(weights), WithStride(sumInts(stridePerRank)), WithKernels(k))
	if err != nil {
		return nil, err
	}
	return b.Sync(), nil
}
