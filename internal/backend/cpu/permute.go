package cpu

import (
	"github.com/cockroachdb/errors"

	"github.com/born-ml/ragged/internal/parallel"
	"github.com/born-ml/ragged/internal/tensor"
)

// PermuteBlocks gathers whole blocks of leading-dimension rows.
//
// Example:
//
//	data:        [a b | c | d e f]   blockSizes: [2, 1, 3]
//	permutation: [2, 0, 0]
//	result:      [d e f | a b | a b]
func (cpu *CPUBackend) PermuteBlocks(
	data *tensor.RawTensor, blockSizes, permutation []int, weights *tensor.RawTensor,
) (*tensor.RawTensor, *tensor.RawTensor, error) {
	starts, err := blockStarts(blockSizes, data.Len())
	if err != nil {
		return nil, nil, errors.Wrap(err, "permute_blocks")
	}
	for i, p := range permutation {
		if p < 0 || p >= len(blockSizes) {
			return nil, nil, errors.Newf("permute_blocks: permutation[%d] = %d out of range for %d blocks",
				i, p, len(blockSizes))
		}
	}
	if weights != nil && weights.Len() != data.Len() {
		return nil, nil, errors.Newf("permute_blocks: weights length %d does not match data length %d",
			weights.Len(), data.Len())
	}

	outSizes := make([]int, len(permutation))
	for i, p := range permutation {
		outSizes[i] = blockSizes[p]
	}

	out, err := cpu.gatherRows(data, starts, outSizes, permutation)
	if err != nil {
		return nil, nil, errors.Wrap(err, "permute_blocks")
	}
	if weights == nil {
		return out, nil, nil
	}
	outWeights, err := cpu.gatherRows(weights, starts, outSizes, permutation)
	if err != nil {
		return nil, nil, errors.Wrap(err, "permute_blocks: weights")
	}
	return out, outWeights, nil
}

// PermuteBlocks2D gathers rows of a (blocks, stride) lengths matrix together
// with the value spans each row addresses.
func (cpu *CPUBackend) PermuteBlocks2D(
	permutation []int, lengths, values, weights *tensor.RawTensor,
) (*tensor.RawTensor, *tensor.RawTensor, *tensor.RawTensor, error) {
	if lengths.Dim() != 2 {
		return nil, nil, nil, errors.Newf("permute_blocks_2d: lengths must be 2-D, got shape %v", lengths.Shape())
	}
	blocks, stride := lengths.Size(0), lengths.Size(1)
	ls, err := lengths.Ints()
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "permute_blocks_2d")
	}

	rowSums := make([]int, blocks)
	strides := make([]int, blocks)
	for b := 0; b < blocks; b++ {
		strides[b] = stride
		for _, l := range ls[b*stride : (b+1)*stride] {
			rowSums[b] += l
		}
	}

	flat, err := lengths.Contiguous().Reshape(tensor.Shape{blocks * stride})
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "permute_blocks_2d")
	}
	outLengths, _, err := cpu.PermuteBlocks(flat, strides, permutation, nil)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "permute_blocks_2d: lengths")
	}
	outValues, outWeights, err := cpu.PermuteBlocks(values, rowSums, permutation, weights)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "permute_blocks_2d: values")
	}
	return outLengths, outValues, outWeights, nil
}

// gatherRows copies block perm[i] (rows starts[perm[i]] onward, outSizes[i] rows)
// into consecutive output positions.
func (cpu *CPUBackend) gatherRows(src *tensor.RawTensor, starts, outSizes, perm []int) (*tensor.RawTensor, error) {
	total := 0
	outStarts := make([]int, len(outSizes))
	for i, n := range outSizes {
		outStarts[i] = total
		total += n
	}

	shape := src.Shape().Clone()
	if len(shape) == 0 {
		return nil, errors.New("scalar buffers have no rows")
	}
	shape[0] = total
	out, err := tensor.NewRaw(shape, src.DType(), src.Device())
	if err != nil {
		return nil, err
	}

	rowBytes := src.RowBytes()
	in := src.Contiguous().Data()
	dst := out.Data()
	parallel.ForRange(len(perm), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			from := starts[perm[i]] * rowBytes
			to := outStarts[i] * rowBytes
			n := outSizes[i] * rowBytes
			copy(dst[to:to+n], in[from:from+n])
		}
	}, cpu.par)
	return out, nil
}

// blockStarts validates that blockSizes tile n rows and returns each block's first row.
func blockStarts(blockSizes []int, n int) ([]int, error) {
	starts := make([]int, len(blockSizes))
	pos := 0
	for i, s := range blockSizes {
		if s < 0 {
			return nil, errors.Newf("block %d has negative size %d", i, s)
		}
		starts[i] = pos
		pos += s
	}
	if pos != n {
		return nil, errors.Newf("block sizes sum to %d, buffer has %d rows", pos, n)
	}
	return starts, nil
}
