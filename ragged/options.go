// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package ragged

import (
	"github.com/born-ml/ragged/internal/ragged"
	"github.com/born-ml/ragged/tensor"
)

// Option configures a container at construction.
type Option = ragged.Option

// WithLengths supplies per-row lengths.
func WithLengths(lengths *tensor.RawTensor) Option { return ragged.WithLengths(lengths) }

// WithOffsets supplies row offsets (len(rows)+1 entries).
func WithOffsets(offsets *tensor.RawTensor) Option { return ragged.WithOffsets(offsets) }

// WithWeights attaches per-value weights.
func WithWeights(weights *tensor.RawTensor) Option { return ragged.WithWeights(weights) }

// WithStride fixes the number of rows per key.
func WithStride(stride int) Option { return ragged.WithStride(stride) }

// WithStridePerKeyPerRank supplies per-key, per-rank row counts.
// The batch is then in variable-stride mode.
func WithStridePerKeyPerRank(strides [][]int) Option {
	return ragged.WithStridePerKeyPerRank(strides)
}

// WithInverseIndices attaches deduplication inverse indices.
func WithInverseIndices(keys []string, indices *tensor.RawTensor) Option {
	return ragged.WithInverseIndices(keys, indices)
}

// WithKernels selects the numeric kernels.
func WithKernels(k tensor.Kernels) Option { return ragged.WithKernels(k) }
