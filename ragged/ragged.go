// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package ragged

import (
	"github.com/born-ml/ragged/internal/ragged"
	"github.com/born-ml/ragged/tensor"
)

// Sequence is a flat value buffer split into variable-length rows.
//
// Rows are addressed by lengths or offsets; whichever is missing is derived
// on first use and cached.
type Sequence = ragged.Sequence

// KeyedBatch is a key-major collection of Sequences sharing one value buffer.
//
// Rows for key i occupy the i-th block of the lengths buffer. Every key has
// the same number of rows (the stride) unless per-rank strides were supplied.
type KeyedBatch = ragged.KeyedBatch

// KeyedDense is a dense tensor whose keyDim is partitioned into named spans.
type KeyedDense = ragged.KeyedDense

// InverseIndices maps deduplicated rows back to their original batch positions.
type InverseIndices = ragged.InverseIndices

// MaxRowLength asks ToPaddedDense for a width equal to the longest row.
const MaxRowLength = ragged.MaxRowLength

// DefaultKeyDim is the key dimension used by most dense batches.
const DefaultKeyDim = ragged.DefaultKeyDim

// Wire labels, in the order DistTensors emits them.
const (
	LabelLengths = ragged.LabelLengths
	LabelValues  = ragged.LabelValues
	LabelStrides = ragged.LabelStrides
	LabelWeights = ragged.LabelWeights
)

// NewSequence builds a sequence over values. WithLengths or WithOffsets is required.
//
// Example:
//
//	values := tensor.From1D([]float32{1, 2, 3}, tensor.CPU)
//	lengths, _ := tensor.FromInts([]int{2, 0, 1}, tensor.Int32, tensor.CPU)
//	seq, err := ragged.NewSequence(values, ragged.WithLengths(lengths))
func NewSequence(values *tensor.RawTensor, opts ...Option) (*Sequence, error) {
	return ragged.NewSequence(values, opts...)
}

// EmptySequence returns a sequence with no rows and zero-length typed buffers.
func EmptySequence(weighted bool, device tensor.Device, valuesDType, weightsDType, lengthsDType tensor.DataType) *Sequence {
	return ragged.EmptySequence(weighted, device, valuesDType, weightsDType, lengthsDType)
}

// SequenceFromDense builds a sequence whose rows are the given tensors.
func SequenceFromDense(rows, weightRows []*tensor.RawTensor, opts ...Option) (*Sequence, error) {
	return ragged.SequenceFromDense(rows, weightRows, opts...)
}

// SequenceFromDenseLengths keeps the first lengths[i] entries of each padded row.
func SequenceFromDenseLengths(dense, lengths, weightsDense *tensor.RawTensor, opts ...Option) (*Sequence, error) {
	return ragged.SequenceFromDenseLengths(dense, lengths, weightsDense, opts...)
}

// NewKeyedBatch builds a keyed batch over values.
//
// Example:
//
//	b, err := ragged.NewKeyedBatch([]string{"F0", "F1"}, values,
//	    ragged.WithLengths(lengths), ragged.WithStride(3))
func NewKeyedBatch(keys []string, values *tensor.RawTensor, opts ...Option) (*KeyedBatch, error) {
	return ragged.NewKeyedBatch(keys, values, opts...)
}

// FromOffsetsSync builds a batch from offsets and derives every cache eagerly.
func FromOffsetsSync(keys []string, values, offsets *tensor.RawTensor, opts ...Option) (*KeyedBatch, error) {
	return ragged.FromOffsetsSync(keys, values, offsets, opts...)
}

// FromLengthsSync builds a batch from lengths and derives every cache eagerly.
func FromLengthsSync(keys []string, values, lengths *tensor.RawTensor, opts ...Option) (*KeyedBatch, error) {
	return ragged.FromLengthsSync(keys, values, lengths, opts...)
}

// FromSequences packs per-key sequences into one batch in keys order.
func FromSequences(keys []string, seqs map[string]*Sequence, opts ...Option) (*KeyedBatch, error) {
	return ragged.FromSequences(keys, seqs, opts...)
}

// EmptyKeyedBatch returns a batch with no keys and zero-length typed buffers.
func EmptyKeyedBatch(weighted bool, device tensor.Device, valuesDType, weightsDType, lengthsDType tensor.DataType) *KeyedBatch {
	return ragged.EmptyKeyedBatch(weighted, device, valuesDType, weightsDType, lengthsDType)
}

// EmptyLike returns a key-less batch sharing b's dtypes, device and stride mode.
func EmptyLike(b *KeyedBatch) *KeyedBatch {
	return ragged.EmptyLike(b)
}

// Concat appends the keys of each batch in order.
func Concat(batches []*KeyedBatch) (*KeyedBatch, error) {
	return ragged.Concat(batches)
}

// DistInit rebuilds a batch from the buffers collected from numWorkers senders.
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
	return ragged.DistInit(keys, tensors, variableStridePerKey, numWorkers, recat, stridePerRank, stagger, opts...)
}

// NewKeyedDense partitions values along keyDim by lengthPerKey.
func NewKeyedDense(keys []string, lengthPerKey []int, values *tensor.RawTensor, keyDim int, opts ...Option) (*KeyedDense, error) {
	return ragged.NewKeyedDense(keys, lengthPerKey, values, keyDim, opts...)
}

// KeyedDenseFromTensorList concatenates per-key tensors along catDim.
func KeyedDenseFromTensorList(keys []string, tensors []*tensor.RawTensor, keyDim, catDim int, opts ...Option) (*KeyedDense, error) {
	return ragged.KeyedDenseFromTensorList(keys, tensors, keyDim, catDim, opts...)
}

// Regroup gathers the spans named by each group into one tensor per group.
func Regroup(batches []*KeyedDense, groups [][]string) ([]*tensor.RawTensor, error) {
	return ragged.Regroup(batches, groups)
}

// RegroupAsDict is Regroup with each result stored under names[i].
func RegroupAsDict(batches []*KeyedDense, groups [][]string, names []string) (map[string]*tensor.RawTensor, error) {
	return ragged.RegroupAsDict(batches, groups, names)
}

// SequencesEqual reports whether two sequences hold the same rows.
func SequencesEqual(a, b *Sequence) bool {
	return ragged.SequencesEqual(a, b)
}

// BatchesEqual reports whether two batches hold the same keys and rows.
func BatchesEqual(a, b *KeyedBatch) bool {
	return ragged.BatchesEqual(a, b)
}

// UseSegmentSumCSR reports whether per-key length sums should use the bulk kernel.
func UseSegmentSumCSR(stridePerKey []int) bool {
	return ragged.UseSegmentSumCSR(stridePerKey)
}
