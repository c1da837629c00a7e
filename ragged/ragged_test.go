// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package ragged_test

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/ragged/backend/cpu"
	"github.com/born-ml/ragged/ragged"
	"github.com/born-ml/ragged/tensor"
)

func newBatch(t *testing.T) *ragged.KeyedBatch {
	t.Helper()
	values := tensor.From1D([]float32{1, 2, 3, 4, 5, 6, 7, 8, 9}, tensor.CPU)
	lengths, err := tensor.FromInts([]int{2, 0, 1, 1, 2, 3}, tensor.Int32, tensor.CPU)
	require.NoError(t, err)
	b, err := ragged.NewKeyedBatch([]string{"F0", "F1"}, values,
		ragged.WithLengths(lengths),
		ragged.WithKernels(cpu.NewWithConfig(cpu.Sequential())),
	)
	require.NoError(t, err)
	return b
}

func TestPublicKeyedBatch(t *testing.T) {
	b := newBatch(t)

	stride, ok := b.Stride()
	require.True(t, ok)
	assert.Equal(t, 3, stride)
	assert.Equal(t, []int{3, 6}, b.LengthPerKey())

	f1, err := b.Get("F1")
	require.NoError(t, err)
	offsets, err := f1.Offsets().Ints()
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 3, 6}, offsets)

	_, err = b.Get("F9")
	assert.True(t, errors.Is(err, ragged.ErrUnknownKey))
	assert.True(t, errors.Is(err, ragged.ErrMissingField))
}

func TestPublicSplitConcat(t *testing.T) {
	b := newBatch(t)
	parts, err := b.Split([]int{1, 1})
	require.NoError(t, err)
	require.Len(t, parts, 2)

	joined, err := ragged.Concat(parts)
	require.NoError(t, err)
	assert.True(t, ragged.BatchesEqual(b, joined))

	_, err = b.Split([]int{3})
	assert.True(t, errors.Is(err, ragged.ErrPartitionMismatch))
}

func TestPublicPermute(t *testing.T) {
	b := newBatch(t)
	p, err := b.Permute([]int{1, 0}, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"F1", "F0"}, p.Keys())
	values := p.Values().AsFloat32()
	assert.Equal(t, []float32{4, 5, 6, 7, 8, 9, 1, 2, 3}, values)
}

func TestPublicRegroup(t *testing.T) {
	values, err := tensor.FromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}, tensor.CPU)
	require.NoError(t, err)
	kd, err := ragged.NewKeyedDense([]string{"A", "B"}, []int{1, 2}, values, ragged.DefaultKeyDim)
	require.NoError(t, err)

	out, err := ragged.RegroupAsDict([]*ragged.KeyedDense{kd}, [][]string{{"B"}}, []string{"b"})
	require.NoError(t, err)
	got := out["b"].Contiguous().AsFloat32()
	assert.Equal(t, []float32{2, 3, 5, 6}, got)
}

func TestPublicExchange(t *testing.T) {
	w0, w1 := newBatch(t), newBatch(t)
	out, err := ragged.Exchange(context.Background(), []*ragged.KeyedBatch{w0, w1},
		ragged.ExchangeOptions{KeySplits: []int{1, 1}})
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.Equal(t, []string{"F0"}, out[0].Keys())
	stride, ok := out[0].Stride()
	require.True(t, ok)
	assert.Equal(t, 6, stride)
	assert.Equal(t, []float32{1, 2, 3, 1, 2, 3}, out[0].Values().AsFloat32())

	assert.Equal(t, []int{0, 2, 1, 3}, ragged.Recat(2, 2, 1, nil))
}
