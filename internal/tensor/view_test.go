package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNarrow(t *testing.T) {
	x, err := FromSlice([]float32{1, 2, 3, 4, 5, 6}, Shape{2, 3}, CPU)
	require.NoError(t, err)

	t.Run("LeadingDim", func(t *testing.T) {
		row, err := x.Narrow(0, 1, 1)
		require.NoError(t, err)
		assert.True(t, row.IsContiguous())
		assert.Equal(t, []float32{4, 5, 6}, row.AsFloat32())
	})

	t.Run("InnerDim", func(t *testing.T) {
		col, err := x.Narrow(1, 1, 2)
		require.NoError(t, err)
		assert.False(t, col.IsContiguous())
		assert.Equal(t, Shape{2, 2}, col.Shape())
		assert.Equal(t, []float64{2, 3, 5, 6}, col.Float64s())
	})

	t.Run("NegativeDim", func(t *testing.T) {
		col, err := x.Narrow(-1, 2, 1)
		require.NoError(t, err)
		assert.Equal(t, []float64{3, 6}, col.Float64s())
	})

	t.Run("Empty", func(t *testing.T) {
		v, err := x.Narrow(1, 3, 0)
		require.NoError(t, err)
		assert.Equal(t, 0, v.NumElements())
	})

	t.Run("OutOfRange", func(t *testing.T) {
		_, err := x.Narrow(1, 2, 2)
		assert.Error(t, err)
		_, err = x.Narrow(2, 0, 1)
		assert.Error(t, err)
	})
}

func TestSlice(t *testing.T) {
	x := From1D([]int64{10, 20, 30, 40}, CPU)
	assert.Equal(t, []int64{20, 30}, x.Slice(1, 3).AsInt64())
	assert.Empty(t, x.Slice(4, 4).AsInt64())
	assert.Panics(t, func() { x.Slice(3, 5) })
}

func TestReshape(t *testing.T) {
	x := From1D([]int32{1, 2, 3, 4, 5, 6}, CPU)

	y, err := x.Reshape(Shape{-1, 3})
	require.NoError(t, err)
	assert.Equal(t, Shape{2, 3}, y.Shape())

	_, err = x.Reshape(Shape{4, -1})
	assert.Error(t, err)

	_, err = x.Reshape(Shape{-1, -1})
	assert.Error(t, err)

	m, err := FromSlice([]int32{1, 2, 3, 4}, Shape{2, 2}, CPU)
	require.NoError(t, err)
	col, err := m.Narrow(1, 0, 1)
	require.NoError(t, err)
	_, err = col.Reshape(Shape{2})
	assert.Error(t, err, "strided views cannot be reshaped")
	assert.Equal(t, []int32{1, 3}, col.Contiguous().MustReshape(Shape{2}).AsInt32())
}

func TestConcat(t *testing.T) {
	a := From1D([]float32{1, 2}, CPU)
	b := From1D([]float32{}, CPU)
	c := From1D([]float32{3}, CPU)

	out, err := Concat([]*RawTensor{a, b, c})
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3}, out.AsFloat32())

	_, err = Concat([]*RawTensor{a, From1D([]int32{1}, CPU)})
	assert.Error(t, err)

	_, err = Concat(nil)
	assert.Error(t, err)
}

func TestFormat(t *testing.T) {
	m, err := FromSlice([]int32{1, 2, 3, 4}, Shape{2, 2}, CPU)
	require.NoError(t, err)
	assert.Equal(t, "[[1 2] [3 4]]", m.Format())
	assert.Equal(t, "[1 2]", From1D([]int64{1, 2}, CPU).Format())
}
