package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/ragged/internal/parallel"
	"github.com/born-ml/ragged/internal/tensor"
)

func ints(t *testing.T, r *tensor.RawTensor) []int {
	t.Helper()
	out, err := r.Ints()
	require.NoError(t, err)
	return out
}

// TestCPUBackend_New tests backend creation.
func TestCPUBackend_New(t *testing.T) {
	backend := New()
	require.NotNil(t, backend)
	assert.Equal(t, "CPU", backend.Name())
	assert.Equal(t, tensor.CPU, backend.Device())
}

func TestCompleteCumsum(t *testing.T) {
	backend := New()

	tests := []struct {
		name    string
		lengths []int
		want    []int
	}{
		{"Empty", nil, []int{0}},
		{"Single", []int{4}, []int{0, 4}},
		{"WithZeros", []int{2, 0, 1, 1, 1, 3}, []int{0, 2, 2, 3, 4, 5, 8}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := backend.CompleteCumsum(tensor.MustFromInts(tt.lengths, tensor.Int32, tensor.CPU))
			require.NoError(t, err)
			assert.Equal(t, tensor.Int32, out.DType())
			assert.Equal(t, tt.want, ints(t, out))
		})
	}

	_, err := backend.CompleteCumsum(tensor.From1D([]float32{1}, tensor.CPU))
	assert.Error(t, err)
}

func TestSegmentSumCSR(t *testing.T) {
	backend := NewWithConfig(parallel.Sequential())

	out, err := backend.SegmentSumCSR(tensor.MustFromInts([]int{2, 0, 1, 1, 1, 3}, tensor.Int64, tensor.CPU), []int{0, 3, 6})
	require.NoError(t, err)
	assert.Equal(t, []int{3, 5}, ints(t, out))

	f, err := backend.SegmentSumCSR(tensor.From1D([]float32{0.5, 0.25, 1}, tensor.CPU), []int{0, 2, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, []float32{0.75, 0, 1}, f.AsFloat32())

	_, err = backend.SegmentSumCSR(tensor.From1D([]int32{1}, tensor.CPU), []int{0, 2})
	assert.Error(t, err, "window past the end of the buffer")
}

func TestPermuteBlocks(t *testing.T) {
	backend := New()
	data := tensor.From1D([]float32{1, 2, 3, 4, 5, 6}, tensor.CPU)
	weights := tensor.From1D([]float64{10, 20, 30, 40, 50, 60}, tensor.CPU)

	t.Run("Reorder", func(t *testing.T) {
		out, w, err := backend.PermuteBlocks(data, []int{2, 1, 3}, []int{2, 0, 1}, weights)
		require.NoError(t, err)
		assert.Equal(t, []float32{4, 5, 6, 1, 2, 3}, out.AsFloat32())
		assert.Equal(t, []float64{40, 50, 60, 10, 20, 30}, w.AsFloat64())
	})

	t.Run("DuplicatesAndOmissions", func(t *testing.T) {
		out, w, err := backend.PermuteBlocks(data, []int{2, 1, 3}, []int{0, 0}, nil)
		require.NoError(t, err)
		assert.Nil(t, w)
		assert.Equal(t, []float32{1, 2, 1, 2}, out.AsFloat32())
	})

	t.Run("Empty", func(t *testing.T) {
		out, _, err := backend.PermuteBlocks(data, []int{2, 1, 3}, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, 0, out.Len())
		assert.Equal(t, tensor.Float32, out.DType())
	})

	t.Run("BadSizes", func(t *testing.T) {
		_, _, err := backend.PermuteBlocks(data, []int{2, 2}, []int{0}, nil)
		assert.Error(t, err)
		_, _, err = backend.PermuteBlocks(data, []int{2, 1, 3}, []int{3}, nil)
		assert.Error(t, err)
	})
}

func TestPermuteBlocks2D(t *testing.T) {
	backend := New()

	// Two keys with stride 3: F0 rows [[1,2],[],[3]], F1 rows [[4],[5],[6,7,8]].
	lengths, err := tensor.FromSlice([]int32{2, 0, 1, 1, 1, 3}, tensor.Shape{2, 3}, tensor.CPU)
	require.NoError(t, err)
	values := tensor.From1D([]int64{1, 2, 3, 4, 5, 6, 7, 8}, tensor.CPU)

	l, v, w, err := backend.PermuteBlocks2D([]int{1, 0}, lengths, values, nil)
	require.NoError(t, err)
	assert.Nil(t, w)
	assert.Equal(t, []int{1, 1, 3, 2, 0, 1}, ints(t, l))
	assert.Equal(t, []int64{4, 5, 6, 7, 8, 1, 2, 3}, v.AsInt64())
}

func TestJaggedToPaddedDense(t *testing.T) {
	backend := New()
	values := tensor.From1D([]float32{1, 2, 3, 4, 5, 6, 7, 8}, tensor.CPU)
	offsets := tensor.MustFromInts([]int{0, 2, 2, 3}, tensor.Int32, tensor.CPU)

	dense, err := backend.JaggedToPaddedDense(values, offsets, 2, -1)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{3, 2}, dense.Shape())
	assert.Equal(t, []float32{1, 2, -1, -1, 3, -1}, dense.AsFloat32())

	truncated, err := backend.JaggedToPaddedDense(values, offsets, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0, 3}, truncated.AsFloat32())

	back, err := backend.PaddedDenseToJagged(dense, tensor.MustFromInts([]int{2, 0, 1}, tensor.Int32, tensor.CPU))
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3}, back.AsFloat32())
}

func TestPaddedDenseToJagged_LongLengths(t *testing.T) {
	backend := New()
	dense, err := tensor.FromSlice([]int32{1, 2, 3, 4}, tensor.Shape{2, 2}, tensor.CPU)
	require.NoError(t, err)

	out, err := backend.PaddedDenseToJagged(dense, tensor.MustFromInts([]int{5, 1}, tensor.Int64, tensor.CPU))
	require.NoError(t, err)
	assert.Equal(t, []int32{1, 2, 3}, out.AsInt32())

	_, err = backend.PaddedDenseToJagged(dense, tensor.MustFromInts([]int{1}, tensor.Int64, tensor.CPU))
	assert.Error(t, err)
}

func TestCat(t *testing.T) {
	backend := New()
	a, err := tensor.FromSlice([]float32{1, 2, 3, 4}, tensor.Shape{2, 2}, tensor.CPU)
	require.NoError(t, err)
	b, err := tensor.FromSlice([]float32{5, 6}, tensor.Shape{2, 1}, tensor.CPU)
	require.NoError(t, err)

	out, err := backend.Cat([]*tensor.RawTensor{a, b}, 1)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 3}, out.Shape())
	assert.Equal(t, []float32{1, 2, 5, 3, 4, 6}, out.AsFloat32())

	col, err := a.Narrow(1, 1, 1)
	require.NoError(t, err)
	out, err = backend.Cat([]*tensor.RawTensor{col, b}, -1)
	require.NoError(t, err)
	assert.Equal(t, []float32{2, 5, 4, 6}, out.AsFloat32())

	rows, err := backend.Cat([]*tensor.RawTensor{a, a}, 0)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{4, 2}, rows.Shape())

	_, err = backend.Cat([]*tensor.RawTensor{a, b}, 0)
	assert.Error(t, err)
}

func TestDeviceHooks(t *testing.T) {
	backend := New()
	x := tensor.From1D([]int32{1, 2}, tensor.CPU)

	assert.Same(t, x, backend.Move(x, tensor.CPU))
	moved := backend.Move(x, tensor.CUDA)
	assert.Equal(t, tensor.CUDA, moved.Device())
	assert.Equal(t, []int32{1, 2}, moved.AsInt32())

	pinned := backend.Pin(x)
	assert.True(t, pinned.Pinned())
	assert.Same(t, pinned, backend.Pin(pinned))

	s := tensor.NewStream(0)
	backend.RecordStream(x, s)
	assert.Equal(t, 1, s.Pending())
	s.Synchronize()
	assert.True(t, x.IsUnique())
}

func BenchmarkPermuteBlocks(b *testing.B) {
	const blocks, blockLen = 1024, 64
	data := make([]float32, blocks*blockLen)
	sizes := make([]int, blocks)
	perm := make([]int, blocks)
	for i := range sizes {
		sizes[i] = blockLen
		perm[i] = blocks - 1 - i
	}
	raw := tensor.From1D(data, tensor.CPU)

	b.Run("parallel", func(b *testing.B) {
		backend := New()
		for i := 0; i < b.N; i++ {
			_, _, _ = backend.PermuteBlocks(raw, sizes, perm, nil)
		}
	})

	b.Run("sequential", func(b *testing.B) {
		backend := NewWithConfig(parallel.Sequential())
		for i := 0; i < b.N; i++ {
			_, _, _ = backend.PermuteBlocks(raw, sizes, perm, nil)
		}
	})
}
