package ragged

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/born-ml/ragged/internal/tensor"
)

func f32(vals ...float32) *tensor.RawTensor {
	return tensor.From1D(vals, tensor.CPU)
}

func i32(vals ...int) *tensor.RawTensor {
	return tensor.MustFromInts(vals, tensor.Int32, tensor.CPU)
}

func ints(t *testing.T, r *tensor.RawTensor) []int {
	t.Helper()
	out, err := r.Ints()
	require.NoError(t, err)
	return out
}

// scenarioBatch is
//
//	#              0       1        2
//	# "F0"       [1,2]     []      [3]
//	# "F1"        [4]      [5]   [6,7,8]
func scenarioBatch(t *testing.T) *KeyedBatch {
	t.Helper()
	b, err := NewKeyedBatch([]string{"F0", "F1"}, f32(1, 2, 3, 4, 5, 6, 7, 8),
		WithLengths(i32(2, 0, 1, 1, 1, 3)))
	require.NoError(t, err)
	return b
}

func threeKeyBatch(t *testing.T) *KeyedBatch {
	t.Helper()
	b, err := NewKeyedBatch([]string{"A", "B", "C"}, f32(1, 2, 3, 4, 5, 6, 7),
		WithLengths(i32(1, 2, 0, 1, 2, 1)),
		WithWeights(f32(.1, .2, .3, .4, .5, .6, .7)))
	require.NoError(t, err)
	return b
}
