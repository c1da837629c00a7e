package shuffle

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/ragged/internal/ragged"
	"github.com/born-ml/ragged/internal/tensor"
)

func f32(vals ...float32) *tensor.RawTensor {
	return tensor.From1D(vals, tensor.CPU)
}

func i32(vals ...int) *tensor.RawTensor {
	return tensor.MustFromInts(vals, tensor.Int32, tensor.CPU)
}

func batch(t *testing.T, keys []string, values, lengths *tensor.RawTensor, opts ...ragged.Option) *ragged.KeyedBatch {
	t.Helper()
	b, err := ragged.NewKeyedBatch(keys, values, append([]ragged.Option{ragged.WithLengths(lengths)}, opts...)...)
	require.NoError(t, err)
	return b
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	metric := &dto.Metric{}
	require.NoError(t, c.Write(metric))
	return metric.GetCounter().GetValue()
}

func TestExchangeUniform(t *testing.T) {
	keys := []string{"A", "B", "C"}
	// worker 0: A [[1]], B [[2,3]], C [[]]
	// worker 1: A [[4,5]], B [[]], C [[6]]
	w0 := batch(t, keys, f32(1, 2, 3), i32(1, 2, 0))
	w1 := batch(t, keys, f32(4, 5, 6), i32(2, 0, 1))

	metrics := NewMetrics()
	reg := prometheus.NewRegistry()
	require.NoError(t, metrics.Register(reg))

	out, err := Exchange(context.Background(), []*ragged.KeyedBatch{w0, w1},
		Options{KeySplits: []int{2, 1}, Metrics: metrics})
	require.NoError(t, err)
	require.Len(t, out, 2)

	want0 := batch(t, []string{"A", "B"}, f32(1, 4, 5, 2, 3), i32(1, 2, 2, 0))
	want1 := batch(t, []string{"C"}, f32(6), i32(0, 1))
	assert.True(t, ragged.BatchesEqual(want0, out[0]), "got\n%s", out[0])
	assert.True(t, ragged.BatchesEqual(want1, out[1]), "got\n%s", out[1])

	assert.Equal(t, 1.0, counterValue(t, metrics.Exchanges))
	assert.Equal(t, 6.0, counterValue(t, metrics.Elements.WithLabelValues(ragged.LabelValues)))
	assert.Equal(t, 6.0, counterValue(t, metrics.Elements.WithLabelValues(ragged.LabelLengths)))
}

func TestExchangeUnevenBatchSizes(t *testing.T) {
	keys := []string{"F0", "F1"}
	// worker 0 has one row per key, worker 1 has two.
	w0 := batch(t, keys, f32(1, 2), i32(1, 1))
	w1 := batch(t, keys, f32(3, 4, 5, 6), i32(1, 2, 1, 0))

	out, err := Exchange(context.Background(), []*ragged.KeyedBatch{w0, w1},
		Options{KeySplits: []int{2, 0}, Logger: DefaultLogger{}})
	require.NoError(t, err)

	want := batch(t, keys, f32(1, 3, 4, 5, 2, 6), i32(1, 1, 2, 1, 1, 0))
	assert.True(t, ragged.BatchesEqual(want, out[0]), "got\n%s", out[0])
	assert.Empty(t, out[1].Keys())
}

func TestExchangeWeighted(t *testing.T) {
	keys := []string{"A", "B"}
	w0 := batch(t, keys, f32(1, 2), i32(1, 1), ragged.WithWeights(f32(.5, .25)))
	w1 := batch(t, keys, f32(3), i32(0, 1), ragged.WithWeights(f32(2)))

	out, err := Exchange(context.Background(), []*ragged.KeyedBatch{w0, w1}, Options{KeySplits: []int{1, 1}})
	require.NoError(t, err)

	wantA := batch(t, []string{"A"}, f32(1), i32(1, 0), ragged.WithWeights(f32(.5)))
	wantB := batch(t, []string{"B"}, f32(2, 3), i32(1, 1), ragged.WithWeights(f32(.25, 2)))
	assert.True(t, ragged.BatchesEqual(wantA, out[0]), "got\n%s", out[0])
	assert.True(t, ragged.BatchesEqual(wantB, out[1]), "got\n%s", out[1])
}

func TestExchangeVariableStride(t *testing.T) {
	keys := []string{"A", "B"}
	// worker 0: A [[1]], B [[2],[3]]; worker 1: A [[4],[5,6]], B [[]]
	w0 := batch(t, keys, f32(1, 2, 3), i32(1, 1, 1), ragged.WithStridePerKeyPerRank([][]int{{1}, {2}}))
	w1 := batch(t, keys, f32(4, 5, 6), i32(1, 2, 0), ragged.WithStridePerKeyPerRank([][]int{{2}, {1}}))

	out, err := Exchange(context.Background(), []*ragged.KeyedBatch{w0, w1}, Options{KeySplits: []int{1, 1}})
	require.NoError(t, err)

	wantA := batch(t, []string{"A"}, f32(1, 4, 5, 6), i32(1, 1, 2),
		ragged.WithStridePerKeyPerRank([][]int{{1, 2}}))
	wantB := batch(t, []string{"B"}, f32(2, 3), i32(1, 1, 0),
		ragged.WithStridePerKeyPerRank([][]int{{2, 1}}))
	assert.True(t, ragged.BatchesEqual(wantA, out[0]), "got\n%s", out[0])
	assert.True(t, ragged.BatchesEqual(wantB, out[1]), "got\n%s", out[1])
	assert.Equal(t, [][]int{{1, 2}}, out[0].StridePerKeyPerRank())
}

func TestExchangeSingleWorker(t *testing.T) {
	b := batch(t, []string{"A", "B"}, f32(1, 2, 3), i32(2, 1))
	out, err := Exchange(context.Background(), []*ragged.KeyedBatch{b}, Options{KeySplits: []int{2}})
	require.NoError(t, err)
	assert.True(t, ragged.BatchesEqual(b, out[0]))
}

func TestExchangeSharedBatch(t *testing.T) {
	// One offsets-only batch fills every worker slot, as the CLI does with a
	// single input file. A: [[1],[2,3]], B: [[],[4]].
	b, err := ragged.NewKeyedBatch([]string{"A", "B"}, f32(1, 2, 3, 4),
		ragged.WithOffsets(i32(0, 1, 3, 3, 4)))
	require.NoError(t, err)
	require.Nil(t, b.LengthsOrNil())

	out, err := Exchange(context.Background(), []*ragged.KeyedBatch{b, b, b, b},
		Options{KeySplits: []int{1, 1, 0, 0}})
	require.NoError(t, err)
	require.Len(t, out, 4)

	wantA := batch(t, []string{"A"}, f32(1, 2, 3, 1, 2, 3, 1, 2, 3, 1, 2, 3), i32(1, 2, 1, 2, 1, 2, 1, 2))
	wantB := batch(t, []string{"B"}, f32(4, 4, 4, 4), i32(0, 1, 0, 1, 0, 1, 0, 1))
	assert.True(t, ragged.BatchesEqual(wantA, out[0]), "got\n%s", out[0])
	assert.True(t, ragged.BatchesEqual(wantB, out[1]), "got\n%s", out[1])
	assert.Empty(t, out[2].Keys())
	assert.Empty(t, out[3].Keys())

	assert.NotNil(t, b.LengthsOrNil())
	assert.Equal(t, []int{3, 1}, b.LengthPerKeyOrNil())
}

func TestExchangeStaggerUniform(t *testing.T) {
	// Two nodes of two ranks. Worker w holds A [[w+1]] and B [[10(w+1)]].
	keys := []string{"A", "B"}
	workers := make([]*ragged.KeyedBatch, 4)
	for w := range workers {
		v := float32(w + 1)
		workers[w] = batch(t, keys, f32(v, 10*v), i32(1, 1))
	}

	out, err := Exchange(context.Background(), workers,
		Options{KeySplits: []int{1, 1, 0, 0}, Stagger: 2})
	require.NoError(t, err)

	// Ranks are visited node by node: 0, 2, 1, 3.
	wantA := batch(t, []string{"A"}, f32(1, 3, 2, 4), i32(1, 1, 1, 1))
	wantB := batch(t, []string{"B"}, f32(10, 30, 20, 40), i32(1, 1, 1, 1))
	assert.True(t, ragged.BatchesEqual(wantA, out[0]), "got\n%s", out[0])
	assert.True(t, ragged.BatchesEqual(wantB, out[1]), "got\n%s", out[1])
	stride, ok := out[0].Stride()
	require.True(t, ok)
	assert.Equal(t, 4, stride)
}

func TestExchangeStaggerVariable(t *testing.T) {
	// Two nodes of two ranks. Worker w holds w+1 rows of A, each [w+1], and
	// one row of B, [100+w].
	keys := []string{"A", "B"}
	workers := make([]*ragged.KeyedBatch, 4)
	for w := range workers {
		var values []float32
		var lengths []int
		for j := 0; j <= w; j++ {
			values = append(values, float32(w+1))
			lengths = append(lengths, 1)
		}
		values = append(values, float32(100+w))
		lengths = append(lengths, 1)
		workers[w] = batch(t, keys, f32(values...), i32(lengths...),
			ragged.WithStridePerKeyPerRank([][]int{{w + 1}, {1}}))
	}

	out, err := Exchange(context.Background(), workers,
		Options{KeySplits: []int{1, 1, 0, 0}, Stagger: 2})
	require.NoError(t, err)

	// Row blocks and per-rank strides both follow rank order 0, 2, 1, 3.
	wantA := batch(t, []string{"A"}, f32(1, 3, 3, 3, 2, 2, 4, 4, 4, 4), i32(1, 1, 1, 1, 1, 1, 1, 1, 1, 1),
		ragged.WithStridePerKeyPerRank([][]int{{1, 3, 2, 4}}))
	wantB := batch(t, []string{"B"}, f32(100, 102, 101, 103), i32(1, 1, 1, 1),
		ragged.WithStridePerKeyPerRank([][]int{{1, 1, 1, 1}}))
	assert.True(t, ragged.BatchesEqual(wantA, out[0]), "got\n%s", out[0])
	assert.True(t, ragged.BatchesEqual(wantB, out[1]), "got\n%s", out[1])
	assert.Equal(t, [][]int{{1, 3, 2, 4}}, out[0].StridePerKeyPerRank())
	assert.Equal(t, [][]int{{1, 1, 1, 1}}, out[1].StridePerKeyPerRank())
}

func TestExchangeErrors(t *testing.T) {
	keys := []string{"A", "B"}
	plain := batch(t, keys, f32(1, 2), i32(1, 1))
	renamed := batch(t, []string{"A", "C"}, f32(1, 2), i32(1, 1))
	weighted := batch(t, keys, f32(1, 2), i32(1, 1), ragged.WithWeights(f32(1, 1)))

	tests := []struct {
		name    string
		batches []*ragged.KeyedBatch
		splits  []int
		want    error
	}{
		{"no workers", nil, nil, ErrWorkerMismatch},
		{"split count", []*ragged.KeyedBatch{plain, plain}, []int{2}, ErrWorkerMismatch},
		{"split sum", []*ragged.KeyedBatch{plain, plain}, []int{1, 2}, ErrWorkerMismatch},
		{"keys", []*ragged.KeyedBatch{plain, renamed}, []int{1, 1}, ErrWorkerMismatch},
		{"weightedness", []*ragged.KeyedBatch{plain, weighted}, []int{1, 1}, ragged.ErrWeightedness},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Exchange(context.Background(), tt.batches, Options{KeySplits: tt.splits})
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestExchangeCanceled(t *testing.T) {
	b := batch(t, []string{"A"}, f32(1), i32(1))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Exchange(ctx, []*ragged.KeyedBatch{b, b}, Options{KeySplits: []int{1, 0}})
	assert.True(t, errors.Is(err, context.Canceled))
}
