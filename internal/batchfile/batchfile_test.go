package batchfile

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/ragged/internal/ragged"
	"github.com/born-ml/ragged/internal/tensor"
)

const scenario = `
keys: [F0, F1]
values: [1, 2, 3, 4, 5, 6, 7, 8]
lengths: [2, 0, 1, 1, 1, 3]
`

func TestDecode(t *testing.T) {
	b, err := Decode(strings.NewReader(scenario))
	require.NoError(t, err)
	assert.Equal(t, []string{"F0", "F1"}, b.Keys())
	assert.Equal(t, tensor.Float32, b.Values().DType())
	assert.Equal(t, []int{3, 5}, b.LengthPerKey())
	stride, _ := b.Stride()
	assert.Equal(t, 3, stride)
}

func TestDecodeOptionalFields(t *testing.T) {
	doc := `
keys: [A, B]
values: [1, 2, 3]
offsets: [0, 1, 3, 3]
weights: [0.5, 1, 2]
stride_per_key_per_rank: [[1], [2]]
dtype: int64
lengths_dtype: int64
`
	b, err := Decode(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, tensor.Int64, b.Values().DType())
	assert.Equal(t, tensor.Int64, b.Offsets().DType())
	assert.True(t, b.VariableStridePerKey())
	assert.Equal(t, []int{1, 2}, b.LengthPerKey())
	assert.Equal(t, []float64{.5, 1, 2}, b.WeightsOrNil().Float64s())
}

func TestDecodeErrors(t *testing.T) {
	for name, doc := range map[string]string{
		"unknown field": "keys: [A]\nvalues: [1]\nlengths: [1]\nbogus: 1\n",
		"unknown dtype": "keys: [A]\nvalues: [1]\nlengths: [1]\ndtype: complex\n",
		"no addressing": "keys: [A]\nvalues: [1]\n",
		"bad yaml":      "keys: [A\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	b, err := Decode(strings.NewReader(scenario))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, b))
	assert.Contains(t, buf.String(), "stride: 3")

	back, err := Decode(&buf)
	require.NoError(t, err)
	assert.True(t, ragged.BatchesEqual(b, back))
}

func TestEncodeVariableStride(t *testing.T) {
	doc := "keys: [A, B]\nvalues: [1, 2]\nlengths: [1, 0, 1]\nstride_per_key_per_rank: [[1], [2]]\n"
	b, err := Decode(strings.NewReader(doc))
	require.NoError(t, err)

	f, err := FromBatch(b)
	require.NoError(t, err)
	assert.Nil(t, f.Stride)
	assert.Equal(t, [][]int{{1}, {2}}, f.StridePerKeyPerRank)
}

func TestTable(t *testing.T) {
	b, err := Decode(strings.NewReader(scenario))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Table(&buf, b))
	out := buf.String()
	assert.Contains(t, out, "KEY")
	assert.Contains(t, out, "[6 7 8]")
	assert.Contains(t, out, "[]")
	assert.NotContains(t, out, "WEIGHTS")
	// header, six rows and three border lines
	assert.Equal(t, 10, strings.Count(out, "\n"))
}

func TestTableWeighted(t *testing.T) {
	doc := "keys: [A]\nvalues: [1, 2]\nlengths: [2]\nweights: [0.25, 4]\n"
	b, err := Decode(strings.NewReader(doc))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Table(&buf, b))
	assert.Contains(t, buf.String(), "WEIGHTS")
	assert.Contains(t, buf.String(), "[0.25 4]")
}

func TestSummary(t *testing.T) {
	b, err := Decode(strings.NewReader(scenario))
	require.NoError(t, err)
	var buf bytes.Buffer
	Summary(&buf, b)
	assert.Equal(t, "F0: rows=3 values=3\nF1: rows=3 values=5\n", buf.String())
}
