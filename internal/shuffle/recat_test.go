package shuffle

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/ragged/internal/ragged"
)

func TestRecat(t *testing.T) {
	tests := []struct {
		name       string
		localSplit int
		numSplits  int
		stagger    int
		batchSizes []int
		want       []int
	}{
		{"no keys", 0, 4, 1, nil, nil},
		{"two keys two ranks", 2, 2, 1, nil, []int{0, 2, 1, 3}},
		{"three keys two ranks", 3, 2, 1, nil, []int{0, 3, 1, 4, 2, 5}},
		{"equal batch sizes", 2, 2, 1, []int{4, 4}, []int{0, 2, 1, 3}},
		{"uneven batch sizes", 2, 2, 1, []int{1, 2}, []int{0, 2, 3, 1, 4, 5}},
		{"stagger", 1, 4, 2, nil, []int{0, 2, 1, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Recat(tt.localSplit, tt.numSplits, tt.stagger, tt.batchSizes))
		})
	}
}

func TestStaggeredShuffle(t *testing.T) {
	got, err := StaggeredShuffle([]int{2, 2, 1, 1}, 4, 2)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 3, 4, 2, 5}, got)

	got, err = StaggeredShuffle([]int{3}, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, got)
}

func TestStaggeredShuffleErrors(t *testing.T) {
	_, err := StaggeredShuffle([]int{1, 1, 1}, 3, 2)
	assert.True(t, errors.Is(err, ragged.ErrPartitionMismatch))

	_, err = StaggeredShuffle([]int{1, 1}, 4, 2)
	assert.True(t, errors.Is(err, ragged.ErrPartitionMismatch))

	_, err = StaggeredShuffle([]int{1}, 1, 0)
	assert.True(t, errors.Is(err, ragged.ErrPartitionMismatch))
}
