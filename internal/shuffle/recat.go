package shuffle

import (
	"github.com/cockroachdb/errors"

	"github.com/born-ml/ragged/internal/ragged"
)

// Recat returns the permutation that restores key-major order after an
// all-to-all in which each of numSplits ranks sent localSplit keys.
//
// Received blocks are ordered (rank, key). The result lists, for each output
// block (key, rank), the index of the received block to take. With stagger > 1
// ranks are visited node by node for two-level topologies.
//
// When batchSizePerRank is given and ranks differ in batch size, blocks have
// different row counts and the permutation is expanded to single rows.
// Recat returns nil when localSplit is zero.
func Recat(localSplit, numSplits, stagger int, batchSizePerRank []int) []int {
	if localSplit == 0 {
		return nil
	}
	stagger = max(stagger, 1)

	perNode := numSplits / stagger
	order := make([]int, 0, numSplits)
	for x := 0; x < perNode; x++ {
		for y := 0; y < stagger; y++ {
			order = append(order, x+perNode*y)
		}
	}
	recat := make([]int, 0, localSplit*len(order))
	for i := 0; i < localSplit; i++ {
		for _, j := range order {
			recat = append(recat, i+j*localSplit)
		}
	}

	if len(batchSizePerRank) == 0 || allEqual(batchSizePerRank) {
		return recat
	}
	return expandToRows(recat, localSplit, batchSizePerRank)
}

// expandToRows turns a block permutation into a row permutation. Block b holds
// batchSizePerRank[b/localSplit] rows.
func expandToRows(recat []int, localSplit int, batchSizePerRank []int) []int {
	blockSize := make([]int, 0, localSplit*len(batchSizePerRank))
	for _, bs := range batchSizePerRank {
		for i := 0; i < localSplit; i++ {
			blockSize = append(blockSize, bs)
		}
	}
	starts := make([]int, len(blockSize)+1)
	for i, n := range blockSize {
		starts[i+1] = starts[i] + n
	}

	rows := make([]int, 0, starts[len(starts)-1])
	for _, b := range recat {
		for r := starts[b]; r < starts[b+1]; r++ {
			rows = append(rows, r)
		}
	}
	return rows
}

// StaggeredShuffle returns the key permutation that lays bucketized keys out in
// contiguous per-rank blocks for a two-level (node, local rank) topology.
//
// featuresPerRank lists the keys sent to each of worldSize ranks; ranks on one
// node share a count. The result enumerates, for each node and each local
// bucket, the node's keys offset by bucket*numFeatures.
func StaggeredShuffle(featuresPerRank []int, worldSize, localSize int) ([]int, error) {
	if localSize <= 0 || worldSize%localSize != 0 {
		return nil, errors.Wrapf(ragged.ErrPartitionMismatch,
			"world size %d is not a multiple of local size %d", worldSize, localSize)
	}
	if len(featuresPerRank) != worldSize {
		return nil, errors.Wrapf(ragged.ErrPartitionMismatch,
			"%d feature counts for world size %d", len(featuresPerRank), worldSize)
	}

	nodes := worldSize / localSize
	nodeOffsets := make([]int, nodes+1)
	for node := 0; node < nodes; node++ {
		nodeOffsets[node+1] = nodeOffsets[node] + featuresPerRank[node*localSize]
	}
	numFeatures := nodeOffsets[nodes]

	out := make([]int, 0, numFeatures*localSize)
	for node := 0; node < nodes; node++ {
		for bucket := 0; bucket < localSize; bucket++ {
			for f := nodeOffsets[node]; f < nodeOffsets[node+1]; f++ {
				out = append(out, bucket*numFeatures+f)
			}
		}
	}
	return out, nil
}

func allEqual(s []int) bool {
	for _, v := range s[1:] {
		if v != s[0] {
			return false
		}
	}
	return true
}
