// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package ragged provides jagged containers for sparse feature batches.
//
// # Overview
//
// Sparse features have a different number of ids per example. This package
// stores them without nested slices:
//   - Sequence: one flat value buffer split into rows by lengths or offsets
//   - KeyedBatch: many named Sequences packed key-major into one buffer
//   - KeyedDense: a dense tensor whose key dimension is split into named spans
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/ragged/ragged"
//	    "github.com/born-ml/ragged/tensor"
//	)
//
//	func main() {
//	    // Two keys, stride 3: F0 rows [1 2] [] [3], F1 rows [4] [5 6] [7 8 9].
//	    values := tensor.From1D([]float32{1, 2, 3, 4, 5, 6, 7, 8, 9}, tensor.CPU)
//	    lengths, _ := tensor.FromInts([]int{2, 0, 1, 1, 2, 3}, tensor.Int32, tensor.CPU)
//
//	    b, _ := ragged.NewKeyedBatch([]string{"F0", "F1"}, values,
//	        ragged.WithLengths(lengths))
//
//	    f1, _ := b.Get("F1")            // Sequence with 3 rows
//	    parts, _ := b.Split([]int{1, 1}) // one batch per key
//	    swapped, _ := b.Permute([]int{1, 0}, false)
//	}
//
// # Lazy Derivation
//
// Offsets, per-key lengths and per-key offsets are derived on first use and
// cached. Sync derives them all at once so later reads never compute.
//
// # Variable Stride
//
// WithStridePerKeyPerRank lets each key carry a different number of rows per
// rank. StridePerKey and StridePerKeyPerRank then describe the layout.
//
// # Distribution
//
// DistTensors, DistSplits and DistInit describe how a batch travels through an
// all-to-all. Exchange runs that all-to-all in process with one goroutine per
// worker.
package ragged
