// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides the pure Go kernels for ragged containers.
//
// # Overview
//
// This package implements tensor.Kernels with:
//   - Pure Go implementation (no CGO)
//   - Complete cumulative sums for lengths to offsets
//   - CSR segment sums for per-key length totals
//   - 1-D and 2-D block permutations for key reordering
//   - Jagged to padded dense conversion and back
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/ragged/backend/cpu"
//	    "github.com/born-ml/ragged/ragged"
//	)
//
//	func main() {
//	    k := cpu.NewWithConfig(cpu.Sequential())
//	    seq, _ := ragged.NewSequence(values,
//	        ragged.WithLengths(lengths), ragged.WithKernels(k))
//	}
//
// # Thread Safety
//
// The CPU backend is safe for concurrent use. Each kernel call is isolated
// and does not share mutable state.
package cpu
