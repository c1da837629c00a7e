// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the flat buffers that back ragged batches.
//
// # Overview
//
// A ragged container never owns nested slices. It holds a handful of flat
// buffers (values, lengths, offsets, weights) and addresses them by index.
// This package exposes those buffers:
//   - RawTensor: a typed, reference-counted, strided buffer
//   - Kernels: the numeric primitives containers delegate to
//   - Stream: an ordered queue used to keep buffers alive for async work
//
// # Basic Usage
//
//	import "github.com/born-ml/ragged/tensor"
//
//	func main() {
//	    values := tensor.From1D([]float32{1, 2, 3, 4}, tensor.CPU)
//	    lengths, _ := tensor.FromInts([]int{1, 3}, tensor.Int32, tensor.CPU)
//
//	    head, _ := values.Narrow(0, 0, 1) // zero-copy view
//	    _ = lengths
//	    _ = head
//	}
//
// # Supported Data Types
//
//   - float32, float64 (values and weights)
//   - int32, int64 (lengths, offsets and token ids)
//   - uint8 (compact lengths, widened before prefix sums)
//   - bool (masks)
//
// # Device Support
//
// Device is an opaque placement tag. The CPU kernels serve every device tag;
// other backends decide what a tag means for them.
//
// # Memory Management
//
// Views produced by Narrow, Slice and Reshape share the parent buffer. The
// buffer is reference counted and released when the last view drops it.
package tensor
