// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/born-ml/ragged/internal/tensor"
)

// RawTensor is the flat buffer behind every ragged container.
//
// RawTensor provides:
//   - Shape and type information via Shape(), DType(), Device()
//   - Typed access via AsFloat32(), AsInt64(), Ints(), etc.
//   - Zero-copy views via Narrow() and Slice()
//   - Reference counting so views share one buffer
//
// Example:
//
//	raw, _ := tensor.NewRaw(tensor.Shape{2, 3}, tensor.Float32, tensor.CPU)
//	data := raw.AsFloat32()
//	row, _ := raw.Narrow(0, 1, 1) // shares the buffer
type RawTensor = tensor.RawTensor

// Shape is a tensor shape.
type Shape = tensor.Shape

// DType constrains the element types a buffer may hold.
type DType = tensor.DType

// DataType is the runtime element type of a buffer.
type DataType = tensor.DataType

// Device is the placement tag of a buffer.
type Device = tensor.Device

// Stream is an ordered queue of asynchronous device work.
type Stream = tensor.Stream

// Default tolerances for Allclose.
const (
	DefaultRTol = tensor.DefaultRTol
	DefaultATol = tensor.DefaultATol
)

// Supported data types.
const (
	Float32 = tensor.Float32
	Float64 = tensor.Float64
	Int32   = tensor.Int32
	Int64   = tensor.Int64
	Uint8   = tensor.Uint8
	Bool    = tensor.Bool
)

// Supported devices.
const (
	CPU    = tensor.CPU
	CUDA   = tensor.CUDA
	Vulkan = tensor.Vulkan
	Metal  = tensor.Metal
	WebGPU = tensor.WebGPU
)

// NewRaw allocates a zeroed buffer.
func NewRaw(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	return tensor.NewRaw(shape, dtype, device)
}

// Empty returns a zero-length 1-D buffer.
func Empty(dtype DataType, device Device) *RawTensor {
	return tensor.Empty(dtype, device)
}

// FromSlice copies data into a new buffer of the given shape.
func FromSlice[T DType](data []T, shape Shape, device Device) (*RawTensor, error) {
	return tensor.FromSlice(data, shape, device)
}

// From1D copies data into a new 1-D buffer.
func From1D[T DType](data []T, device Device) *RawTensor {
	return tensor.From1D(data, device)
}

// FromInts converts host integers into a 1-D integer buffer of dtype.
func FromInts(data []int, dtype DataType, device Device) (*RawTensor, error) {
	return tensor.FromInts(data, dtype, device)
}

// FromFloat64s converts host floats into a 1-D buffer of dtype.
func FromFloat64s(data []float64, dtype DataType, device Device) (*RawTensor, error) {
	return tensor.FromFloat64s(data, dtype, device)
}

// ParseDataType resolves a dtype name such as "float32" or "int64".
func ParseDataType(name string) (DataType, bool) {
	return tensor.ParseDataType(name)
}

// NewStream creates a stream with the given identifier.
func NewStream(id int) *Stream {
	return tensor.NewStream(id)
}

// Concat packs tensors end to end along the leading dimension.
func Concat(tensors []*RawTensor) (*RawTensor, error) {
	return tensor.Concat(tensors)
}

// Equal reports exact element-wise equality of two same-shaped buffers.
func Equal(a, b *RawTensor) bool {
	return tensor.Equal(a, b)
}

// Allclose reports whether a and b agree elementwise within rtol and atol.
func Allclose(a, b *RawTensor, rtol, atol float64) bool {
	return tensor.Allclose(a, b, rtol, atol)
}
