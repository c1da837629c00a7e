package tensor

import (
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/cockroachdb/errors"
)

// Device represents where a buffer is placed.
// Placement is an opaque tag for the core; kernels decide what it means.
type Device int

// Supported devices.
const (
	CPU Device = iota
	CUDA
	Vulkan
	Metal
	WebGPU
)

// String returns a human-readable device name.
func (d Device) String() string {
	switch d {
	case CPU:
		return "CPU"
	case CUDA:
		return "CUDA"
	case Vulkan:
		return "Vulkan"
	case Metal:
		return "Metal"
	case WebGPU:
		return "WebGPU"
	default:
		return "Unknown"
	}
}

// tensorBuffer is a reference-counted shared buffer.
// Views and clones share it; streams hold a reference while work is queued against it.
type tensorBuffer struct {
	data     []byte
	refCount atomic.Int32
	mu       sync.Mutex // For safe deallocation
}

// newTensorBuffer creates a new reference-counted buffer with refCount = 1.
func newTensorBuffer(size int) *tensorBuffer {
	buf := &tensorBuffer{
		data: make([]byte, size),
	}
	buf.refCount.Store(1)
	return buf
}

func (tb *tensorBuffer) addRef() {
	tb.refCount.Add(1)
}

// release decrements the reference count and drops the storage if it reaches 0.
func (tb *tensorBuffer) release() {
	if tb.refCount.Add(-1) == 0 {
		tb.mu.Lock()
		defer tb.mu.Unlock()
		tb.data = nil
	}
}

func (tb *tensorBuffer) isUnique() bool {
	return tb.refCount.Load() == 1
}

// RawTensor is an untyped buffer with shape, element strides and a byte offset.
// Narrow/Slice/Reshape produce views over the same buffer; nothing is ever
// mutated through a view by this module.
type RawTensor struct {
	buffer *tensorBuffer
	shape  Shape
	stride []int // element strides
	dtype  DataType
	device Device
	offset int // byte offset into buffer
	pinned bool
}

// NewRaw creates a zero-filled RawTensor with the given shape and type.
func NewRaw(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid shape")
	}

	return &RawTensor{
		buffer: newTensorBuffer(shape.NumElements() * dtype.Size()),
		shape:  shape.Clone(),
		stride: shape.ComputeStrides(),
		dtype:  dtype,
		device: device,
	}, nil
}

// Empty returns a zero-length 1-D buffer of the given type.
func Empty(dtype DataType, device Device) *RawTensor {
	r, err := NewRaw(Shape{0}, dtype, device)
	if err != nil {
		panic(err)
	}
	return r
}

// FromSlice creates a buffer from a Go slice. The slice is copied.
func FromSlice[T DType](data []T, shape Shape, device Device) (*RawTensor, error) {
	if shape.NumElements() != len(data) {
		return nil, errors.Newf("shape %v requires %d elements, but got %d", shape, shape.NumElements(), len(data))
	}

	var dummy T
	raw, err := NewRaw(shape, inferDataType(dummy), device)
	if err != nil {
		return nil, err
	}
	if len(data) > 0 {
		//nolint:gosec // same element size, bounds checked above
		src := unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), raw.ByteSize())
		copy(raw.buffer.data, src)
	}
	return raw, nil
}

// From1D is FromSlice for a 1-D buffer.
func From1D[T DType](data []T, device Device) *RawTensor {
	r, err := FromSlice(data, Shape{len(data)}, device)
	if err != nil {
		panic(err)
	}
	return r
}

// FromInts creates a 1-D integer buffer, typically lengths or offsets.
func FromInts(data []int, dtype DataType, device Device) (*RawTensor, error) {
	if !dtype.IsInteger() {
		return nil, errors.Newf("dtype %s cannot hold integers", dtype)
	}
	r, err := NewRaw(Shape{len(data)}, dtype, device)
	if err != nil {
		return nil, err
	}
	switch dtype {
	case Int32:
		out := r.AsInt32()
		for i, v := range data {
			if int(int32(v)) != v {
				return nil, errors.Newf("value %d at index %d overflows %s", v, i, dtype)
			}
			out[i] = int32(v)
		}
	case Int64:
		out := r.AsInt64()
		for i, v := range data {
			out[i] = int64(v)
		}
	case Uint8:
		out := r.AsUint8()
		for i, v := range data {
			if v < 0 || v > 255 {
				return nil, errors.Newf("value %d at index %d overflows %s", v, i, dtype)
			}
			out[i] = uint8(v)
		}
	}
	return r, nil
}

// MustFromInts is FromInts for values the caller already knows to fit.
func MustFromInts(data []int, dtype DataType, device Device) *RawTensor {
	r, err := FromInts(data, dtype, device)
	if err != nil {
		panic(err)
	}
	return r
}

// Shape returns the buffer's shape.
func (r *RawTensor) Shape() Shape {
	return r.shape
}

// Strides returns the element strides.
func (r *RawTensor) Strides() []int {
	return r.stride
}

// DType returns the data type.
func (r *RawTensor) DType() DataType {
	return r.dtype
}

// Device returns the placement tag.
func (r *RawTensor) Device() Device {
	return r.device
}

// Pinned reports whether the buffer was produced by a pin hook.
func (r *RawTensor) Pinned() bool {
	return r.pinned
}

// Dim returns the number of dimensions.
func (r *RawTensor) Dim() int {
	return len(r.shape)
}

// Size returns the extent of dimension dim. Negative dims count from the end.
func (r *RawTensor) Size(dim int) int {
	if dim < 0 {
		dim += len(r.shape)
	}
	return r.shape[dim]
}

// Len is the extent of the leading dimension, the element count of a ragged buffer.
func (r *RawTensor) Len() int {
	if len(r.shape) == 0 {
		return 1
	}
	return r.shape[0]
}

// NumElements returns the total number of elements.
func (r *RawTensor) NumElements() int {
	return r.shape.NumElements()
}

// ByteSize returns the total memory size in bytes.
func (r *RawTensor) ByteSize() int {
	return r.NumElements() * r.dtype.Size()
}

// RowBytes is the byte size of one slice along the leading dimension.
func (r *RawTensor) RowBytes() int {
	if len(r.shape) == 0 {
		return r.dtype.Size()
	}
	return r.shape[1:].NumElements() * r.dtype.Size()
}

// IsContiguous reports whether the view is laid out in row-major order.
func (r *RawTensor) IsContiguous() bool {
	expected := r.shape.ComputeStrides()
	for d := range r.shape {
		if r.shape[d] > 1 && r.stride[d] != expected[d] {
			return false
		}
	}
	return true
}

// Data returns the raw bytes of a contiguous buffer.
// WARNING: Direct access to underlying memory. Use with caution.
func (r *RawTensor) Data() []byte {
	r.mustBeContiguous()
	return r.buffer.data[r.offset : r.offset+r.ByteSize()]
}

func (r *RawTensor) mustBeContiguous() {
	if !r.IsContiguous() {
		panic(fmt.Sprintf("tensor with shape %v and strides %v is not contiguous", r.shape, r.stride))
	}
}

func (r *RawTensor) typed(dt DataType) unsafe.Pointer {
	if r.dtype != dt {
		panic(fmt.Sprintf("tensor dtype is %s, not %s", r.dtype, dt))
	}
	r.mustBeContiguous()
	if r.NumElements() == 0 {
		return nil
	}
	return unsafe.Pointer(&r.buffer.data[r.offset])
}

// AsFloat32 interprets the data as []float32.
// Panics if the dtype is not Float32 or the view is not contiguous.
func (r *RawTensor) AsFloat32() []float32 {
	p := r.typed(Float32)
	if p == nil {
		return []float32{}
	}
	return unsafe.Slice((*float32)(p), r.NumElements())
}

// AsFloat64 interprets the data as []float64.
func (r *RawTensor) AsFloat64() []float64 {
	p := r.typed(Float64)
	if p == nil {
		return []float64{}
	}
	return unsafe.Slice((*float64)(p), r.NumElements())
}

// AsInt32 interprets the data as []int32.
func (r *RawTensor) AsInt32() []int32 {
	p := r.typed(Int32)
	if p == nil {
		return []int32{}
	}
	return unsafe.Slice((*int32)(p), r.NumElements())
}

// AsInt64 interprets the data as []int64.
func (r *RawTensor) AsInt64() []int64 {
	p := r.typed(Int64)
	if p == nil {
		return []int64{}
	}
	return unsafe.Slice((*int64)(p), r.NumElements())
}

// AsUint8 interprets the data as []uint8.
func (r *RawTensor) AsUint8() []uint8 {
	p := r.typed(Uint8)
	if p == nil {
		return []uint8{}
	}
	return unsafe.Slice((*uint8)(p), r.NumElements())
}

// AsBool interprets the data as []bool.
func (r *RawTensor) AsBool() []bool {
	p := r.typed(Bool)
	if p == nil {
		return []bool{}
	}
	return unsafe.Slice((*bool)(p), r.NumElements())
}

// Ints reads an integer buffer into a fresh []int.
// Empty buffers of any dtype yield an empty slice.
func (r *RawTensor) Ints() ([]int, error) {
	n := r.NumElements()
	out := make([]int, n)
	if n == 0 {
		return out, nil
	}
	if !r.dtype.IsInteger() {
		return nil, errors.Newf("tensor dtype is %s, not an integer type", r.dtype)
	}
	c := r.Contiguous()
	switch r.dtype {
	case Int32:
		for i, v := range c.AsInt32() {
			out[i] = int(v)
		}
	case Int64:
		for i, v := range c.AsInt64() {
			out[i] = int(v)
		}
	case Uint8:
		for i, v := range c.AsUint8() {
			out[i] = int(v)
		}
	}
	return out, nil
}

// Float64s widens every element to float64, in row-major order.
func (r *RawTensor) Float64s() []float64 {
	c := r.Contiguous()
	out := make([]float64, c.NumElements())
	switch c.dtype {
	case Float32:
		for i, v := range c.AsFloat32() {
			out[i] = float64(v)
		}
	case Float64:
		copy(out, c.AsFloat64())
	case Int32:
		for i, v := range c.AsInt32() {
			out[i] = float64(v)
		}
	case Int64:
		for i, v := range c.AsInt64() {
			out[i] = float64(v)
		}
	case Uint8:
		for i, v := range c.AsUint8() {
			out[i] = float64(v)
		}
	case Bool:
		for i, v := range c.AsBool() {
			if v {
				out[i] = 1
			}
		}
	}
	return out
}

// Clone creates a shallow copy of the RawTensor that shares the buffer.
func (r *RawTensor) Clone() *RawTensor {
	r.buffer.addRef()
	return &RawTensor{
		buffer: r.buffer,
		shape:  r.shape.Clone(),
		stride: append([]int(nil), r.stride...),
		dtype:  r.dtype,
		device: r.device,
		offset: r.offset,
		pinned: r.pinned,
	}
}

// Copy returns a contiguous deep copy with its own buffer.
func (r *RawTensor) Copy() *RawTensor {
	return r.Relocate(r.device, r.pinned)
}

// Relocate returns a contiguous deep copy placed on device.
func (r *RawTensor) Relocate(device Device, pinned bool) *RawTensor {
	out := &RawTensor{
		buffer: newTensorBuffer(r.ByteSize()),
		shape:  r.shape.Clone(),
		stride: r.shape.ComputeStrides(),
		dtype:  r.dtype,
		device: device,
		pinned: pinned,
	}
	r.copyInto(out.buffer.data)
	return out
}

// Release decrements the reference count and deallocates if it reaches 0.
func (r *RawTensor) Release() {
	r.buffer.release()
}

// IsUnique returns true if this tensor is the only reference to the buffer.
func (r *RawTensor) IsUnique() bool {
	return r.buffer.isUnique()
}

// String returns a short description; element formatting is left to callers.
func (r *RawTensor) String() string {
	return fmt.Sprintf("RawTensor[%s]%v on %s", r.dtype, r.shape, r.device)
}

// FromFloat64s creates a 1-D buffer of dtype from float64 values, narrowing each one.
func FromFloat64s(data []float64, dtype DataType, device Device) (*RawTensor, error) {
	r, err := NewRaw(Shape{len(data)}, dtype, device)
	if err != nil {
		return nil, err
	}
	r.setFloat64s(data)
	return r, nil
}

// Fill sets every element of a contiguous buffer to v converted to its dtype.
func (r *RawTensor) Fill(v float64) {
	vals := make([]float64, r.NumElements())
	for i := range vals {
		vals[i] = v
	}
	r.setFloat64s(vals)
}

func (r *RawTensor) setFloat64s(vals []float64) {
	switch r.dtype {
	case Float32:
		out := r.AsFloat32()
		for i, v := range vals {
			out[i] = float32(v)
		}
	case Float64:
		copy(r.AsFloat64(), vals)
	case Int32:
		out := r.AsInt32()
		for i, v := range vals {
			out[i] = int32(v)
		}
	case Int64:
		out := r.AsInt64()
		for i, v := range vals {
			out[i] = int64(v)
		}
	case Uint8:
		out := r.AsUint8()
		for i, v := range vals {
			out[i] = uint8(v)
		}
	case Bool:
		out := r.AsBool()
		for i, v := range vals {
			out[i] = v != 0
		}
	}
}
