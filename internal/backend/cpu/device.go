package cpu

import "github.com/born-ml/ragged/internal/tensor"

// Move returns t when it already lives on device, otherwise a copy tagged for device.
func (cpu *CPUBackend) Move(t *tensor.RawTensor, device tensor.Device) *tensor.RawTensor {
	if t == nil || t.Device() == device {
		return t
	}
	return t.Relocate(device, false)
}

// Pin returns a page-locked copy of t. Host memory has no page locking here,
// so the copy only carries the pinned flag.
func (cpu *CPUBackend) Pin(t *tensor.RawTensor) *tensor.RawTensor {
	if t == nil || t.Pinned() {
		return t
	}
	return t.Relocate(t.Device(), true)
}

// RecordStream keeps t's buffer alive until s is synchronized.
func (cpu *CPUBackend) RecordStream(t *tensor.RawTensor, s *tensor.Stream) {
	if s == nil {
		return
	}
	s.Record(t)
}
