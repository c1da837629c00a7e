// Package cpu implements the reference ragged kernels in pure Go.
package cpu

import (
	"github.com/born-ml/ragged/internal/parallel"
	"github.com/born-ml/ragged/internal/tensor"
)

// CPUBackend implements tensor.Kernels on host memory.
type CPUBackend struct {
	device tensor.Device
	par    parallel.Config
}

var _ tensor.Kernels = (*CPUBackend)(nil)

// New creates a CPU backend with the default fan-out configuration.
func New() *CPUBackend {
	return NewWithConfig(parallel.DefaultConfig())
}

// NewWithConfig creates a CPU backend that fans block copies out according to cfg.
func NewWithConfig(cfg parallel.Config) *CPUBackend {
	return &CPUBackend{
		device: tensor.CPU,
		par:    cfg,
	}
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "CPU"
}

// Device returns the compute device.
func (cpu *CPUBackend) Device() tensor.Device {
	return cpu.device
}
