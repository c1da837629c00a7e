// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package cpu

import (
	internalcpu "github.com/born-ml/ragged/internal/backend/cpu"
	"github.com/born-ml/ragged/internal/parallel"
	"github.com/born-ml/ragged/tensor"
)

// Backend represents the CPU kernel implementation.
//
// Block permutations and padding conversions fan out over goroutines when
// the input is large enough.
type Backend = internalcpu.CPUBackend

// Config controls how block work is spread over goroutines.
type Config = parallel.Config

// Compile-time check that Backend implements tensor.Kernels.
var _ tensor.Kernels = (*Backend)(nil)

// New creates a CPU backend with one worker per CPU.
//
// Example:
//
//	import (
//	    "github.com/born-ml/ragged/backend/cpu"
//	    "github.com/born-ml/ragged/ragged"
//	)
//
//	func main() {
//	    k := cpu.New()
//	    b, _ := ragged.NewKeyedBatch(keys, values,
//	        ragged.WithLengths(lengths), ragged.WithKernels(k))
//	}
func New() *Backend {
	return internalcpu.New()
}

// NewWithConfig creates a CPU backend with an explicit fan-out configuration.
func NewWithConfig(cfg Config) *Backend {
	return internalcpu.NewWithConfig(cfg)
}

// DefaultConfig returns the fan-out used by New.
func DefaultConfig() Config {
	return parallel.DefaultConfig()
}

// Sequential returns a Config that never spawns goroutines.
func Sequential() Config {
	return parallel.Sequential()
}
