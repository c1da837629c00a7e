// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import "github.com/born-ml/ragged/internal/tensor"

// Kernels is the set of numeric primitives the ragged containers delegate to.
//
// Implementations:
//   - backend/cpu: pure Go reference kernels
//
// Example:
//
//	import (
//	    "github.com/born-ml/ragged/backend/cpu"
//	    "github.com/born-ml/ragged/ragged"
//	)
//
//	b, err := ragged.NewKeyedBatch(keys, values,
//	    ragged.WithLengths(lengths),
//	    ragged.WithKernels(cpu.New()),
//	)
type Kernels = tensor.Kernels
