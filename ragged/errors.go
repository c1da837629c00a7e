// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package ragged

import "github.com/born-ml/ragged/internal/ragged"

// Error classes. Every error returned by this package is marked with one of
// them; test with errors.Is.
var (
	ErrConstruction      = ragged.ErrConstruction
	ErrMissingField      = ragged.ErrMissingField
	ErrMergeIncompatible = ragged.ErrMergeIncompatible
	ErrPartitionMismatch = ragged.ErrPartitionMismatch
)

// Specific errors.
var (
	ErrNoAddressing         = ragged.ErrNoAddressing
	ErrStrideConflict       = ragged.ErrStrideConflict
	ErrNonIntegerAddressing = ragged.ErrNonIntegerAddressing
	ErrShapeMismatch        = ragged.ErrShapeMismatch
	ErrDistTensorCount      = ragged.ErrDistTensorCount
	ErrNoWeights            = ragged.ErrNoWeights
	ErrNoInverseIndices     = ragged.ErrNoInverseIndices
	ErrUnknownKey           = ragged.ErrUnknownKey
	ErrEmptyConcat          = ragged.ErrEmptyConcat
	ErrWeightedness         = ragged.ErrWeightedness
	ErrVariableStrideMode   = ragged.ErrVariableStrideMode
	ErrStrideMismatch       = ragged.ErrStrideMismatch
	ErrGroupNamesMismatch   = ragged.ErrGroupNamesMismatch
	ErrSegmentsMismatch     = ragged.ErrSegmentsMismatch
	ErrKeyIndexRange        = ragged.ErrKeyIndexRange
)
