package ragged

import "github.com/cockroachdb/errors"

// Failure classes. Every sentinel below is marked with exactly one of them,
// so callers can match either the precise failure or its class with errors.Is.
var (
	// ErrConstruction marks inputs that violate a constructor contract.
	ErrConstruction = errors.New("ragged: construction contract violation")

	// ErrMissingField marks access to an optional field the instance lacks.
	ErrMissingField = errors.New("ragged: missing optional field")

	// ErrMergeIncompatible marks inputs that cannot be merged or regrouped together.
	ErrMergeIncompatible = errors.New("ragged: incompatible merge")

	// ErrPartitionMismatch marks a key partition or permutation that does not
	// address the key list.
	ErrPartitionMismatch = errors.New("ragged: partition mismatch")
)

var (
	// ErrNoAddressing is returned when neither lengths nor offsets is supplied.
	ErrNoAddressing = errors.Mark(errors.New("ragged: lengths or offsets required"), ErrConstruction)

	// ErrStrideConflict is returned when both a stride and per-rank strides are supplied.
	ErrStrideConflict = errors.Mark(
		errors.New("ragged: stride and stride_per_key_per_rank are mutually exclusive"), ErrConstruction)

	// ErrNonIntegerAddressing is returned when a non-empty lengths or offsets
	// buffer is not integer typed.
	ErrNonIntegerAddressing = errors.Mark(errors.New("ragged: addressing must be integer typed"), ErrConstruction)

	// ErrShapeMismatch is returned when buffer sizes contradict each other.
	ErrShapeMismatch = errors.Mark(errors.New("ragged: inconsistent buffer sizes"), ErrConstruction)

	// ErrDistTensorCount is returned by DistInit for a tensor list it cannot decode.
	ErrDistTensorCount = errors.Mark(errors.New("ragged: unexpected number of dist tensors"), ErrConstruction)

	// ErrNoWeights is returned when weights are requested from an unweighted instance.
	ErrNoWeights = errors.Mark(errors.New("ragged: instance has no weights"), ErrMissingField)

	// ErrNoInverseIndices is returned when inverse indices were never attached.
	ErrNoInverseIndices = errors.Mark(errors.New("ragged: instance has no inverse indices"), ErrMissingField)

	// ErrUnknownKey is returned by keyed lookups for a name not in the key list.
	ErrUnknownKey = errors.Mark(errors.New("ragged: unknown key"), ErrMissingField)

	// ErrEmptyConcat is returned when concatenating an empty list.
	ErrEmptyConcat = errors.Mark(errors.New("ragged: nothing to concatenate"), ErrMergeIncompatible)

	// ErrWeightedness is returned when weighted and unweighted batches are merged.
	ErrWeightedness = errors.Mark(errors.New("ragged: cannot merge weighted with unweighted"), ErrMergeIncompatible)

	// ErrVariableStrideMode is returned when batches disagree on variable stride per key.
	ErrVariableStrideMode = errors.Mark(
		errors.New("ragged: variable stride per key must be consistent"), ErrMergeIncompatible)

	// ErrStrideMismatch is returned when uniform-stride batches report different strides.
	ErrStrideMismatch = errors.Mark(errors.New("ragged: strides must be consistent"), ErrMergeIncompatible)

	// ErrGroupNamesMismatch is returned when regroup names and groups differ in length.
	ErrGroupNamesMismatch = errors.Mark(
		errors.New("ragged: groups and names must have the same length"), ErrMergeIncompatible)

	// ErrSegmentsMismatch is returned when split segments do not partition the keys.
	ErrSegmentsMismatch = errors.Mark(errors.New("ragged: segments do not partition keys"), ErrPartitionMismatch)

	// ErrKeyIndexRange is returned when a permutation index is outside the key list.
	ErrKeyIndexRange = errors.Mark(errors.New("ragged: key index out of range"), ErrPartitionMismatch)
)
