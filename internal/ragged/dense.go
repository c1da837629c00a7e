package ragged

import (
	"slices"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/born-ml/ragged/internal/tensor"
)

// DefaultKeyDim is the keyed axis of a KeyedDense when the batch axis comes first.
const DefaultKeyDim = 1

// KeyedDense holds per-key dense tensors concatenated along one keyed axis.
//
// Example, keyed along dim 1:
//
//	#                  0           1           2
//	# "A"          [1,1]       [1,1]       [1,1]
//	# "B"          [2,1,2]     [2,1,2]     [2,1,2]
//
//	values: [[1, 1, 2, 1, 2], [1, 1, 2, 1, 2], [1, 1, 2, 1, 2]]
//	length_per_key: [2, 3]
type KeyedDense struct {
	keys         []string
	lengthPerKey []int
	values       *tensor.RawTensor
	keyDim       int

	offsetPerKey []int
	indexPerKey  *keyIndex
	kernels      tensor.Kernels
}

// NewKeyedDense wraps a pre-concatenated tensor. The per-key lengths must sum
// to the size of values along keyDim.
func NewKeyedDense(keys []string, lengthPerKey []int, values *tensor.RawTensor, keyDim int, opts ...Option) (*KeyedDense, error) {
	o := buildOptions(opts)
	if len(keys) != len(lengthPerKey) {
		return nil, errors.Wrapf(ErrShapeMismatch, "%d lengths for %d keys", len(lengthPerKey), len(keys))
	}
	if keyDim < 0 {
		keyDim += values.Dim()
	}
	if keyDim < 0 || keyDim >= values.Dim() {
		return nil, errors.Wrapf(ErrShapeMismatch, "key dim %d out of range for shape %v", keyDim, values.Shape())
	}
	if total := sumInts(lengthPerKey); total != values.Size(keyDim) {
		return nil, errors.Wrapf(ErrShapeMismatch, "lengths sum to %d, values have %d along dim %d",
			total, values.Size(keyDim), keyDim)
	}
	return &KeyedDense{
		keys:         keys,
		lengthPerKey: lengthPerKey,
		values:       values,
		keyDim:       keyDim,
		kernels:      o.kernels,
	}, nil
}

// KeyedDenseFromTensorList concatenates per-key tensors along catDim; each
// key's length is its size along keyDim.
func KeyedDenseFromTensorList(keys []string, tensors []*tensor.RawTensor, keyDim, catDim int, opts ...Option) (*KeyedDense, error) {
	o := buildOptions(opts)
	if len(tensors) == 0 {
		return nil, errors.Wrap(ErrShapeMismatch, "at least one tensor required")
	}
	lengthPerKey := make([]int, len(tensors))
	for i, t := range tensors {
		if keyDim >= t.Dim() || keyDim < -t.Dim() {
			return nil, errors.Wrapf(ErrShapeMismatch, "key dim %d out of range for tensor %d of shape %v",
				keyDim, i, t.Shape())
		}
		lengthPerKey[i] = t.Size(keyDim)
	}
	values, err := o.kernels.Cat(tensors, catDim)
	if err != nil {
		return nil, errors.Wrap(err, "concatenate tensors")
	}
	return NewKeyedDense(keys, lengthPerKey, values, keyDim, opts...)
}

// Keys returns the key list.
func (kd *KeyedDense) Keys() []string { return kd.keys }

// Values returns the concatenated tensor.
func (kd *KeyedDense) Values() *tensor.RawTensor { return kd.values }

// KeyDim returns the keyed axis.
func (kd *KeyedDense) KeyDim() int { return kd.keyDim }

// LengthPerKey returns each key's extent along the keyed axis.
func (kd *KeyedDense) LengthPerKey() []int { return kd.lengthPerKey }

// OffsetPerKey returns each key's start along the keyed axis, plus the total.
func (kd *KeyedDense) OffsetPerKey() []int {
	if kd.offsetPerKey == nil {
		kd.offsetPerKey = cumsum(kd.lengthPerKey)
	}
	return kd.offsetPerKey
}

// KeyIndex returns the position of the first occurrence of key.
func (kd *KeyedDense) KeyIndex(key string) (int, bool) {
	if kd.indexPerKey == nil {
		kd.indexPerKey = newKeyIndex(kd.keys)
	}
	return kd.indexPerKey.lookup(key)
}

// Get returns a view of key's span. No data is copied.
func (kd *KeyedDense) Get(key string) (*tensor.RawTensor, error) {
	idx, ok := kd.KeyIndex(key)
	if !ok {
		return nil, errors.Wrapf(ErrUnknownKey, "%q", key)
	}
	return kd.span(idx), nil
}

func (kd *KeyedDense) span(idx int) *tensor.RawTensor {
	view, err := kd.values.Narrow(kd.keyDim, kd.OffsetPerKey()[idx], kd.lengthPerKey[idx])
	if err != nil {
		panic(errors.NewAssertionErrorWithWrappedErrf(err, "key span"))
	}
	return view
}

// ToDict returns a view per key. For repeated keys the first occurrence wins.
func (kd *KeyedDense) ToDict() map[string]*tensor.RawTensor {
	out := make(map[string]*tensor.RawTensor, len(kd.keys))
	for i, k := range kd.keys {
		if _, dup := out[k]; !dup {
			out[k] = kd.span(i)
		}
	}
	return out
}

// Regroup builds one tensor per group by concatenating the named key spans
// along the keyed axis. When every batch's keys already equal the matching
// group, the batches' values are returned as is.
func Regroup(batches []*KeyedDense, groups [][]string) ([]*tensor.RawTensor, error) {
	if len(batches) == len(groups) {
		match := true
		for i, kd := range batches {
			if !slices.Equal(kd.keys, groups[i]) {
				match = false
				break
			}
		}
		if match {
			out := make([]*tensor.RawTensor, len(batches))
			for i, kd := range batches {
				out[i] = kd.values
			}
			return out, nil
		}
	}
	if len(batches) == 0 {
		return nil, errors.Wrap(ErrMergeIncompatible, "no batches to regroup")
	}

	// First occurrence across all batches resolves a key.
	owner := make(map[string]int)
	for i, kd := range batches {
		for _, k := range kd.keys {
			if _, ok := owner[k]; !ok {
				owner[k] = i
			}
		}
	}

	keyDim := batches[0].keyDim
	var spans []*tensor.RawTensor
	splitLengths := make([]int, len(groups))
	for g, group := range groups {
		for _, name := range group {
			i, ok := owner[name]
			if !ok {
				return nil, errors.Wrapf(ErrUnknownKey, "%q in group %d", name, g)
			}
			idx, _ := batches[i].KeyIndex(name)
			spans = append(spans, batches[i].span(idx))
			splitLengths[g] += batches[i].lengthPerKey[idx]
		}
	}
	if len(spans) == 0 {
		return nil, errors.Wrap(ErrMergeIncompatible, "groups name no keys")
	}

	regrouped, err := batches[0].kernels.Cat(spans, keyDim)
	if err != nil {
		return nil, errors.Wrap(err, "concatenate spans")
	}
	out := make([]*tensor.RawTensor, len(groups))
	start := 0
	for g, n := range splitLengths {
		if out[g], err = regrouped.Narrow(keyDim, start, n); err != nil {
			return nil, errors.Wrap(err, "split groups")
		}
		start += n
	}
	return out, nil
}

// RegroupAsDict is Regroup with the i-th output stored under names[i].
func RegroupAsDict(batches []*KeyedDense, groups [][]string, names []string) (map[string]*tensor.RawTensor, error) {
	if len(groups) != len(names) {
		return nil, errors.Wrapf(ErrGroupNamesMismatch, "%d groups, %d names", len(groups), len(names))
	}
	tensors, err := Regroup(batches, groups)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*tensor.RawTensor, len(names))
	for i, name := range names {
		out[name] = tensors[i]
	}
	return out, nil
}

// To returns a copy with values moved to device.
func (kd *KeyedDense) To(device tensor.Device) *KeyedDense {
	out := *kd
	out.values = kd.kernels.Move(kd.values, device)
	return &out
}

// RecordStream keeps the values buffer alive until stream is synchronized.
func (kd *KeyedDense) RecordStream(stream *tensor.Stream) {
	kd.kernels.RecordStream(kd.values, stream)
}

// String renders each key's span.
func (kd *KeyedDense) String() string {
	if len(kd.keys) == 0 {
		return "KeyedDense()\n"
	}
	parts := make([]string, len(kd.keys))
	for i, k := range kd.keys {
		parts[i] = `    "` + k + `": ` + valuesString(kd.span(i).Contiguous())
	}
	return "KeyedDense({\n" + strings.Join(parts, ",\n") + "\n})\n"
}
