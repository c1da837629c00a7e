package ragged

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/born-ml/ragged/internal/tensor"
)

// MaxRowLength asks ToPaddedDense for a width equal to the longest row.
const MaxRowLength = -1

// Sequence is a flat value buffer split into variable-length rows.
//
// Rows are addressed by lengths or offsets; whichever was not supplied is
// derived on first access and kept. A Sequence is otherwise immutable, and
// lazy derivation is not safe for concurrent first access.
//
// Example:
//
//	values := tensor.From1D([]float32{1, 2, 3, 4, 5, 6, 7, 8}, tensor.CPU)
//	offsets := tensor.MustFromInts([]int{0, 2, 2, 3, 4, 5, 8}, tensor.Int32, tensor.CPU)
//	seq, _ := ragged.NewSequence(values, ragged.WithOffsets(offsets))
//	rows := seq.ToDense() // [1 2] [] [3] [4] [5] [6 7 8]
type Sequence struct {
	values  *tensor.RawTensor
	weights *tensor.RawTensor
	lengths *tensor.RawTensor
	offsets *tensor.RawTensor
	kernels tensor.Kernels
}

// NewSequence builds a Sequence over values. WithLengths or WithOffsets is required.
func NewSequence(values *tensor.RawTensor, opts ...Option) (*Sequence, error) {
	o := buildOptions(opts)
	if err := validateRagged(values, o.lengths, o.offsets, o.weights); err != nil {
		return nil, err
	}
	return &Sequence{
		values:  values,
		weights: o.weights,
		lengths: o.lengths,
		offsets: o.offsets,
		kernels: o.kernels,
	}, nil
}

// validateRagged performs the O(1) checks shared by all ragged constructors.
func validateRagged(values, lengths, offsets, weights *tensor.RawTensor) error {
	if values == nil || values.Dim() == 0 {
		return errors.Wrap(ErrShapeMismatch, "values must have a leading dimension")
	}
	if lengths == nil && offsets == nil {
		return ErrNoAddressing
	}
	if err := checkAddressing("lengths", lengths); err != nil {
		return err
	}
	if err := checkAddressing("offsets", offsets); err != nil {
		return err
	}
	if weights != nil && weights.Len() != values.Len() {
		return errors.Wrapf(ErrShapeMismatch, "%d weights for %d values", weights.Len(), values.Len())
	}
	if offsets != nil && offsets.Len() > 0 {
		if first := mustInts(offsets.Slice(0, 1))[0]; first != 0 {
			return errors.Wrapf(ErrShapeMismatch, "offsets start at %d", first)
		}
		if last := lastInt(offsets); last != values.Len() {
			return errors.Wrapf(ErrShapeMismatch, "offsets end at %d for %d values", last, values.Len())
		}
		if lengths != nil && lengths.Len()+1 != offsets.Len() {
			return errors.Wrapf(ErrShapeMismatch, "%d offsets for %d lengths", offsets.Len(), lengths.Len())
		}
	}
	return nil
}

// EmptySequence returns a sequence with no rows and zero-length typed buffers.
func EmptySequence(
	weighted bool, device tensor.Device, valuesDType, weightsDType, lengthsDType tensor.DataType,
) *Sequence {
	s := &Sequence{
		values:  tensor.Empty(valuesDType, device),
		lengths: tensor.Empty(lengthsDType, device),
		offsets: tensor.Empty(lengthsDType, device),
		kernels: defaultKernels,
	}
	if weighted {
		s.weights = tensor.Empty(weightsDType, device)
	}
	return s
}

// SequenceFromDense builds a sequence whose rows are the given tensors.
// weightRows may be nil; otherwise it must parallel rows.
func SequenceFromDense(rows, weightRows []*tensor.RawTensor, opts ...Option) (*Sequence, error) {
	o := buildOptions(opts)
	if len(rows) == 0 {
		return nil, errors.Wrap(ErrShapeMismatch, "at least one row required")
	}
	lengths := make([]int, len(rows))
	for i, r := range rows {
		lengths[i] = r.Len()
	}
	values, err := o.kernels.Cat(rows, 0)
	if err != nil {
		return nil, errors.Wrap(err, "concatenate rows")
	}
	var weights *tensor.RawTensor
	if weightRows != nil {
		if len(weightRows) != len(rows) {
			return nil, errors.Wrapf(ErrShapeMismatch, "%d weight rows for %d rows", len(weightRows), len(rows))
		}
		if weights, err = o.kernels.Cat(weightRows, 0); err != nil {
			return nil, errors.Wrap(err, "concatenate weight rows")
		}
	}
	lt, err := tensor.FromInts(lengths, tensor.Int32, values.Device())
	if err != nil {
		return nil, err
	}
	return NewSequence(values, WithLengths(lt), WithWeights(weights), WithKernels(o.kernels))
}

// SequenceFromDenseLengths keeps the first lengths[i] entries of row i of a
// (rows, width) buffer. weightsDense may be nil.
func SequenceFromDenseLengths(dense, lengths, weightsDense *tensor.RawTensor, opts ...Option) (*Sequence, error) {
	o := buildOptions(opts)
	if dense.Dim() < 2 {
		return nil, errors.Wrapf(ErrShapeMismatch, "dense input must be at least 2-D, got shape %v", dense.Shape())
	}
	if err := checkAddressing("lengths", lengths); err != nil {
		return nil, err
	}
	width := dense.Size(1)
	for i, l := range mustInts(lengths) {
		if l < 0 || l > width {
			return nil, errors.Wrapf(ErrShapeMismatch, "length %d at row %d outside [0, %d]", l, i, width)
		}
	}
	values, err := o.kernels.PaddedDenseToJagged(dense, lengths)
	if err != nil {
		return nil, errors.Wrap(err, "unpad values")
	}
	var weights *tensor.RawTensor
	if weightsDense != nil {
		if weights, err = o.kernels.PaddedDenseToJagged(weightsDense, lengths); err != nil {
			return nil, errors.Wrap(err, "unpad weights")
		}
	}
	return NewSequence(values, WithLengths(lengths), WithWeights(weights), WithKernels(o.kernels))
}

// Values returns the flat value buffer.
func (s *Sequence) Values() *tensor.RawTensor {
	return s.values
}

// Weights returns the weight buffer or ErrNoWeights.
func (s *Sequence) Weights() (*tensor.RawTensor, error) {
	if s.weights == nil {
		return nil, ErrNoWeights
	}
	return s.weights, nil
}

// WeightsOrNil returns the weight buffer, or nil for an unweighted sequence.
func (s *Sequence) WeightsOrNil() *tensor.RawTensor {
	return s.weights
}

// Lengths returns per-row lengths, deriving them from offsets on first use.
func (s *Sequence) Lengths() *tensor.RawTensor {
	if s.lengths == nil {
		s.lengths = lengthsFromOffsets(s.offsets)
	}
	return s.lengths
}

// LengthsOrNil returns lengths only if supplied or already derived.
func (s *Sequence) LengthsOrNil() *tensor.RawTensor {
	return s.lengths
}

// Offsets returns per-row offsets, deriving them from lengths on first use.
func (s *Sequence) Offsets() *tensor.RawTensor {
	if s.offsets == nil {
		s.offsets = offsetsFromLengths(s.kernels, s.lengths)
	}
	return s.offsets
}

// OffsetsOrNil returns offsets only if supplied or already derived.
func (s *Sequence) OffsetsOrNil() *tensor.RawTensor {
	return s.offsets
}

// NumRows returns the number of rows.
func (s *Sequence) NumRows() int {
	if s.lengths != nil {
		return s.lengths.Len()
	}
	return max(s.offsets.Len()-1, 0)
}

// ToDense returns one view per row.
func (s *Sequence) ToDense() []*tensor.RawTensor {
	return rowViews(s.values, mustInts(s.Offsets()))
}

// ToDenseWeights returns one weight view per row.
func (s *Sequence) ToDenseWeights() ([]*tensor.RawTensor, error) {
	if s.weights == nil {
		return nil, ErrNoWeights
	}
	return rowViews(s.weights, mustInts(s.Offsets())), nil
}

func rowViews(buf *tensor.RawTensor, offs []int) []*tensor.RawTensor {
	if len(offs) == 0 {
		return nil
	}
	rows := make([]*tensor.RawTensor, len(offs)-1)
	for i := range rows {
		rows[i] = buf.Slice(offs[i], offs[i+1])
	}
	return rows
}

// ToPaddedDense lays rows out in a (rows, width) buffer, truncating longer rows
// and padding shorter ones with pad. A negative width means MaxRowLength.
func (s *Sequence) ToPaddedDense(width int, pad float64) (*tensor.RawTensor, error) {
	return s.padded(s.values, width, pad)
}

// ToPaddedDenseWeights is ToPaddedDense for the weights.
func (s *Sequence) ToPaddedDenseWeights(width int, pad float64) (*tensor.RawTensor, error) {
	if s.weights == nil {
		return nil, ErrNoWeights
	}
	return s.padded(s.weights, width, pad)
}

func (s *Sequence) padded(buf *tensor.RawTensor, width int, pad float64) (*tensor.RawTensor, error) {
	if width < 0 {
		width = 0
		for _, l := range mustInts(s.Lengths()) {
			width = max(width, l)
		}
	}
	return s.kernels.JaggedToPaddedDense(buf, s.Offsets(), width, pad)
}

// To returns a copy of the sequence with every buffer moved to device.
func (s *Sequence) To(device tensor.Device) *Sequence {
	return s.mapBuffers(func(t *tensor.RawTensor) *tensor.RawTensor {
		return s.kernels.Move(t, device)
	})
}

// PinMemory returns a copy of the sequence with every buffer pinned.
func (s *Sequence) PinMemory() *Sequence {
	return s.mapBuffers(s.kernels.Pin)
}

func (s *Sequence) mapBuffers(fn func(*tensor.RawTensor) *tensor.RawTensor) *Sequence {
	out := &Sequence{values: fn(s.values), kernels: s.kernels}
	if s.weights != nil {
		out.weights = fn(s.weights)
	}
	if s.lengths != nil {
		out.lengths = fn(s.lengths)
	}
	if s.offsets != nil {
		out.offsets = fn(s.offsets)
	}
	return out
}

// RecordStream keeps every buffer alive until stream is synchronized.
func (s *Sequence) RecordStream(stream *tensor.Stream) {
	for _, t := range []*tensor.RawTensor{s.values, s.weights, s.lengths, s.offsets} {
		if t != nil {
			s.kernels.RecordStream(t, stream)
		}
	}
}

// String renders rows as nested lists.
func (s *Sequence) String() string {
	offs := mustInts(s.Offsets())
	rows := max(len(offs)-1, 0)
	if s.weights == nil {
		return "Sequence({\n    " + rowsString(s.values, offs, 0, rows) + "\n})\n"
	}
	return "Sequence({\n" +
		`    "values": ` + rowsString(s.values, offs, 0, rows) + ",\n" +
		`    "weights": ` + rowsString(s.weights, offs, 0, rows) + "\n})\n"
}

// rowsString renders rows [start, end) of a ragged buffer.
func rowsString(buf *tensor.RawTensor, offs []int, start, end int) string {
	var b strings.Builder
	b.WriteByte('[')
	for i := start; i < end; i++ {
		if i > start {
			b.WriteString(", ")
		}
		b.WriteString(valuesString(buf.Slice(offs[i], offs[i+1])))
	}
	b.WriteByte(']')
	return b.String()
}

func valuesString(t *tensor.RawTensor) string {
	vals := t.Float64s()
	nested := t.Dim() > 1
	inner := 1
	if nested {
		inner = t.Shape()[1:].NumElements()
	}
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range vals {
		if i > 0 {
			b.WriteString(", ")
		}
		if nested && i%inner == 0 {
			b.WriteByte('[')
		}
		b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		if nested && i%inner == inner-1 {
			b.WriteByte(']')
		}
	}
	b.WriteByte(']')
	return b.String()
}
