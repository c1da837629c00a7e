// Package batchfile reads, writes and prints keyed batches described in YAML.
//
// Example file:
//
//	keys: [F0, F1]
//	values: [1, 2, 3, 4, 5, 6, 7, 8]
//	lengths: [2, 0, 1, 1, 1, 3]
//	dtype: float32
package batchfile

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/born-ml/ragged/internal/ragged"
	"github.com/born-ml/ragged/internal/tensor"
)

// File is the YAML form of a keyed batch. Exactly one of Lengths and Offsets
// is normally set; Stride and StridePerKeyPerRank are optional and exclusive.
type File struct {
	Keys                []string  `yaml:"keys"`
	Values              []float64 `yaml:"values"`
	Weights             []float64 `yaml:"weights,omitempty"`
	Lengths             []int     `yaml:"lengths,omitempty"`
	Offsets             []int     `yaml:"offsets,omitempty"`
	Stride              *int      `yaml:"stride,omitempty"`
	StridePerKeyPerRank [][]int   `yaml:"stride_per_key_per_rank,omitempty"`
	DType               string    `yaml:"dtype,omitempty"`
	LengthsDType        string    `yaml:"lengths_dtype,omitempty"`
}

// Decode reads one YAML document from r and builds the batch it describes.
// Unknown fields are rejected.
func Decode(r io.Reader) (*ragged.KeyedBatch, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, errors.Wrap(err, "batchfile: decode")
	}
	return f.Batch()
}

// Batch builds the batch described by f.
func (f *File) Batch() (*ragged.KeyedBatch, error) {
	dtype, err := parseDType(f.DType, tensor.Float32)
	if err != nil {
		return nil, err
	}
	lengthsDType, err := parseDType(f.LengthsDType, tensor.Int32)
	if err != nil {
		return nil, err
	}

	values, err := tensor.FromFloat64s(f.Values, dtype, tensor.CPU)
	if err != nil {
		return nil, errors.Wrap(err, "batchfile: values")
	}
	var opts []ragged.Option
	if f.Lengths != nil {
		lengths, err := tensor.FromInts(f.Lengths, lengthsDType, tensor.CPU)
		if err != nil {
			return nil, errors.Wrap(err, "batchfile: lengths")
		}
		opts = append(opts, ragged.WithLengths(lengths))
	}
	if f.Offsets != nil {
		offsets, err := tensor.FromInts(f.Offsets, lengthsDType, tensor.CPU)
		if err != nil {
			return nil, errors.Wrap(err, "batchfile: offsets")
		}
		opts = append(opts, ragged.WithOffsets(offsets))
	}
	if f.Weights != nil {
		weights, err := tensor.FromFloat64s(f.Weights, tensor.Float32, tensor.CPU)
		if err != nil {
			return nil, errors.Wrap(err, "batchfile: weights")
		}
		opts = append(opts, ragged.WithWeights(weights))
	}
	if f.Stride != nil {
		opts = append(opts, ragged.WithStride(*f.Stride))
	}
	if f.StridePerKeyPerRank != nil {
		opts = append(opts, ragged.WithStridePerKeyPerRank(f.StridePerKeyPerRank))
	}
	return ragged.NewKeyedBatch(f.Keys, values, opts...)
}

func parseDType(name string, def tensor.DataType) (tensor.DataType, error) {
	if name == "" {
		return def, nil
	}
	dt, ok := tensor.ParseDataType(name)
	if !ok {
		return 0, errors.Newf("batchfile: unknown dtype %q", name)
	}
	return dt, nil
}

// FromBatch returns the YAML form of b. Lengths are always written; offsets
// are not.
func FromBatch(b *ragged.KeyedBatch) (*File, error) {
	lengths, err := b.Lengths().Ints()
	if err != nil {
		return nil, errors.Wrap(err, "batchfile: lengths")
	}
	f := &File{
		Keys:         b.Keys(),
		Values:       b.Values().Float64s(),
		Lengths:      lengths,
		DType:        b.Values().DType().String(),
		LengthsDType: b.Lengths().DType().String(),
	}
	if f.Keys == nil {
		f.Keys = []string{}
	}
	if w := b.WeightsOrNil(); w != nil {
		f.Weights = w.Float64s()
	}
	if b.VariableStridePerKey() {
		f.StridePerKeyPerRank = b.StridePerKeyPerRank()
	} else if stride, ok := b.Stride(); ok {
		f.Stride = &stride
	}
	return f, nil
}

// Encode writes b as a YAML document.
func Encode(w io.Writer, b *ragged.KeyedBatch) error {
	f, err := FromBatch(b)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return errors.Wrap(err, "batchfile: encode")
	}
	return enc.Close()
}

// Table renders one table row per batch row: key, row index, length, values
// and, for weighted batches, weights.
func Table(w io.Writer, b *ragged.KeyedBatch) error {
	offs, err := b.Offsets().Ints()
	if err != nil {
		return errors.Wrap(err, "batchfile: offsets")
	}
	rowStarts := b.LengthsOffsetPerKey()
	weights := b.WeightsOrNil()

	header := []string{"Key", "Row", "Length", "Values"}
	if weights != nil {
		header = append(header, "Weights")
	}
	tbl := tablewriter.NewWriter(w)
	tbl.SetHeader(header)
	for i, key := range b.Keys() {
		for r := rowStarts[i]; r < rowStarts[i+1]; r++ {
			lo, hi := offs[r], offs[r+1]
			row := []string{
				key,
				strconv.Itoa(r - rowStarts[i]),
				strconv.Itoa(hi - lo),
				formatRow(b.Values().Slice(lo, hi)),
			}
			if weights != nil {
				row = append(row, formatRow(weights.Slice(lo, hi)))
			}
			tbl.Append(row)
		}
	}
	tbl.Render()
	return nil
}

func formatRow(t *tensor.RawTensor) string {
	vals := t.Float64s()
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// Summary writes one line per key: name, rows and values.
func Summary(w io.Writer, b *ragged.KeyedBatch) {
	lpk := b.LengthPerKey()
	spk := b.StridePerKey()
	for i, key := range b.Keys() {
		fmt.Fprintf(w, "%s: rows=%d values=%d\n", key, spk[i], lpk[i])
	}
}
