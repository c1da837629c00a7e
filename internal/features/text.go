// Package features builds keyed ragged batches from raw example features.
package features

import (
	"github.com/cockroachdb/errors"

	"github.com/born-ml/ragged/internal/ragged"
	"github.com/born-ml/ragged/internal/tensor"
)

// Encoder turns one text feature into token ids.
type Encoder interface {
	Encode(text string) ([]int32, error)
}

// Decoder turns token ids back into text.
type Decoder interface {
	Decode(tokens []int32) (string, error)
}

// Options configures FromText.
type Options struct {
	// MaxLength truncates every row to at most this many tokens. Zero keeps all.
	MaxLength int
	// Device places the produced buffers.
	Device tensor.Device
}

// FromText tokenizes per-example text features into a uniform-stride batch.
//
// Each example maps a key to its text. The batch has one row per (key, example)
// in key-major order, so the stride is len(examples). A key missing from an
// example yields an empty row.
func FromText(enc Encoder, keys []string, examples []map[string]string, opts Options) (*ragged.KeyedBatch, error) {
	if opts.MaxLength < 0 {
		return nil, errors.Newf("features: negative max length %d", opts.MaxLength)
	}
	lengths := make([]int, 0, len(keys)*len(examples))
	var values []int32
	for _, key := range keys {
		for i, ex := range examples {
			text, ok := ex[key]
			if !ok {
				lengths = append(lengths, 0)
				continue
			}
			tokens, err := enc.Encode(text)
			if err != nil {
				return nil, errors.Wrapf(err, "features: encode %q of example %d", key, i)
			}
			if opts.MaxLength > 0 && len(tokens) > opts.MaxLength {
				tokens = tokens[:opts.MaxLength]
			}
			lengths = append(lengths, len(tokens))
			values = append(values, tokens...)
		}
	}

	lt, err := tensor.FromInts(lengths, tensor.Int32, opts.Device)
	if err != nil {
		return nil, errors.Wrap(err, "features: lengths")
	}
	return ragged.FromLengthsSync(keys, tensor.From1D(values, opts.Device), lt,
		ragged.WithStride(len(examples)))
}

// DecodeRows decodes every row of a token sequence.
func DecodeRows(dec Decoder, seq *ragged.Sequence) ([]string, error) {
	rows := seq.ToDense()
	out := make([]string, len(rows))
	for i, row := range rows {
		text, err := dec.Decode(row.Contiguous().AsInt32())
		if err != nil {
			return nil, errors.Wrapf(err, "features: decode row %d", i)
		}
		out[i] = text
	}
	return out, nil
}
