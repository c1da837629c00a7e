package features

import (
	"github.com/cockroachdb/errors"
	"github.com/pkoukk/tiktoken-go"
)

const (
	// EncodingCL100kBase is the encoding used by GPT-4 and GPT-3.5-turbo.
	EncodingCL100kBase = "cl100k_base"
	// EncodingP50kBase is the encoding used by GPT-3 and Codex.
	EncodingP50kBase = "p50k_base"
	// EncodingR50kBase is the encoding used by older GPT-3 models.
	EncodingR50kBase = "r50k_base"
)

// TikTokenEncoder turns text features into BPE token ids with tiktoken-go.
type TikTokenEncoder struct {
	encoding *tiktoken.Tiktoken
	name     string
}

// NewTikTokenEncoder loads the named encoding.
// The first load may fetch the BPE ranks and cache them locally.
func NewTikTokenEncoder(encodingName string) (*TikTokenEncoder, error) {
	encoding, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, errors.Wrapf(err, "load tiktoken encoding %q", encodingName)
	}
	return &TikTokenEncoder{encoding: encoding, name: encodingName}, nil
}

// NewTikTokenEncoderForModel loads the encoding of a model such as "gpt-4".
func NewTikTokenEncoderForModel(modelName string) (*TikTokenEncoder, error) {
	encoding, err := tiktoken.EncodingForModel(modelName)
	if err != nil {
		return nil, errors.Wrapf(err, "load tiktoken for model %q", modelName)
	}
	return &TikTokenEncoder{encoding: encoding, name: modelName}, nil
}

// Encode converts text to token ids. Special tokens are encoded as text.
func (t *TikTokenEncoder) Encode(text string) ([]int32, error) {
	tokens := t.encoding.Encode(text, nil, nil)
	out := make([]int32, len(tokens))
	for i, tok := range tokens {
		out[i] = int32(tok) //nolint:gosec // G115: vocab size < 2^31.
	}
	return out, nil
}

// Decode converts token ids back to text.
func (t *TikTokenEncoder) Decode(tokens []int32) (string, error) {
	ids := make([]int, len(tokens))
	for i, tok := range tokens {
		ids[i] = int(tok)
	}
	return t.encoding.Decode(ids), nil
}

// Name returns the encoding or model name.
func (t *TikTokenEncoder) Name() string {
	return t.name
}
