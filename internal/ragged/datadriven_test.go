package ragged

import (
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/cockroachdb/datadriven"

	"github.com/born-ml/ragged/internal/tensor"
)

// TestKeyedBatchDataDriven runs the scenario files under testdata.
//
// Commands:
//
//	build keys=(a,b) values=(...) lengths=(...)|offsets=(...) [weights=(...)] [stride=N] [stride-per-key=(...)]
//	info
//	split segments=(...)
//	permute indices=(...)
//	get key=a
//	to-dict
//	dist-splits key-splits=(...)
func TestKeyedBatchDataDriven(t *testing.T) {
	datadriven.Walk(t, "testdata", func(t *testing.T, path string) {
		var b *KeyedBatch
		datadriven.RunTest(t, path, func(t *testing.T, d *datadriven.TestData) string {
			switch d.Cmd {
			case "build":
				var err error
				b, err = buildFromArgs(t, d)
				if err != nil {
					return fmt.Sprintf("error: %v", err)
				}
				return b.String()

			case "info":
				var sb strings.Builder
				fmt.Fprintf(&sb, "lengths: %v\n", mustInts(b.Lengths()))
				fmt.Fprintf(&sb, "offsets: %v\n", mustInts(b.Offsets()))
				fmt.Fprintf(&sb, "length-per-key: %v\n", b.LengthPerKey())
				fmt.Fprintf(&sb, "offset-per-key: %v\n", b.OffsetPerKey())
				fmt.Fprintf(&sb, "lengths-offset-per-key: %v\n", b.LengthsOffsetPerKey())
				if stride, ok := b.Stride(); ok {
					fmt.Fprintf(&sb, "stride: %d\n", stride)
				} else {
					sb.WriteString("stride: none\n")
				}
				fmt.Fprintf(&sb, "variable: %t\n", b.VariableStridePerKey())
				return sb.String()

			case "split":
				parts, err := b.Split(intArgs(t, d, "segments"))
				if err != nil {
					return fmt.Sprintf("error: %v", err)
				}
				var sb strings.Builder
				for _, p := range parts {
					sb.WriteString(p.String())
				}
				return sb.String()

			case "permute":
				p, err := b.Permute(intArgs(t, d, "indices"), false)
				if err != nil {
					return fmt.Sprintf("error: %v", err)
				}
				return p.String()

			case "get":
				var key string
				d.ScanArgs(t, "key", &key)
				seq, err := b.Get(key)
				if err != nil {
					return fmt.Sprintf("error: %v", err)
				}
				return seq.String()

			case "to-dict":
				dict := b.ToDict()
				var sb strings.Builder
				seen := map[string]bool{}
				for _, k := range b.Keys() {
					if seen[k] {
						continue
					}
					seen[k] = true
					fmt.Fprintf(&sb, "%s: %s", k, dict[k].String())
				}
				return sb.String()

			case "dist-splits":
				splits := b.DistSplits(intArgs(t, d, "key-splits"))
				var sb strings.Builder
				for i, label := range b.DistLabels() {
					fmt.Fprintf(&sb, "%s: %v\n", label, splits[i])
				}
				return sb.String()

			default:
				return fmt.Sprintf("unknown command: %s", d.Cmd)
			}
		})
	})
}

func buildFromArgs(t *testing.T, d *datadriven.TestData) (*KeyedBatch, error) {
	var keys []string
	if d.HasArg("keys") {
		keys = stringArgs(t, d, "keys")
	}
	values, err := tensor.FromFloat64s(floatArgs(t, d, "values"), tensor.Float32, tensor.CPU)
	if err != nil {
		t.Fatal(err)
	}

	var opts []Option
	if d.HasArg("lengths") {
		opts = append(opts, WithLengths(tensor.MustFromInts(intArgs(t, d, "lengths"), tensor.Int32, tensor.CPU)))
	}
	if d.HasArg("offsets") {
		opts = append(opts, WithOffsets(tensor.MustFromInts(intArgs(t, d, "offsets"), tensor.Int64, tensor.CPU)))
	}
	if d.HasArg("weights") {
		w, err := tensor.FromFloat64s(floatArgs(t, d, "weights"), tensor.Float32, tensor.CPU)
		if err != nil {
			t.Fatal(err)
		}
		opts = append(opts, WithWeights(w))
	}
	if d.HasArg("stride") {
		var stride int
		d.ScanArgs(t, "stride", &stride)
		opts = append(opts, WithStride(stride))
	}
	if d.HasArg("stride-per-key") {
		var spkpr [][]int
		for _, s := range intArgs(t, d, "stride-per-key") {
			spkpr = append(spkpr, []int{s})
		}
		opts = append(opts, WithStridePerKeyPerRank(spkpr))
	}
	return NewKeyedBatch(keys, values, opts...)
}

func stringArgs(t *testing.T, d *datadriven.TestData, key string) []string {
	for _, arg := range d.CmdArgs {
		if arg.Key == key {
			return arg.Vals
		}
	}
	t.Fatalf("%s: missing argument %q", d.Pos, key)
	return nil
}

func intArgs(t *testing.T, d *datadriven.TestData, key string) []int {
	var out []int
	for _, v := range stringArgs(t, d, key) {
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			t.Fatalf("%s: %s: %v", d.Pos, key, err)
		}
		out = append(out, n)
	}
	return out
}

func floatArgs(t *testing.T, d *datadriven.TestData, key string) []float64 {
	var out []float64
	for _, v := range stringArgs(t, d, key) {
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			t.Fatalf("%s: %s: %v", d.Pos, key, err)
		}
		out = append(out, f)
	}
	return out
}
