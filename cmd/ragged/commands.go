package main

import (
	"context"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/born-ml/ragged/internal/batchfile"
	"github.com/born-ml/ragged/internal/features"
	"github.com/born-ml/ragged/internal/ragged"
	"github.com/born-ml/ragged/internal/shuffle"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "ragged [command] (flags)",
		Short:        "keyed ragged batch tool",
		SilenceUsage: true,
	}
	cobra.EnableCommandSorting = false
	root.AddCommand(
		newInspectCmd(),
		newSplitCmd(),
		newPermuteCmd(),
		newShuffleCmd(),
		newTokenizeCmd(),
		newVersionCmd(),
	)
	return root
}

func loadBatch(path string) (*ragged.KeyedBatch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()
	return batchfile.Decode(f)
}

// writeBatches prints batches as a YAML stream or as tables.
func writeBatches(w io.Writer, asYAML bool, batches ...*ragged.KeyedBatch) error {
	for i, b := range batches {
		if asYAML {
			if i > 0 {
				fmt.Fprintln(w, "---")
			}
			if err := batchfile.Encode(w, b); err != nil {
				return err
			}
			continue
		}
		if len(batches) > 1 {
			fmt.Fprintf(w, "# %d\n", i)
		}
		if err := batchfile.Table(w, b); err != nil {
			return err
		}
	}
	return nil
}

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file>",
		Short: "print the rows and per-key sizes of a batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := loadBatch(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if err := batchfile.Table(out, b); err != nil {
				return err
			}
			batchfile.Summary(out, b)
			if stride, ok := b.Stride(); ok {
				fmt.Fprintf(out, "stride: %d\n", stride)
			}
			fmt.Fprintf(out, "variable stride per key: %t\n", b.VariableStridePerKey())
			return nil
		},
	}
}

func newSplitCmd() *cobra.Command {
	var (
		segments []int
		asYAML   bool
	)
	cmd := &cobra.Command{
		Use:   "split <file>",
		Short: "split the keys into consecutive groups",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := loadBatch(args[0])
			if err != nil {
				return err
			}
			parts, err := b.Split(segments)
			if err != nil {
				return err
			}
			return writeBatches(cmd.OutOrStdout(), asYAML, parts...)
		},
	}
	cmd.Flags().IntSliceVar(&segments, "segments", nil, "number of keys in each group")
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "write YAML documents instead of tables")
	_ = cmd.MarkFlagRequired("segments")
	return cmd
}

func newPermuteCmd() *cobra.Command {
	var (
		indices []int
		asYAML  bool
	)
	cmd := &cobra.Command{
		Use:   "permute <file>",
		Short: "reorder, repeat or drop keys by index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := loadBatch(args[0])
			if err != nil {
				return err
			}
			p, err := b.Permute(indices, false)
			if err != nil {
				return err
			}
			return writeBatches(cmd.OutOrStdout(), asYAML, p)
		},
	}
	cmd.Flags().IntSliceVar(&indices, "indices", nil, "source key index for each output key")
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "write a YAML document instead of a table")
	_ = cmd.MarkFlagRequired("indices")
	return cmd
}

func newShuffleCmd() *cobra.Command {
	var (
		workers int
		splits  []int
		stagger int
		verbose bool
		asYAML  bool
	)
	cmd := &cobra.Command{
		Use:   "shuffle <file>...",
		Short: "simulate an all-to-all exchange of per-worker batches",
		Long: `
Each file is the batch of one worker. With a single file and --workers N, every
worker sends a copy of it. --splits gives the number of keys each worker receives.
`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var batches []*ragged.KeyedBatch
			for _, path := range args {
				b, err := loadBatch(path)
				if err != nil {
					return err
				}
				batches = append(batches, b)
			}
			if len(batches) == 1 {
				for len(batches) < workers {
					batches = append(batches, batches[0])
				}
			}
			if len(splits) == 0 {
				splits = evenSplits(len(batches[0].Keys()), len(batches))
			}

			metrics := shuffle.NewMetrics()
			if err := metrics.Register(prometheus.NewRegistry()); err != nil {
				return err
			}
			opts := shuffle.Options{KeySplits: splits, Stagger: stagger, Metrics: metrics}
			if verbose {
				opts.Logger = shuffle.DefaultLogger{}
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			out, err := shuffle.Exchange(ctx, batches, opts)
			if err != nil {
				return err
			}
			if err := writeBatches(cmd.OutOrStdout(), asYAML, out...); err != nil {
				return err
			}
			if verbose {
				for _, label := range []string{ragged.LabelLengths, ragged.LabelValues} {
					m := &dto.Metric{}
					if err := metrics.Elements.WithLabelValues(label).Write(m); err != nil {
						return err
					}
					fmt.Fprintf(cmd.ErrOrStderr(), "%s sent: %g\n", label, m.GetCounter().GetValue())
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&workers, "workers", "w", 1, "number of workers when a single file is given")
	cmd.Flags().IntSliceVar(&splits, "splits", nil, "keys received by each worker (default: even)")
	cmd.Flags().IntVar(&stagger, "stagger", 1, "number of nodes for two-level topologies")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log progress and traffic")
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "write YAML documents instead of tables")
	return cmd
}

// evenSplits spreads n keys over workers, earlier workers taking the remainder.
func evenSplits(n, workers int) []int {
	out := make([]int, workers)
	for i := range out {
		out[i] = n / workers
		if i < n%workers {
			out[i]++
		}
	}
	return out
}

// newEncoder loads a tokenizer by encoding name.
var newEncoder = func(encoding string) (features.Encoder, error) {
	return features.NewTikTokenEncoder(encoding)
}

func newTokenizeCmd() *cobra.Command {
	var (
		encoding  string
		keys      []string
		maxLength int
		asYAML    bool
	)
	cmd := &cobra.Command{
		Use:   "tokenize <examples.yaml>",
		Short: "build a batch of token ids from text features",
		Long: `
The input is a YAML list of examples, each mapping a key to its text. Each key
becomes one key of the batch with one row per example. Keys default to every
key seen, sorted.
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			examples, err := loadExamples(args[0])
			if err != nil {
				return err
			}
			if len(keys) == 0 {
				seen := make(map[string]struct{})
				for _, ex := range examples {
					for k := range ex {
						seen[k] = struct{}{}
					}
				}
				keys = slices.Sorted(maps.Keys(seen))
			}
			enc, err := newEncoder(encoding)
			if err != nil {
				return err
			}
			b, err := features.FromText(enc, keys, examples, features.Options{MaxLength: maxLength})
			if err != nil {
				return err
			}
			return writeBatches(cmd.OutOrStdout(), asYAML, b)
		},
	}
	cmd.Flags().StringVar(&encoding, "encoding", features.EncodingCL100kBase, "tiktoken encoding name")
	cmd.Flags().StringSliceVar(&keys, "keys", nil, "keys to extract, in order")
	cmd.Flags().IntVar(&maxLength, "max-length", 0, "truncate rows to this many tokens (0 keeps all)")
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "write a YAML document instead of a table")
	return cmd
}

func loadExamples(path string) ([]map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	var examples []map[string]string
	if err := yaml.Unmarshal(data, &examples); err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	return examples, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ragged %s\n", version)
		},
	}
}
