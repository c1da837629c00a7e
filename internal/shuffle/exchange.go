package shuffle

import (
	"context"
	"slices"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"

	"github.com/born-ml/ragged/internal/ragged"
	"github.com/born-ml/ragged/internal/tensor"
)

// ErrWorkerMismatch is returned when the exchange inputs do not describe one
// batch per worker over a shared key list.
var ErrWorkerMismatch = errors.Mark(errors.New("shuffle: workers disagree"), ragged.ErrPartitionMismatch)

// Options configures Exchange.
type Options struct {
	// KeySplits gives the number of consecutive keys each worker receives.
	// It must have one entry per worker and sum to the number of keys.
	KeySplits []int
	// Stagger is the number of nodes. Values > 1 visit ranks node by node when
	// restoring key-major order.
	Stagger int
	// Logger receives progress messages. Nil means NoopLogger.
	Logger Logger
	// Metrics, when set, counts traffic.
	Metrics *Metrics
}

func (o *Options) ensureDefaults() {
	if o.Logger == nil {
		o.Logger = NoopLogger{}
	}
	if o.Stagger < 1 {
		o.Stagger = 1
	}
}

// Exchange simulates an all-to-all over len(batches) in-process workers.
//
// Every worker holds a batch over the same keys. Worker w sends, for each
// receiver r, the rows of the r-th key group; receiver r rebuilds a batch over
// its keys whose rows are the senders' rows in rank order. The returned slice
// holds one batch per receiver.
func Exchange(ctx context.Context, batches []*ragged.KeyedBatch, opts Options) ([]*ragged.KeyedBatch, error) {
	opts.ensureDefaults()
	if err := checkWorkers(batches, opts.KeySplits); err != nil {
		return nil, err
	}
	n := len(batches)
	keys := batches[0].Keys()
	variable := batches[0].VariableStridePerKey()

	// The same batch may fill several worker slots; derive every lazy cache
	// before the senders share it.
	for _, b := range batches {
		b.Sync().Lengths()
	}

	// sent[w][r] holds the buffers worker w addresses to receiver r, in dist label order.
	sent := make([][][]*tensor.RawTensor, n)
	g, gctx := errgroup.WithContext(ctx)
	for w, b := range batches {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, err := splitForReceivers(b, opts.KeySplits, opts.Metrics)
			if err != nil {
				return errors.Wrapf(err, "worker %d", w)
			}
			sent[w] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		opts.Logger.Errorf("shuffle: send phase failed: %v", err)
		return nil, err
	}

	stridePerRank := make([]int, n)
	if !variable {
		for w, b := range batches {
			stridePerRank[w], _ = b.Stride()
		}
	}

	keyStarts := make([]int, n+1)
	for r, s := range opts.KeySplits {
		keyStarts[r+1] = keyStarts[r] + s
	}

	received := make([]*ragged.KeyedBatch, n)
	g, gctx = errgroup.WithContext(ctx)
	for r := range received {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			buffers := make([]*tensor.RawTensor, len(sent[0][r]))
			for l := range buffers {
				parts := make([]*tensor.RawTensor, n)
				for w := range sent {
					parts[w] = sent[w][r][l]
				}
				cat, err := tensor.Concat(parts)
				if err != nil {
					return errors.Wrapf(err, "receiver %d", r)
				}
				buffers[l] = cat
			}

			localSplit := opts.KeySplits[r]
			var recat []int
			if n > 1 {
				if variable {
					recat = Recat(localSplit, n, opts.Stagger, nil)
				} else {
					recat = Recat(localSplit, n, opts.Stagger, stridePerRank)
				}
			}
			b, err := ragged.DistInit(keys[keyStarts[r]:keyStarts[r+1]], buffers,
				variable, n, recat, stridePerRank, opts.Stagger)
			if err != nil {
				return errors.Wrapf(err, "receiver %d", r)
			}
			received[r] = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		opts.Logger.Errorf("shuffle: receive phase failed: %v", err)
		return nil, err
	}

	if opts.Metrics != nil {
		opts.Metrics.Exchanges.Inc()
	}
	opts.Logger.Infof("shuffle: exchanged %d keys across %d workers", len(keys), n)
	return received, nil
}

func checkWorkers(batches []*ragged.KeyedBatch, keySplits []int) error {
	if len(batches) == 0 {
		return errors.Wrap(ErrWorkerMismatch, "no workers")
	}
	if len(keySplits) != len(batches) {
		return errors.Wrapf(ErrWorkerMismatch, "%d key splits for %d workers", len(keySplits), len(batches))
	}
	first := batches[0]
	total := 0
	for _, s := range keySplits {
		if s < 0 {
			return errors.Wrapf(ErrWorkerMismatch, "negative key split %d", s)
		}
		total += s
	}
	if total != len(first.Keys()) {
		return errors.Wrapf(ErrWorkerMismatch, "key splits sum to %d, have %d keys", total, len(first.Keys()))
	}
	for w, b := range batches[1:] {
		if !slices.Equal(b.Keys(), first.Keys()) {
			return errors.Wrapf(ErrWorkerMismatch, "worker %d has keys %v, expected %v", w+1, b.Keys(), first.Keys())
		}
		if b.VariableStridePerKey() != first.VariableStridePerKey() {
			return errors.Wrapf(ragged.ErrVariableStrideMode, "worker %d", w+1)
		}
		if (b.WeightsOrNil() == nil) != (first.WeightsOrNil() == nil) {
			return errors.Wrapf(ragged.ErrWeightedness, "worker %d", w+1)
		}
	}
	return nil
}

// splitForReceivers cuts each dist buffer of b into one run of rows per receiver.
func splitForReceivers(b *ragged.KeyedBatch, keySplits []int, m *Metrics) ([][]*tensor.RawTensor, error) {
	labels := b.DistLabels()
	splits := b.DistSplits(keySplits)
	tensors := b.DistTensors()

	out := make([][]*tensor.RawTensor, len(keySplits))
	for r := range out {
		out[r] = make([]*tensor.RawTensor, len(tensors))
	}
	for l, t := range tensors {
		start := 0
		for r, size := range splits[l] {
			if start+size > t.Len() {
				return nil, errors.Wrapf(ragged.ErrShapeMismatch, "%s: split %v exceeds %d rows", labels[l], splits[l], t.Len())
			}
			out[r][l] = t.Slice(start, start+size)
			start += size
		}
		if m != nil {
			m.Elements.WithLabelValues(labels[l]).Add(float64(t.NumElements()))
		}
	}
	return out, nil
}
