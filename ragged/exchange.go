// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package ragged

import (
	"context"

	"github.com/born-ml/ragged/internal/shuffle"
)

// ExchangeOptions configures Exchange.
type ExchangeOptions = shuffle.Options

// ExchangeMetrics counts exchange traffic with prometheus counters.
type ExchangeMetrics = shuffle.Metrics

// Logger receives exchange progress messages.
type Logger = shuffle.Logger

// DefaultLogger writes to the standard logger.
type DefaultLogger = shuffle.DefaultLogger

// NoopLogger discards everything.
type NoopLogger = shuffle.NoopLogger

// ErrWorkerMismatch is returned when exchange inputs disagree on keys or layout.
var ErrWorkerMismatch = shuffle.ErrWorkerMismatch

// NewExchangeMetrics returns unregistered exchange counters.
func NewExchangeMetrics() *ExchangeMetrics {
	return shuffle.NewMetrics()
}

// Exchange runs an in-process all-to-all over one batch per worker and
// returns the batch each worker receives.
//
// Example:
//
//	out, err := ragged.Exchange(ctx, []*ragged.KeyedBatch{w0, w1},
//	    ragged.ExchangeOptions{KeySplits: []int{1, 1}})
func Exchange(ctx context.Context, batches []*KeyedBatch, opts ExchangeOptions) ([]*KeyedBatch, error) {
	return shuffle.Exchange(ctx, batches, opts)
}

// Recat returns the permutation that restores key-major order after an
// all-to-all in which each of numSplits ranks sent localSplit keys.
func Recat(localSplit, numSplits, stagger int, batchSizePerRank []int) []int {
	return shuffle.Recat(localSplit, numSplits, stagger, batchSizePerRank)
}

// StaggeredShuffle orders ranks node-major for two-level topologies.
func StaggeredShuffle(featuresPerRank []int, worldSize, localSize int) ([]int, error) {
	return shuffle.StaggeredShuffle(featuresPerRank, worldSize, localSize)
}
