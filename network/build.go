// Package network builds the shared-encoder multi-head model graph used by
// the factored classifier: one trainable projection from input features to a
// latent space, one softmax head per dataset, and a stacked joint model over
// all heads.
package network

import (
	"fmt"
	"math/rand"

	"github.com/factoredml/factored/compute"
)

// Config describes the graph to construct.
type Config struct {
	// Features is the input dimensionality (dataset-id column excluded).
	Features int
	// ClassCounts gives the number of classes of each dataset's head, in
	// dataset order.
	ClassCounts []int
	// LatentDim selects factored mode when positive; zero builds the simple
	// (no shared encoder) graph.
	LatentDim int
	// Alpha is the L2 regularization strength, Beta the L1 strength.
	Alpha, Beta float64
	// Activation applies to the encoder output (factored mode only).
	Activation Activation
	// Dropout rate on the encoder output (factored) or raw input (simple).
	Dropout float64
	// FitIntercept adds a bias term to each head.
	FitIntercept bool
	// LearnRate for the Adam optimizers; zero means 1e-3.
	LearnRate float64

	RNG  *rand.Rand
	Pool *compute.Pool
}

// New constructs the per-dataset models and the stacked joint model. In
// factored mode the encoder kernel carries L1 (beta) + L2 (alpha)
// regularization and no bias, and each head carries L2 only; in simple mode
// each head maps raw features to classes with both penalties.
func New(cfg Config) ([]*Model, *Stacked, error) {
	if cfg.Features <= 0 {
		return nil, nil, fmt.Errorf("network: non-positive feature count %d", cfg.Features)
	}
	if len(cfg.ClassCounts) == 0 {
		return nil, nil, fmt.Errorf("network: empty class list")
	}
	for i, n := range cfg.ClassCounts {
		if n <= 0 {
			return nil, nil, fmt.Errorf("network: dataset %d has no classes", i)
		}
	}
	rng := cfg.RNG
	if rng == nil {
		rng = rand.New(rand.NewSource(0))
	}
	pool := cfg.Pool
	if pool == nil {
		pool = compute.Default
	}

	var enc *Dense
	headIn := cfg.Features
	headL1 := cfg.Beta
	if cfg.LatentDim > 0 {
		enc = newDense(cfg.Features, cfg.LatentDim, cfg.Beta, cfg.Alpha, false, cfg.LearnRate, rng)
		headIn = cfg.LatentDim
		headL1 = 0
	}

	models := make([]*Model, len(cfg.ClassCounts))
	heads := make([]*Dense, len(cfg.ClassCounts))
	for i, n := range cfg.ClassCounts {
		head := newDense(headIn, n, headL1, cfg.Alpha, cfg.FitIntercept, cfg.LearnRate, rng)
		heads[i] = head
		models[i] = &Model{
			enc:     enc,
			act:     cfg.Activation,
			dropout: cfg.Dropout,
			head:    head,
			rng:     rng,
			pool:    pool,
		}
	}
	stacked := &Stacked{enc: enc, act: cfg.Activation, heads: heads, pool: pool}
	return models, stacked, nil
}
