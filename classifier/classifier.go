// Package classifier implements the factored multi-dataset estimator: a
// shared low-dimensional encoder trained jointly with one classification head
// per dataset, alternating minibatch optimization with independent per-dataset
// epoch counts, an optional fine-tuning phase with a frozen encoder, and
// prediction routed per dataset or through the stacked joint model.
package classifier

import (
	"fmt"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/factoredml/factored/compute"
	"github.com/factoredml/factored/network"
)

// Strategy is the capability set every classifier variant exposes. X always
// carries the integer dataset id in its final column; strategies that do not
// use it simply drop the column.
type Strategy interface {
	Fit(X *mat.Dense, y []int) error
	Predict(X *mat.Dense) ([]int, error)
	Score(X *mat.Dense, y []int) (float64, error)
}

// Options is the hyperparameter surface of the factored classifier.
type Options struct {
	// LatentDim is the shared encoder's output dimension. Zero selects
	// simple mode: no shared encoder, heads map raw features to classes and
	// fine-tuning is disabled.
	LatentDim int
	// Alpha is the L2 regularization strength, Beta the L1 strength.
	Alpha float64
	Beta  float64
	// Activation applied to the encoder output: linear, relu, tanh, sigmoid.
	Activation string
	// Dropout rate on the encoder output (or raw input in simple mode).
	Dropout float64
	// MaxIter is the per-dataset epoch budget.
	MaxIter int
	// BatchSize for minibatches; zero means 256.
	BatchSize int
	// FitIntercept adds a bias to each head.
	FitIntercept bool
	// FineTune enables the frozen-encoder retraining phase (factored mode
	// only; silently disabled in simple mode).
	FineTune bool
	// EarlyStop enables per-dataset validation-loss early stopping when
	// validation data is supplied.
	EarlyStop bool
	// Workers bounds the numeric worker width for this fit.
	Workers int
	// Seed for the shared random source; zero draws from the clock.
	Seed int64
	// Verbose >= 1 logs an epoch line per dataset epoch boundary.
	Verbose int
}

// DefaultOptions mirrors the estimator's standard configuration.
func DefaultOptions() Options {
	return Options{
		LatentDim:    10,
		Alpha:        0.01,
		Beta:         0.01,
		Activation:   "linear",
		MaxIter:      100,
		BatchSize:    256,
		FitIntercept: true,
		FineTune:     true,
		EarlyStop:    true,
	}
}

// FactoredClassifier learns a shared encoder and one softmax head per
// dataset. Create one with New, then call Fit or FitWithValidation.
type FactoredClassifier struct {
	opts Options

	rng  *rand.Rand
	pool *compute.Pool

	fitted      bool
	fineTuned   bool
	datasetIDs  []int
	index       map[int]int // dataset id -> position in sorted order
	classesList [][]int
	classes     []int // concatenation of per-dataset class sets
	features    int
	models      []*network.Model
	stacked     *network.Stacked
	nEpochs     []float64
	histories   []*History
}

// New returns an unfitted classifier with the given options.
func New(opts Options) *FactoredClassifier {
	return &FactoredClassifier{opts: opts}
}

// Fit trains on X (rows x features+1, final column the dataset id) and labels
// y, one per row.
func (c *FactoredClassifier) Fit(X *mat.Dense, y []int) error {
	return c.FitWithValidation(X, y, nil, nil)
}

// FitWithValidation additionally evaluates each dataset's model on held-out
// data at every epoch boundary, enabling early stopping when configured.
// XVal follows the same layout as X and must contain rows for every training
// dataset.
func (c *FactoredClassifier) FitWithValidation(X *mat.Dense, y []int, XVal *mat.Dense, yVal []int) error {
	if c.opts.MaxIter < 0 {
		return fmt.Errorf("max_iter must be non-negative; got %d", c.opts.MaxIter)
	}
	act, err := network.ParseActivation(c.opts.Activation)
	if err != nil {
		return err
	}

	ids, features, parts, err := partition(X, y)
	if err != nil {
		return err
	}

	doVal := XVal != nil
	var valParts map[int]*part
	if doVal {
		_, valFeatures, vp, err := partition(XVal, yVal)
		if err != nil {
			return fmt.Errorf("validation data: %w", err)
		}
		if valFeatures != features {
			return fmt.Errorf("validation data has %d features, training data has %d", valFeatures, features)
		}
		valParts = vp
	}

	seed := c.opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	c.rng = rand.New(rand.NewSource(seed))
	c.pool = compute.NewPool(c.opts.Workers)

	c.datasetIDs = ids
	c.index = make(map[int]int, len(ids))
	c.classesList = make([][]int, len(ids))
	c.classes = c.classes[:0]
	c.features = features
	for i, id := range ids {
		c.index[id] = i
		classes := classSet(parts[id].y)
		c.classesList[i] = classes
		c.classes = append(c.classes, classes...)
	}

	batchSize := c.opts.BatchSize
	if batchSize <= 0 {
		batchSize = 256
	}

	classCounts := make([]int, len(ids))
	for i := range ids {
		classCounts[i] = len(c.classesList[i])
	}
	models, stacked, err := network.New(network.Config{
		Features:     features,
		ClassCounts:  classCounts,
		LatentDim:    c.opts.LatentDim,
		Alpha:        c.opts.Alpha,
		Beta:         c.opts.Beta,
		Activation:   act,
		Dropout:      c.opts.Dropout,
		FitIntercept: c.opts.FitIntercept,
		RNG:          c.rng,
		Pool:         c.pool,
	})
	if err != nil {
		return err
	}
	c.models = models
	c.stacked = stacked

	states := make([]*datasetState, len(ids))
	for i, id := range ids {
		p := parts[id]
		st := &datasetState{
			id:      id,
			x:       p.X,
			yb:      oneHot(p.y, c.classesList[i]),
			batch:   batchSize,
			stopper: newEarlyStopping(),
			history: &History{},
			model:   models[i],
		}
		if doVal {
			vp, ok := valParts[id]
			if !ok {
				return fmt.Errorf("validation data has no rows for dataset %d", id)
			}
			st.xval = vp.X
			st.ybval = oneHot(vp.y, c.classesList[i])
		}
		// Initial shuffle; the shared random source is consumed in
		// dataset order.
		st.reshuffle(c.rng)
		states[i] = st
	}

	c.alternate(states, doVal)

	c.nEpochs = make([]float64, len(states))
	c.histories = make([]*History, len(states))
	for i, st := range states {
		c.nEpochs[i] = st.epochs
		c.histories[i] = st.history
	}

	c.fineTuned = false
	if c.opts.FineTune && c.opts.LatentDim > 0 {
		c.fineTuneStage(states, doVal)
		c.fineTuned = true
	}

	c.fitted = true
	return nil
}

// DatasetIDs returns the sorted dataset ids seen at fit time.
func (c *FactoredClassifier) DatasetIDs() []int {
	out := make([]int, len(c.datasetIDs))
	copy(out, c.datasetIDs)
	return out
}

// Classes returns the global class list: each dataset's sorted class set
// concatenated in dataset-id order.
func (c *FactoredClassifier) Classes() []int {
	out := make([]int, len(c.classes))
	copy(out, c.classes)
	return out
}

// ClassesByDataset returns the fitted class set of one dataset.
func (c *FactoredClassifier) ClassesByDataset(dataset int) ([]int, error) {
	i, ok := c.index[dataset]
	if !ok {
		return nil, fmt.Errorf("dataset %d: %w", dataset, ErrUnknownDataset)
	}
	out := make([]int, len(c.classesList[i]))
	copy(out, c.classesList[i])
	return out, nil
}

// NEpochs returns the per-dataset epoch counts reached by the alternating
// trainer (fine-tuning epochs excluded), in dataset-id order.
func (c *FactoredClassifier) NEpochs() []float64 {
	out := make([]float64, len(c.nEpochs))
	copy(out, c.nEpochs)
	return out
}

// Histories returns the per-dataset training histories in dataset-id order.
func (c *FactoredClassifier) Histories() []*History { return c.histories }

// FineTuned reports whether the fine-tuning stage actually ran. It is always
// false in simple mode, even when FineTune was requested.
func (c *FactoredClassifier) FineTuned() bool { return c.fineTuned }

// EncoderWeights returns a copy of the shared encoder kernel, or nil in
// simple mode.
func (c *FactoredClassifier) EncoderWeights() *mat.Dense {
	if len(c.models) == 0 {
		return nil
	}
	return c.models[0].EncoderWeights()
}

// Alpha returns the L2 regularization strength.
func (c *FactoredClassifier) Alpha() float64 { return c.opts.Alpha }

// SetAlpha updates the L2 strength for subsequent fits.
func (c *FactoredClassifier) SetAlpha(alpha float64) { c.opts.Alpha = alpha }

// Options returns a copy of the classifier's options.
func (c *FactoredClassifier) Options() Options { return c.opts }
