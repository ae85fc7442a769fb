// Package factored assembles classifiers for multi-dataset problems: the
// factored shared-encoder estimator by default, or the plain logistic /
// trace-norm variants, each optionally wrapped in a cross-validated grid
// search when several alpha candidates are given.
package factored

import (
	"fmt"

	"github.com/factoredml/factored/classifier"
	"github.com/factoredml/factored/linear"
	"github.com/factoredml/factored/search"
)

// ClassifierConfig selects and parameterizes a classifier variant.
type ClassifierConfig struct {
	// Alphas are the L2 (or trace) penalty candidates. One value fits
	// directly; several trigger a cross-validated grid search.
	Alphas []float64
	// Beta is the L1 strength of the factored and logistic variants.
	Beta float64
	// Factored selects the shared-encoder estimator; otherwise Penalty
	// picks the plain variant.
	Factored bool
	// LatentDim of the shared encoder (factored only); zero means simple
	// mode.
	LatentDim int
	// Penalty for the non-factored path: "l2" (default), "l1" or "trace".
	Penalty string
	// Activation of the encoder output (factored only).
	Activation string
	// Dropout rate (factored only).
	Dropout float64
	// FitIntercept adds bias terms.
	FitIntercept bool
	// FineTune enables the frozen-encoder retraining phase (factored only).
	FineTune bool
	// MaxIter is the epoch/iteration budget; zero means 10.
	MaxIter int
	// Tol is the convergence tolerance of the plain variants.
	Tol float64
	// TrainSamples scales the plain variants' data-fit term (C = 1/n).
	TrainSamples int
	// Workers bounds numeric parallelism.
	Workers int
	// CVFolds for the grid search; zero means 10.
	CVFolds int
	Seed    int64
	Verbose int
}

// MakeClassifier builds the configured classifier strategy. The factored
// variant uses minibatches of 200 rows; a multi-alpha configuration returns
// a search wrapper that cross-validates each candidate and refits the best.
func MakeClassifier(cfg ClassifierConfig) (classifier.Strategy, error) {
	if len(cfg.Alphas) == 0 {
		return nil, fmt.Errorf("at least one alpha is required")
	}
	maxIter := cfg.MaxIter
	if maxIter == 0 {
		maxIter = 10
	}

	var build func(alpha float64) classifier.Strategy
	switch {
	case cfg.Factored:
		build = func(alpha float64) classifier.Strategy {
			return classifier.New(classifier.Options{
				LatentDim:    cfg.LatentDim,
				Alpha:        alpha,
				Beta:         cfg.Beta,
				Activation:   cfg.Activation,
				Dropout:      cfg.Dropout,
				MaxIter:      maxIter,
				BatchSize:    200,
				FitIntercept: cfg.FitIntercept,
				FineTune:     cfg.FineTune,
				Workers:      cfg.Workers,
				Seed:         cfg.Seed,
				Verbose:      cfg.Verbose,
			})
		}
	case cfg.Penalty == "trace":
		build = func(alpha float64) classifier.Strategy {
			return linear.NewFista(linear.FistaOptions{
				Alpha:   alpha,
				C:       invTrainSamples(cfg.TrainSamples),
				MaxIter: maxIter,
				Tol:     cfg.Tol,
			})
		}
	case cfg.Penalty == "" || cfg.Penalty == "l2" || cfg.Penalty == "l1":
		l1 := cfg.Penalty == "l1"
		build = func(alpha float64) classifier.Strategy {
			opts := linear.LogisticOptions{
				FitIntercept: cfg.FitIntercept,
				MaxIter:      maxIter,
				Tol:          cfg.Tol,
			}
			if l1 {
				opts.L1 = alpha * invTrainSamples(cfg.TrainSamples)
			} else {
				opts.L2 = alpha * invTrainSamples(cfg.TrainSamples)
			}
			return linear.NewLogistic(opts)
		}
	default:
		return nil, fmt.Errorf("unknown penalty %q", cfg.Penalty)
	}

	if len(cfg.Alphas) == 1 {
		return build(cfg.Alphas[0]), nil
	}
	return &search.AlphaCV{
		New:     build,
		Alphas:  cfg.Alphas,
		Folds:   cfg.CVFolds,
		Seed:    cfg.Seed,
		Verbose: cfg.Verbose,
	}, nil
}

func invTrainSamples(n int) float64 {
	if n <= 0 {
		return 1
	}
	return 1 / float64(n)
}
