// Package search provides exhaustive cross-validated selection of the L2
// strength alpha for any classifier strategy.
package search

import (
	"fmt"
	"log"
	"math/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/factoredml/factored/classifier"
)

// Result is one alpha's cross-validation outcome.
type Result struct {
	Alpha  float64
	Mean   float64
	Scores []float64
}

// AlphaCV wraps a classifier factory in an exhaustive grid search over alpha.
// Fit cross-validates every candidate, refits the best one on the full
// training set, and subsequent Predict/Score calls delegate to it. AlphaCV
// itself satisfies the same Strategy contract as the estimators it wraps.
type AlphaCV struct {
	// New builds a fresh, unfitted estimator for one alpha value.
	New func(alpha float64) classifier.Strategy
	// Alphas are the candidate values; at least one is required.
	Alphas []float64
	// Folds is the number of cross-validation folds; zero means 10.
	Folds int
	// Seed drives the row shuffle used to form folds.
	Seed    int64
	Verbose int

	best      classifier.Strategy
	bestAlpha float64
	results   []Result
}

// Fit selects the best alpha by cross-validation and refits it on all data.
func (cv *AlphaCV) Fit(X *mat.Dense, y []int) error {
	if cv.New == nil {
		return fmt.Errorf("search: no estimator factory")
	}
	if len(cv.Alphas) == 0 {
		return fmt.Errorf("search: no alpha candidates")
	}
	rows, _ := X.Dims()
	if rows != len(y) {
		return fmt.Errorf("X has %d rows but y has %d labels", rows, len(y))
	}
	folds := cv.Folds
	if folds <= 0 {
		folds = 10
	}
	if folds > rows {
		folds = rows
	}
	if folds < 2 {
		return fmt.Errorf("search: need at least 2 folds worth of rows, got %d", rows)
	}

	rng := rand.New(rand.NewSource(cv.Seed))
	perm := rng.Perm(rows)

	cv.results = cv.results[:0]
	bestMean := -1.0
	for _, alpha := range cv.Alphas {
		scores := make([]float64, 0, folds)
		for f := 0; f < folds; f++ {
			trainIdx, testIdx := foldSplit(perm, folds, f)
			est := cv.New(alpha)
			if err := est.Fit(take(X, trainIdx), takeLabels(y, trainIdx)); err != nil {
				return fmt.Errorf("alpha %g fold %d: %w", alpha, f, err)
			}
			s, err := est.Score(take(X, testIdx), takeLabels(y, testIdx))
			if err != nil {
				return fmt.Errorf("alpha %g fold %d: %w", alpha, f, err)
			}
			scores = append(scores, s)
		}
		mean := stat.Mean(scores, nil)
		cv.results = append(cv.results, Result{Alpha: alpha, Mean: mean, Scores: scores})
		if cv.Verbose > 0 {
			log.Printf("alpha %g: mean cv accuracy %.4f", alpha, mean)
		}
		if mean > bestMean {
			bestMean = mean
			cv.bestAlpha = alpha
		}
	}

	cv.best = cv.New(cv.bestAlpha)
	return cv.best.Fit(X, y)
}

// Predict delegates to the refitted best estimator.
func (cv *AlphaCV) Predict(X *mat.Dense) ([]int, error) {
	if cv.best == nil {
		return nil, fmt.Errorf("search: not fitted")
	}
	return cv.best.Predict(X)
}

// Score delegates to the refitted best estimator.
func (cv *AlphaCV) Score(X *mat.Dense, y []int) (float64, error) {
	if cv.best == nil {
		return 0, fmt.Errorf("search: not fitted")
	}
	return cv.best.Score(X, y)
}

// BestAlpha returns the winning alpha after Fit.
func (cv *AlphaCV) BestAlpha() float64 { return cv.bestAlpha }

// Results returns the per-alpha cross-validation outcomes.
func (cv *AlphaCV) Results() []Result { return cv.results }

// Best returns the refitted winning estimator.
func (cv *AlphaCV) Best() classifier.Strategy { return cv.best }

// foldSplit partitions the shuffled row order into train/test indices for
// fold f of k.
func foldSplit(perm []int, k, f int) (train, test []int) {
	n := len(perm)
	lo := f * n / k
	hi := (f + 1) * n / k
	test = append(test, perm[lo:hi]...)
	train = append(train, perm[:lo]...)
	train = append(train, perm[hi:]...)
	return train, test
}

func take(X *mat.Dense, idx []int) *mat.Dense {
	_, cols := X.Dims()
	out := mat.NewDense(len(idx), cols, nil)
	for r, src := range idx {
		for j := 0; j < cols; j++ {
			out.Set(r, j, X.At(src, j))
		}
	}
	return out
}

func takeLabels(y []int, idx []int) []int {
	out := make([]int, len(idx))
	for i, src := range idx {
		out[i] = y[src]
	}
	return out
}
