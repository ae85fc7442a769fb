package search

import (
	"sort"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/factoredml/factored/classifier"
)

// fakeEstimator scores a fixed value per alpha and records Fit calls, so the
// test can watch the search pick the winner and refit it.
type fakeEstimator struct {
	alpha  float64
	score  float64
	record *[]fitCall
}

type fitCall struct {
	alpha float64
	rows  int
}

func (f *fakeEstimator) Fit(X *mat.Dense, y []int) error {
	rows, _ := X.Dims()
	*f.record = append(*f.record, fitCall{alpha: f.alpha, rows: rows})
	return nil
}

func (f *fakeEstimator) Predict(X *mat.Dense) ([]int, error) {
	rows, _ := X.Dims()
	return make([]int, rows), nil
}

func (f *fakeEstimator) Score(X *mat.Dense, y []int) (float64, error) {
	return f.score, nil
}

func fixedScores(scores map[float64]float64, record *[]fitCall) func(float64) classifier.Strategy {
	return func(alpha float64) classifier.Strategy {
		return &fakeEstimator{alpha: alpha, score: scores[alpha], record: record}
	}
}

func gridData(rows int) (*mat.Dense, []int) {
	x := mat.NewDense(rows, 3, nil)
	y := make([]int, rows)
	for i := range y {
		y[i] = i % 2
	}
	return x, y
}

func TestAlphaCVPicksHighestMeanScore(t *testing.T) {
	var calls []fitCall
	cv := &AlphaCV{
		New:    fixedScores(map[float64]float64{0.1: 0.6, 1: 0.9, 10: 0.7}, &calls),
		Alphas: []float64{0.1, 1, 10},
		Folds:  5,
	}
	x, y := gridData(50)
	if err := cv.Fit(x, y); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if cv.BestAlpha() != 1 {
		t.Fatalf("BestAlpha = %v, want 1", cv.BestAlpha())
	}
	if len(cv.Results()) != 3 {
		t.Fatalf("%d results, want 3", len(cv.Results()))
	}
	for _, r := range cv.Results() {
		if len(r.Scores) != 5 {
			t.Errorf("alpha %v has %d fold scores, want 5", r.Alpha, len(r.Scores))
		}
	}

	// The last Fit call is the refit of the winner on the full data.
	last := calls[len(calls)-1]
	if last.alpha != 1 || last.rows != 50 {
		t.Fatalf("refit call = %+v, want alpha 1 on 50 rows", last)
	}
	if cv.Best() == nil {
		t.Fatal("Best() is nil after Fit")
	}
}

func TestAlphaCVFoldSizes(t *testing.T) {
	perm := make([]int, 23)
	for i := range perm {
		perm[i] = i
	}
	var all []int
	for f := 0; f < 5; f++ {
		train, test := foldSplit(perm, 5, f)
		if len(train)+len(test) != 23 {
			t.Fatalf("fold %d splits into %d+%d rows", f, len(train), len(test))
		}
		all = append(all, test...)
	}
	sort.Ints(all)
	for i, v := range all {
		if v != i {
			t.Fatalf("test folds do not cover every row exactly once: %v", all)
		}
	}
}

func TestAlphaCVErrors(t *testing.T) {
	var calls []fitCall
	x, y := gridData(10)

	cv := &AlphaCV{Alphas: []float64{1}}
	if err := cv.Fit(x, y); err == nil {
		t.Fatal("expected error without a factory")
	}

	cv = &AlphaCV{New: fixedScores(nil, &calls)}
	if err := cv.Fit(x, y); err == nil {
		t.Fatal("expected error without alpha candidates")
	}

	cv = &AlphaCV{New: fixedScores(nil, &calls), Alphas: []float64{1}}
	if err := cv.Fit(mat.NewDense(1, 3, nil), []int{0}); err == nil {
		t.Fatal("expected error with a single row")
	}

	if _, err := cv.Predict(x); err == nil {
		t.Fatal("expected error predicting before Fit")
	}
	if _, err := cv.Score(x, y); err == nil {
		t.Fatal("expected error scoring before Fit")
	}
}
