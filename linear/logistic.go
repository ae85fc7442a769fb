// Package linear provides the non-factored classifier variants: multinomial
// logistic regression with elastic-net regularization and a FISTA-based
// trace-norm classifier. Both consume the same input layout as the factored
// estimator (features plus a trailing dataset-id column) and simply ignore
// the id column, training one joint model over the pooled samples.
package linear

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// LogisticOptions configures the multinomial logistic classifier.
type LogisticOptions struct {
	// L2 and L1 regularization strengths.
	L2, L1 float64
	// FitIntercept adds a bias per class.
	FitIntercept bool
	// MaxIter is the full-batch gradient descent epoch budget; zero means 100.
	MaxIter int
	// Tol stops iteration when the loss improves by less than this; zero
	// means 1e-4.
	Tol float64
	// LearnRate for gradient steps; zero means 0.1.
	LearnRate float64
}

// Logistic is a plain multinomial softmax classifier trained by gradient
// descent with a proximal L1 step.
type Logistic struct {
	opts LogisticOptions

	fitted  bool
	classes []int
	w       *mat.Dense // features x classes
	b       []float64
}

// NewLogistic returns an unfitted classifier.
func NewLogistic(opts LogisticOptions) *Logistic {
	if opts.MaxIter <= 0 {
		opts.MaxIter = 100
	}
	if opts.Tol <= 0 {
		opts.Tol = 1e-4
	}
	if opts.LearnRate <= 0 {
		opts.LearnRate = 0.1
	}
	return &Logistic{opts: opts}
}

// Fit trains on X (final column dataset id, ignored) and labels y.
func (l *Logistic) Fit(X *mat.Dense, y []int) error {
	feats, err := dropIDColumn(X)
	if err != nil {
		return err
	}
	rows, cols := feats.Dims()
	if len(y) != rows {
		return fmt.Errorf("X has %d rows but y has %d labels", rows, len(y))
	}

	l.classes = uniqueSorted(y)
	k := len(l.classes)
	yb := oneHot(y, l.classes)

	l.w = mat.NewDense(cols, k, nil)
	l.b = make([]float64, k)

	lr := l.opts.LearnRate
	prev := math.Inf(1)
	for it := 0; it < l.opts.MaxIter; it++ {
		p := l.proba(feats)
		loss := logLoss(p, yb) + l.penalty()

		// delta = (p - y)/n
		delta := mat.NewDense(rows, k, nil)
		delta.Sub(p, yb)
		delta.Scale(1/float64(rows), delta)

		var grad mat.Dense
		grad.Mul(feats.T(), delta)
		for i := 0; i < cols; i++ {
			for j := 0; j < k; j++ {
				g := grad.At(i, j) + 2*l.opts.L2*l.w.At(i, j)
				l.w.Set(i, j, l.w.At(i, j)-lr*g)
			}
		}
		if l.opts.L1 > 0 {
			softThresholdInPlace(l.w, lr*l.opts.L1)
		}
		if l.opts.FitIntercept {
			for j := 0; j < k; j++ {
				var g float64
				for i := 0; i < rows; i++ {
					g += delta.At(i, j)
				}
				l.b[j] -= lr * g
			}
		}

		if math.Abs(prev-loss) < l.opts.Tol {
			break
		}
		prev = loss
	}
	l.fitted = true
	return nil
}

// Predict returns one label per row of X.
func (l *Logistic) Predict(X *mat.Dense) ([]int, error) {
	if !l.fitted {
		return nil, fmt.Errorf("logistic classifier is not fitted")
	}
	feats, err := dropIDColumn(X)
	if err != nil {
		return nil, err
	}
	p := l.proba(feats)
	rows, _ := p.Dims()
	out := make([]int, rows)
	for i := 0; i < rows; i++ {
		out[i] = l.classes[argmaxRow(p, i)]
	}
	return out, nil
}

// Score returns plain accuracy over all rows.
func (l *Logistic) Score(X *mat.Dense, y []int) (float64, error) {
	pred, err := l.Predict(X)
	if err != nil {
		return 0, err
	}
	if len(pred) != len(y) {
		return 0, fmt.Errorf("X has %d rows but y has %d labels", len(pred), len(y))
	}
	return accuracy(pred, y), nil
}

func (l *Logistic) proba(feats *mat.Dense) *mat.Dense {
	rows, _ := feats.Dims()
	k := len(l.classes)
	logits := mat.NewDense(rows, k, nil)
	logits.Mul(feats, l.w)
	if l.opts.FitIntercept {
		for i := 0; i < rows; i++ {
			for j := 0; j < k; j++ {
				logits.Set(i, j, logits.At(i, j)+l.b[j])
			}
		}
	}
	softmaxInPlace(logits)
	return logits
}

func (l *Logistic) penalty() float64 {
	var pen float64
	r, c := l.w.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			w := l.w.At(i, j)
			pen += l.opts.L2*w*w + l.opts.L1*math.Abs(w)
		}
	}
	return pen
}

// Shared helpers.

func dropIDColumn(X *mat.Dense) (*mat.Dense, error) {
	rows, cols := X.Dims()
	if rows == 0 {
		return nil, fmt.Errorf("input has no rows")
	}
	if cols < 2 {
		return nil, fmt.Errorf("input must have at least one feature plus the dataset-id column; got %d columns", cols)
	}
	out := mat.NewDense(rows, cols-1, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols-1; j++ {
			out.Set(i, j, X.At(i, j))
		}
	}
	return out, nil
}

func uniqueSorted(y []int) []int {
	seen := make(map[int]struct{}, len(y))
	for _, v := range y {
		seen[v] = struct{}{}
	}
	out := make([]int, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Ints(out)
	return out
}

func oneHot(y, classes []int) *mat.Dense {
	col := make(map[int]int, len(classes))
	for j, c := range classes {
		col[c] = j
	}
	out := mat.NewDense(len(y), len(classes), nil)
	for i, v := range y {
		if j, ok := col[v]; ok {
			out.Set(i, j, 1)
		}
	}
	return out
}

func softmaxInPlace(logits *mat.Dense) {
	r, c := logits.Dims()
	for i := 0; i < r; i++ {
		maxv := logits.At(i, 0)
		for j := 1; j < c; j++ {
			if v := logits.At(i, j); v > maxv {
				maxv = v
			}
		}
		var sum float64
		for j := 0; j < c; j++ {
			e := math.Exp(logits.At(i, j) - maxv)
			logits.Set(i, j, e)
			sum += e
		}
		for j := 0; j < c; j++ {
			logits.Set(i, j, logits.At(i, j)/sum)
		}
	}
}

func logLoss(p, y *mat.Dense) float64 {
	r, c := y.Dims()
	if r == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if y.At(i, j) > 0 {
				sum -= math.Log(p.At(i, j) + 1e-12)
			}
		}
	}
	return sum / float64(r)
}

func softThresholdInPlace(w *mat.Dense, tau float64) {
	r, c := w.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := w.At(i, j)
			switch {
			case v > tau:
				w.Set(i, j, v-tau)
			case v < -tau:
				w.Set(i, j, v+tau)
			default:
				w.Set(i, j, 0)
			}
		}
	}
}

func argmaxRow(p *mat.Dense, row int) int {
	_, c := p.Dims()
	best, bestv := 0, p.At(row, 0)
	for j := 1; j < c; j++ {
		if v := p.At(row, j); v > bestv {
			best, bestv = j, v
		}
	}
	return best
}

func accuracy(pred, y []int) float64 {
	if len(y) == 0 {
		return 0
	}
	var hits int
	for i := range y {
		if pred[i] == y[i] {
			hits++
		}
	}
	return float64(hits) / float64(len(y))
}
