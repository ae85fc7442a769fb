package linear

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// FistaOptions configures the trace-norm classifier.
type FistaOptions struct {
	// Alpha is the trace-norm penalty strength.
	Alpha float64
	// C scales the data-fit term (the original recipe uses 1/train_samples).
	// Zero means 1.
	C float64
	// MaxIter is the FISTA iteration budget; zero means 100.
	MaxIter int
	// Tol stops iteration when the objective improves by less than this;
	// zero means 1e-4.
	Tol float64
}

// Fista is a multinomial logistic classifier with a trace-norm (nuclear norm)
// penalty, optimized with FISTA acceleration. The proximal operator
// soft-thresholds the singular values of the coefficient matrix, driving it
// toward low rank - the convex relaxation of the shared-subspace structure
// the factored model learns explicitly.
type Fista struct {
	opts FistaOptions

	fitted  bool
	classes []int
	w       *mat.Dense // features x classes
}

// NewFista returns an unfitted trace-norm classifier.
func NewFista(opts FistaOptions) *Fista {
	if opts.MaxIter <= 0 {
		opts.MaxIter = 100
	}
	if opts.Tol <= 0 {
		opts.Tol = 1e-4
	}
	if opts.C <= 0 {
		opts.C = 1
	}
	return &Fista{opts: opts}
}

// Fit trains on X (final column dataset id, ignored) and labels y.
func (f *Fista) Fit(X *mat.Dense, y []int) error {
	feats, err := dropIDColumn(X)
	if err != nil {
		return err
	}
	rows, cols := feats.Dims()
	if len(y) != rows {
		return fmt.Errorf("X has %d rows but y has %d labels", rows, len(y))
	}

	f.classes = uniqueSorted(y)
	k := len(f.classes)
	yb := oneHot(y, f.classes)

	// Lipschitz constant of the scaled multinomial logistic gradient:
	// C * smax(X)^2 / (2n).
	var svd mat.SVD
	if !svd.Factorize(feats, mat.SVDNone) {
		return fmt.Errorf("svd of design matrix failed")
	}
	smax := svd.Values(nil)[0]
	lip := f.opts.C * smax * smax / (2 * float64(rows))
	if lip <= 0 {
		lip = 1
	}
	step := 1 / lip

	w := mat.NewDense(cols, k, nil)
	wPrev := mat.NewDense(cols, k, nil)
	t := 1.0
	prevObj := math.Inf(1)

	for it := 0; it < f.opts.MaxIter; it++ {
		// Momentum point.
		tNext := (1 + math.Sqrt(1+4*t*t)) / 2
		beta := (t - 1) / tNext
		z := mat.NewDense(cols, k, nil)
		z.Sub(w, wPrev)
		z.Scale(beta, z)
		z.Add(z, w)

		// Gradient of the data-fit term at z.
		logits := mat.NewDense(rows, k, nil)
		logits.Mul(feats, z)
		softmaxInPlace(logits)
		delta := mat.NewDense(rows, k, nil)
		delta.Sub(logits, yb)
		delta.Scale(f.opts.C/float64(rows), delta)
		var grad mat.Dense
		grad.Mul(feats.T(), delta)

		wPrev.Copy(w)
		w.Scale(-step, &grad)
		w.Add(w, z)
		if err := svSoftThreshold(w, f.opts.Alpha*step); err != nil {
			return err
		}
		t = tNext

		obj := f.objective(feats, yb, w)
		if math.Abs(prevObj-obj) < f.opts.Tol {
			break
		}
		prevObj = obj
	}

	f.w = w
	f.fitted = true
	return nil
}

// Predict returns one label per row of X.
func (f *Fista) Predict(X *mat.Dense) ([]int, error) {
	if !f.fitted {
		return nil, fmt.Errorf("trace-norm classifier is not fitted")
	}
	feats, err := dropIDColumn(X)
	if err != nil {
		return nil, err
	}
	rows, _ := feats.Dims()
	logits := mat.NewDense(rows, len(f.classes), nil)
	logits.Mul(feats, f.w)
	out := make([]int, rows)
	for i := 0; i < rows; i++ {
		out[i] = f.classes[argmaxRow(logits, i)]
	}
	return out, nil
}

// Score returns plain accuracy over all rows.
func (f *Fista) Score(X *mat.Dense, y []int) (float64, error) {
	pred, err := f.Predict(X)
	if err != nil {
		return 0, err
	}
	if len(pred) != len(y) {
		return 0, fmt.Errorf("X has %d rows but y has %d labels", len(pred), len(y))
	}
	return accuracy(pred, y), nil
}

func (f *Fista) objective(feats, yb, w *mat.Dense) float64 {
	rows, _ := feats.Dims()
	logits := mat.NewDense(rows, len(f.classes), nil)
	logits.Mul(feats, w)
	softmaxInPlace(logits)
	obj := f.opts.C * logLoss(logits, yb)

	var svd mat.SVD
	if svd.Factorize(w, mat.SVDNone) {
		for _, s := range svd.Values(nil) {
			obj += f.opts.Alpha * s
		}
	}
	return obj
}

// svSoftThreshold replaces w with its singular-value soft-thresholding,
// prox of tau times the nuclear norm.
func svSoftThreshold(w *mat.Dense, tau float64) error {
	var svd mat.SVD
	if !svd.Factorize(w, mat.SVDThin) {
		return fmt.Errorf("svd failed in trace-norm prox")
	}
	s := svd.Values(nil)
	for i := range s {
		s[i] -= tau
		if s[i] < 0 {
			s[i] = 0
		}
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	d := mat.NewDiagDense(len(s), s)
	var us mat.Dense
	us.Mul(&u, d)
	w.Mul(&us, v.T())
	return nil
}
