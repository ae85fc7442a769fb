package loadings

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func randomDense(rng *rand.Rand, r, c int) *mat.Dense {
	m := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			m.Set(i, j, rng.NormFloat64())
		}
	}
	return m
}

func TestProjectorRecoversLoadingsOnOrthonormalBasis(t *testing.T) {
	// Basis rows e0, e1 of R^4: loadings of any sample are just its first
	// two coordinates.
	basis := mat.NewDense(2, 4, []float64{
		1, 0, 0, 0,
		0, 1, 0, 0,
	})
	x := mat.NewDense(3, 4, []float64{
		1, 2, 0, 0,
		-3, 4, 0, 0,
		0.5, -0.5, 0, 0,
	})
	p := &Projector{Basis: basis}
	l, err := p.Transform(x)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	want := mat.NewDense(3, 2, []float64{1, 2, -3, 4, 0.5, -0.5})
	if !mat.EqualApprox(l, want, 1e-9) {
		t.Fatalf("loadings\n%v\nwant\n%v", mat.Formatted(l), mat.Formatted(want))
	}

	rec := p.InverseTransform(l)
	if !mat.EqualApprox(rec, x, 1e-9) {
		t.Fatal("inverse transform did not reconstruct span components")
	}
}

func TestProjectorFeatureMismatch(t *testing.T) {
	p := &Projector{Basis: mat.NewDense(2, 4, nil)}
	if _, err := p.Transform(mat.NewDense(3, 5, nil)); err == nil {
		t.Fatal("expected error for feature mismatch")
	}
}

func TestProjectorRoundTripOnSpannedData(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	basis := randomDense(rng, 3, 6)
	coef := randomDense(rng, 10, 3)
	x := mat.NewDense(10, 6, nil)
	x.Mul(coef, basis)

	p := &Projector{Basis: basis}
	l, err := p.Transform(x)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if !mat.EqualApprox(p.InverseTransform(l), x, 1e-8) {
		t.Fatal("loadings of spanned data did not reconstruct it")
	}
}

func TestStandardScaler(t *testing.T) {
	x := mat.NewDense(4, 2, []float64{
		1, 10,
		2, 20,
		3, 30,
		4, 40,
	})
	s := &StandardScaler{WithStd: true}
	s.Fit(x)
	out, err := s.Transform(x)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	r, c := out.Dims()
	for j := 0; j < c; j++ {
		var mean, ss float64
		for i := 0; i < r; i++ {
			mean += out.At(i, j)
		}
		mean /= float64(r)
		for i := 0; i < r; i++ {
			d := out.At(i, j) - mean
			ss += d * d
		}
		sd := math.Sqrt(ss / float64(r-1))
		if math.Abs(mean) > 1e-9 || math.Abs(sd-1) > 1e-9 {
			t.Errorf("column %d: mean %v sd %v after scaling", j, mean, sd)
		}
	}
}

func TestStandardScalerErrors(t *testing.T) {
	s := &StandardScaler{}
	if _, err := s.Transform(mat.NewDense(1, 2, nil)); err == nil {
		t.Fatal("expected error transforming before Fit")
	}
	s.Fit(mat.NewDense(2, 2, nil))
	if _, err := s.Transform(mat.NewDense(1, 3, nil)); err == nil {
		t.Fatal("expected error for column mismatch")
	}
}

func TestNewExtractorValidation(t *testing.T) {
	if _, err := NewExtractor(nil, DefaultExtractorOptions()); err == nil {
		t.Fatal("expected error for no bases")
	}
	bases := []*mat.Dense{mat.NewDense(2, 4, nil), mat.NewDense(2, 5, nil)}
	if _, err := NewExtractor(bases, DefaultExtractorOptions()); err == nil {
		t.Fatal("expected error for mismatched basis widths")
	}
	opts := DefaultExtractorOptions()
	opts.ScaleImportance = "cubic"
	if _, err := NewExtractor([]*mat.Dense{mat.NewDense(2, 4, nil)}, opts); !errors.Is(err, ErrScaleImportance) {
		t.Fatalf("err = %v, want ErrScaleImportance", err)
	}
}

func TestExtractorWeightsSumToOne(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	bases := []*mat.Dense{
		randomDense(rng, 2, 6),
		randomDense(rng, 8, 6),
	}
	for _, mode := range []string{"none", "sqrt", "linear"} {
		opts := DefaultExtractorOptions()
		opts.ScaleImportance = mode
		opts.Identity = true
		e, err := NewExtractor(bases, opts)
		if err != nil {
			t.Fatalf("%s: NewExtractor: %v", mode, err)
		}
		sum := e.identityWeight
		for _, w := range e.weights {
			sum += w
		}
		if math.Abs(sum-1) > 1e-9 {
			t.Errorf("%s: weights sum to %v", mode, sum)
		}
	}
}

func TestExtractorTransformShapeAndIDColumn(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	bases := []*mat.Dense{
		randomDense(rng, 3, 5),
		randomDense(rng, 2, 5),
	}
	opts := DefaultExtractorOptions()
	opts.Identity = true
	e, err := NewExtractor(bases, opts)
	if err != nil {
		t.Fatalf("NewExtractor: %v", err)
	}

	// 6 rows of 5 features plus a dataset column alternating 0/1.
	x := randomDense(rng, 6, 6)
	for i := 0; i < 6; i++ {
		x.Set(i, 5, float64(i%2))
	}

	out, err := e.FitTransform(x)
	if err != nil {
		t.Fatalf("FitTransform: %v", err)
	}
	r, c := out.Dims()
	if r != 6 || c != e.OutputDims() {
		t.Fatalf("output %dx%d, want 6x%d", r, c, e.OutputDims())
	}
	// blocks: 3 + 2 loadings columns + 5 identity + id column
	if want := 3 + 2 + 5 + 1; c != want {
		t.Fatalf("output width %d, want %d", c, want)
	}
	for i := 0; i < r; i++ {
		if got := out.At(i, c-1); got != float64(i%2) {
			t.Errorf("row %d dataset id %v, want %v", i, got, float64(i%2))
		}
	}
}

func TestExtractorTransformBeforeFit(t *testing.T) {
	e, err := NewExtractor([]*mat.Dense{mat.NewDense(2, 4, nil)}, ExtractorOptions{})
	if err != nil {
		t.Fatalf("NewExtractor: %v", err)
	}
	if _, err := e.Transform(mat.NewDense(2, 5, nil)); err == nil {
		t.Fatal("expected error transforming before Fit")
	}
}

func TestExtractorColumnMismatch(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	e, err := NewExtractor([]*mat.Dense{randomDense(rng, 2, 4)}, ExtractorOptions{})
	if err != nil {
		t.Fatalf("NewExtractor: %v", err)
	}
	if err := e.Fit(randomDense(rng, 3, 4)); err == nil {
		t.Fatal("expected error for missing dataset column")
	}
}
