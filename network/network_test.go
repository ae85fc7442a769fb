package network

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/factoredml/factored/compute"
)

func testConfig(features, latent int, counts []int) Config {
	return Config{
		Features:     features,
		ClassCounts:  counts,
		LatentDim:    latent,
		Alpha:        1e-4,
		Beta:         1e-4,
		FitIntercept: true,
		RNG:          rand.New(rand.NewSource(1)),
		Pool:         compute.NewPool(1),
	}
}

// twoClassBatch builds a separable batch: class 0 around -2, class 1 around +2
// on the first feature.
func twoClassBatch(rng *rand.Rand, n, features int) (*mat.Dense, *mat.Dense) {
	x := mat.NewDense(n, features, nil)
	y := mat.NewDense(n, 2, nil)
	for i := 0; i < n; i++ {
		class := i % 2
		center := -2.0
		if class == 1 {
			center = 2.0
		}
		x.Set(i, 0, center+rng.NormFloat64()*0.2)
		for j := 1; j < features; j++ {
			x.Set(i, j, rng.NormFloat64()*0.2)
		}
		y.Set(i, class, 1)
	}
	return x, y
}

func TestNewValidation(t *testing.T) {
	if _, _, err := New(testConfig(3, 2, nil)); err == nil {
		t.Fatal("expected error for empty class list")
	}
	if _, _, err := New(testConfig(3, 2, []int{2, 0})); err == nil {
		t.Fatal("expected error for zero-class dataset")
	}
	if _, _, err := New(testConfig(0, 2, []int{2})); err == nil {
		t.Fatal("expected error for zero features")
	}
}

func TestPredictRowsSumToOne(t *testing.T) {
	models, stacked, err := New(testConfig(4, 3, []int{2, 3}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	rng := rand.New(rand.NewSource(2))
	x, _ := twoClassBatch(rng, 10, 4)

	for mi, m := range models {
		p := m.Predict(x)
		r, c := p.Dims()
		if c != m.Classes() {
			t.Fatalf("model %d: %d output columns, want %d", mi, c, m.Classes())
		}
		for i := 0; i < r; i++ {
			var sum float64
			for j := 0; j < c; j++ {
				sum += p.At(i, j)
			}
			if math.Abs(sum-1) > 1e-9 {
				t.Errorf("model %d row %d sums to %v", mi, i, sum)
			}
		}
	}

	sp := stacked.Predict(x)
	_, c := sp.Dims()
	if c != 5 {
		t.Fatalf("stacked outputs %d classes, want 5", c)
	}
	for i := 0; i < 10; i++ {
		var sum float64
		for j := 0; j < c; j++ {
			sum += sp.At(i, j)
		}
		if math.Abs(sum-1) > 1e-9 {
			t.Errorf("stacked row %d sums to %v", i, sum)
		}
	}
}

func TestTrainBatchReducesLoss(t *testing.T) {
	models, _, err := New(testConfig(4, 3, []int{2}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	m := models[0]
	rng := rand.New(rand.NewSource(3))
	x, y := twoClassBatch(rng, 64, 4)

	before, _ := m.Evaluate(x, y)
	for i := 0; i < 200; i++ {
		m.TrainBatch(x, y)
	}
	after, acc := m.Evaluate(x, y)
	if after >= before {
		t.Fatalf("loss did not decrease: before %v, after %v", before, after)
	}
	if acc < 0.9 {
		t.Fatalf("accuracy %v after training on separable data", acc)
	}
}

func TestSharedEncoderMovesWithEveryHead(t *testing.T) {
	models, _, err := New(testConfig(4, 3, []int{2, 2}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	rng := rand.New(rand.NewSource(4))
	x, y := twoClassBatch(rng, 32, 4)

	w0 := models[0].EncoderWeights()
	models[1].TrainBatch(x, y) // training head 1 must move the shared encoder
	w1 := models[0].EncoderWeights()
	if mat.EqualApprox(w0, w1, 0) {
		t.Fatal("shared encoder unchanged after training another head")
	}
}

func TestFrozenEncoderDoesNotMove(t *testing.T) {
	models, _, err := New(testConfig(4, 3, []int{2}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	m := models[0]
	rng := rand.New(rand.NewSource(5))
	x, y := twoClassBatch(rng, 32, 4)

	m.TrainBatch(x, y)
	m.FreezeEncoder()
	before := m.EncoderWeights()
	for i := 0; i < 50; i++ {
		m.TrainBatch(x, y)
	}
	after := m.EncoderWeights()
	if !mat.EqualApprox(before, after, 0) {
		t.Fatal("frozen encoder weights changed during training")
	}
}

func TestSimpleModeHasNoEncoder(t *testing.T) {
	models, _, err := New(testConfig(4, 0, []int{2}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if w := models[0].EncoderWeights(); w != nil {
		t.Fatal("simple mode should have no encoder weights")
	}
}

func TestDropoutDisabledAtEvaluation(t *testing.T) {
	cfg := testConfig(4, 3, []int{2})
	cfg.Dropout = 0.5
	models, _, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	m := models[0]
	rng := rand.New(rand.NewSource(6))
	x, _ := twoClassBatch(rng, 8, 4)

	// Evaluation is deterministic: dropout only applies to training steps.
	p1 := m.Predict(x)
	p2 := m.Predict(x)
	if !mat.EqualApprox(p1, p2, 0) {
		t.Fatal("prediction is not deterministic with dropout configured")
	}
}

func TestScaleLearnRateAndSetDropout(t *testing.T) {
	cfg := testConfig(4, 3, []int{2})
	cfg.Dropout = 0.3
	models, _, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	m := models[0]
	if m.Dropout() != 0.3 {
		t.Fatalf("Dropout = %v, want 0.3", m.Dropout())
	}
	m.SetDropout(0)
	if m.Dropout() != 0 {
		t.Fatalf("Dropout = %v after SetDropout(0)", m.Dropout())
	}
	// A tenth of the learning rate still trains, just slower; smoke-check
	// that a step after scaling changes the head.
	m.ScaleLearnRate(0.1)
	rng := rand.New(rand.NewSource(7))
	x, y := twoClassBatch(rng, 16, 4)
	before, _ := m.Evaluate(x, y)
	for i := 0; i < 100; i++ {
		m.TrainBatch(x, y)
	}
	after, _ := m.Evaluate(x, y)
	if after >= before {
		t.Fatalf("loss did not decrease after lr scaling: %v -> %v", before, after)
	}
}

func TestParseActivation(t *testing.T) {
	for _, name := range []string{"", "linear", "relu", "tanh", "sigmoid"} {
		if _, err := ParseActivation(name); err != nil {
			t.Errorf("ParseActivation(%q): %v", name, err)
		}
	}
	if _, err := ParseActivation("swish"); err == nil {
		t.Error("expected error for unknown activation")
	}
}
