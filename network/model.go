package network

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/factoredml/factored/compute"
)

// Model is one dataset's classification model: the shared encoder (nil in
// simple mode) followed by that dataset's head and a softmax. All models built
// together share the encoder's weights and optimizer state, so a gradient
// step through any model moves the same encoder.
type Model struct {
	enc     *Dense
	act     Activation
	dropout float64
	head    *Dense
	rng     *rand.Rand
	pool    *compute.Pool
}

// Classes returns the number of output classes of this model's head.
func (m *Model) Classes() int { return m.head.Out }

// TrainBatch runs one forward/backward pass over a minibatch and applies one
// optimizer step to the head (and the encoder, unless frozen). y must be the
// one-hot target matrix for the batch. Returns the batch loss including
// regularization penalties.
func (m *Model) TrainBatch(x, y *mat.Dense) float64 {
	batch, _ := x.Dims()

	var pre, mask *mat.Dense
	var z mat.Matrix = x
	if m.enc != nil {
		pre = m.enc.forward(x)
		a := m.act.apply(pre)
		if m.dropout > 0 {
			mask = m.sampleMask(a)
			a.MulElem(a, mask)
		}
		z = a
	} else if m.dropout > 0 {
		d := mat.DenseCopyOf(x)
		mask = m.sampleMask(d)
		d.MulElem(d, mask)
		z = d
	}

	logits := m.head.forward(z)
	p := softmaxRows(logits)
	loss := crossEntropy(p, y) + m.penalty()

	// Softmax + cross-entropy gradient, averaged over the batch.
	delta := mat.NewDense(batch, m.head.Out, nil)
	delta.Sub(p, y)
	delta.Scale(1/float64(batch), delta)

	deltaZ := m.head.backward(z, delta)
	if m.enc != nil && !m.enc.frozen {
		if mask != nil {
			deltaZ.MulElem(deltaZ, mask)
		}
		m.act.scaleDeriv(deltaZ, pre)
		m.enc.backward(x, deltaZ)
	}
	return loss
}

// sampleMask draws an inverted-dropout mask shaped like ref.
func (m *Model) sampleMask(ref *mat.Dense) *mat.Dense {
	r, c := ref.Dims()
	keep := 1 - m.dropout
	mask := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if m.rng.Float64() < keep {
				mask.Set(i, j, 1/keep)
			}
		}
	}
	return mask
}

// Predict returns class probabilities for each row of x. Dropout is inactive;
// rows are processed in chunks across the pool's workers.
func (m *Model) Predict(x *mat.Dense) *mat.Dense {
	rows, cols := x.Dims()
	out := mat.NewDense(rows, m.head.Out, nil)
	m.pool.Do(rows, func(lo, hi int) {
		sub := x.Slice(lo, hi, 0, cols)
		p := m.forwardEval(sub)
		for r := lo; r < hi; r++ {
			out.SetRow(r, p.RawRowView(r-lo))
		}
	})
	return out
}

func (m *Model) forwardEval(x mat.Matrix) *mat.Dense {
	var z mat.Matrix = x
	if m.enc != nil {
		z = m.act.apply(m.enc.forward(x))
	}
	return softmaxRows(m.head.forward(z))
}

// Evaluate computes mean cross-entropy (plus regularization penalties) and
// accuracy of the model over a labeled set.
func (m *Model) Evaluate(x, y *mat.Dense) (loss, acc float64) {
	p := m.Predict(x)
	return crossEntropy(p, y) + m.penalty(), accuracy(p, y)
}

func (m *Model) penalty() float64 {
	pen := m.head.penalty()
	if m.enc != nil {
		pen += m.enc.penalty()
	}
	return pen
}

// FreezeEncoder stops all further gradient updates to the shared encoder.
// No-op in simple mode.
func (m *Model) FreezeEncoder() {
	if m.enc != nil {
		m.enc.frozen = true
	}
}

// SetDropout changes the dropout rate used by subsequent training steps.
func (m *Model) SetDropout(rate float64) { m.dropout = rate }

// Dropout reports the current dropout rate.
func (m *Model) Dropout() float64 { return m.dropout }

// ScaleLearnRate multiplies the head optimizer's learning rate. The shared
// encoder's rate is left alone; callers freeze it before scaling.
func (m *Model) ScaleLearnRate(f float64) { m.head.scaleLearnRate(f) }

// EncoderWeights returns a copy of the shared encoder kernel, or nil in
// simple mode.
func (m *Model) EncoderWeights() *mat.Dense {
	if m.enc == nil {
		return nil
	}
	return mat.DenseCopyOf(m.enc.W)
}

// softmaxRows applies a row-wise softmax with max subtraction.
func softmaxRows(logits *mat.Dense) *mat.Dense {
	r, c := logits.Dims()
	out := mat.NewDense(r, c, nil)
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
			out.Set(i, j, e)
			sum += e
		}
		for j := 0; j < c; j++ {
			out.Set(i, j, out.At(i, j)/sum)
		}
	}
	return out
}

// crossEntropy is the mean categorical cross-entropy of probabilities p
// against one-hot targets y.
func crossEntropy(p, y *mat.Dense) float64 {
	r, c := y.Dims()
	if r == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if y.At(i, j) > 0 {
				sum -= y.At(i, j) * math.Log(p.At(i, j)+1e-12)
			}
		}
	}
	return sum / float64(r)
}

// accuracy is the fraction of rows whose argmax probability matches the
// one-hot target.
func accuracy(p, y *mat.Dense) float64 {
	r, _ := y.Dims()
	if r == 0 {
		return 0
	}
	var hits int
	for i := 0; i < r; i++ {
		if argmaxRow(p, i) == argmaxRow(y, i) {
			hits++
		}
	}
	return float64(hits) / float64(r)
}

func argmaxRow(m *mat.Dense, row int) int {
	_, c := m.Dims()
	best, bestv := 0, m.At(row, 0)
	for j := 1; j < c; j++ {
		if v := m.At(row, j); v > bestv {
			best, bestv = j, v
		}
	}
	return best
}
