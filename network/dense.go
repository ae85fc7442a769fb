package network

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Dense is a fully connected layer with elastic-net regularization on its
// kernel. The bias is optional. Weight data is owned by the layer so the
// optimizer can update it in place; W wraps the same backing slice.
type Dense struct {
	In, Out int
	L1, L2  float64

	w []float64
	W *mat.Dense
	b []float64 // nil when the layer has no bias

	frozen bool
	optW   *adam
	optB   *adam
}

// newDense builds a layer with Glorot-uniform kernel init and zero bias.
func newDense(in, out int, l1, l2 float64, withBias bool, lr float64, rng *rand.Rand) *Dense {
	w := make([]float64, in*out)
	limit := math.Sqrt(6.0 / float64(in+out))
	for i := range w {
		w[i] = (rng.Float64()*2 - 1) * limit
	}
	d := &Dense{
		In: in, Out: out,
		L1: l1, L2: l2,
		w:    w,
		W:    mat.NewDense(in, out, w),
		optW: newAdam(lr, in*out),
	}
	if withBias {
		d.b = make([]float64, out)
		d.optB = newAdam(lr, out)
	}
	return d
}

// forward computes x·W (+ bias), x being batch×In.
func (d *Dense) forward(x mat.Matrix) *mat.Dense {
	r, _ := x.Dims()
	out := mat.NewDense(r, d.Out, nil)
	out.Mul(x, d.W)
	if d.b != nil {
		for i := 0; i < r; i++ {
			for j := 0; j < d.Out; j++ {
				out.Set(i, j, out.At(i, j)+d.b[j])
			}
		}
	}
	return out
}

// backward applies one optimizer step given the layer input x and the loss
// gradient delta with respect to the layer output (already scaled by 1/batch),
// and returns the gradient with respect to x. The returned gradient is
// computed against the pre-update weights. A frozen layer still propagates
// gradients but does not update.
func (d *Dense) backward(x mat.Matrix, delta *mat.Dense) *mat.Dense {
	r, _ := x.Dims()
	prev := mat.NewDense(r, d.In, nil)
	prev.Mul(delta, d.W.T())

	if d.frozen {
		return prev
	}

	grad := mat.NewDense(d.In, d.Out, nil)
	grad.Mul(x.T(), delta)
	gw := grad.RawMatrix().Data
	for i, w := range d.w {
		gw[i] += 2*d.L2*w + d.L1*sign(w)
	}
	d.optW.step(d.w, gw)

	if d.b != nil {
		gb := make([]float64, d.Out)
		for i := 0; i < r; i++ {
			for j := 0; j < d.Out; j++ {
				gb[j] += delta.At(i, j)
			}
		}
		d.optB.step(d.b, gb)
	}
	return prev
}

// penalty returns the regularization contribution of this layer to the loss,
// matching the gradient terms used in backward.
func (d *Dense) penalty() float64 {
	var p float64
	for _, w := range d.w {
		p += d.L2*w*w + d.L1*math.Abs(w)
	}
	return p
}

func (d *Dense) scaleLearnRate(f float64) {
	d.optW.lr *= f
	if d.optB != nil {
		d.optB.lr *= f
	}
}

func sign(w float64) float64 {
	switch {
	case w > 0:
		return 1
	case w < 0:
		return -1
	}
	return 0
}
