package network

import "math"

// adam holds Adam optimizer state for one parameter slice.
type adam struct {
	lr    float64
	beta1 float64
	beta2 float64
	eps   float64
	t     int
	m     []float64
	v     []float64
}

func newAdam(lr float64, n int) *adam {
	if lr <= 0 {
		lr = 1e-3
	}
	return &adam{
		lr:    lr,
		beta1: 0.9,
		beta2: 0.999,
		eps:   1e-8,
		m:     make([]float64, n),
		v:     make([]float64, n),
	}
}

// step applies one Adam update to params in place. params and grads must have
// the same length as the state slices.
func (a *adam) step(params, grads []float64) {
	a.t++
	c1 := 1 - math.Pow(a.beta1, float64(a.t))
	c2 := 1 - math.Pow(a.beta2, float64(a.t))
	for i, g := range grads {
		a.m[i] = a.beta1*a.m[i] + (1-a.beta1)*g
		a.v[i] = a.beta2*a.v[i] + (1-a.beta2)*g*g
		mhat := a.m[i] / c1
		vhat := a.v[i] / c2
		params[i] -= a.lr * mhat / (math.Sqrt(vhat) + a.eps)
	}
}
