package network

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Activation selects the nonlinearity applied to the encoder output.
type Activation int

const (
	Linear Activation = iota
	ReLU
	Tanh
	Sigmoid
)

// ParseActivation maps a configuration string to an Activation.
func ParseActivation(name string) (Activation, error) {
	switch name {
	case "", "linear":
		return Linear, nil
	case "relu":
		return ReLU, nil
	case "tanh":
		return Tanh, nil
	case "sigmoid":
		return Sigmoid, nil
	}
	return Linear, fmt.Errorf("unknown activation %q", name)
}

func (a Activation) String() string {
	switch a {
	case ReLU:
		return "relu"
	case Tanh:
		return "tanh"
	case Sigmoid:
		return "sigmoid"
	}
	return "linear"
}

// apply returns a new matrix with the activation applied elementwise.
func (a Activation) apply(z *mat.Dense) *mat.Dense {
	r, c := z.Dims()
	out := mat.NewDense(r, c, nil)
	switch a {
	case Linear:
		out.Copy(z)
	case ReLU:
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				v := z.At(i, j)
				if v < 0 {
					v = 0
				}
				out.Set(i, j, v)
			}
		}
	case Tanh:
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				out.Set(i, j, math.Tanh(z.At(i, j)))
			}
		}
	case Sigmoid:
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				out.Set(i, j, 1/(1+math.Exp(-z.At(i, j))))
			}
		}
	}
	return out
}

// scaleDeriv multiplies delta in place by the activation derivative evaluated
// at the pre-activation values.
func (a Activation) scaleDeriv(delta, pre *mat.Dense) {
	if a == Linear {
		return
	}
	r, c := delta.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			z := pre.At(i, j)
			var d float64
			switch a {
			case ReLU:
				if z > 0 {
					d = 1
				}
			case Tanh:
				t := math.Tanh(z)
				d = 1 - t*t
			case Sigmoid:
				s := 1 / (1 + math.Exp(-z))
				d = s * (1 - s)
			}
			delta.Set(i, j, delta.At(i, j)*d)
		}
	}
}
