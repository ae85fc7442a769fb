package network

import (
	"gonum.org/v1/gonum/mat"

	"github.com/factoredml/factored/compute"
)

// Stacked is the joint view of the graph: every head's pre-softmax output is
// concatenated along the class axis and re-normalized with one softmax. It
// shares the encoder and head weights with the per-dataset models and is used
// for prediction only, never trained.
type Stacked struct {
	enc   *Dense
	act   Activation
	heads []*Dense
	pool  *compute.Pool
}

// Classes returns the total number of concatenated output classes.
func (s *Stacked) Classes() int {
	var n int
	for _, h := range s.heads {
		n += h.Out
	}
	return n
}

// Predict returns joint class probabilities over all datasets' classes for
// each row of x.
func (s *Stacked) Predict(x *mat.Dense) *mat.Dense {
	rows, cols := x.Dims()
	total := s.Classes()
	out := mat.NewDense(rows, total, nil)
	s.pool.Do(rows, func(lo, hi int) {
		sub := x.Slice(lo, hi, 0, cols)
		var z mat.Matrix = sub
		if s.enc != nil {
			z = s.act.apply(s.enc.forward(sub))
		}
		logits := mat.NewDense(hi-lo, total, nil)
		off := 0
		for _, h := range s.heads {
			part := h.forward(z)
			for r := 0; r < hi-lo; r++ {
				for j := 0; j < h.Out; j++ {
					logits.Set(r, off+j, part.At(r, j))
				}
			}
			off += h.Out
		}
		p := softmaxRows(logits)
		for r := lo; r < hi; r++ {
			out.SetRow(r, p.RawRowView(r-lo))
		}
	})
	return out
}
