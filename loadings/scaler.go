package loadings

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// StandardScaler centers columns and, when WithStd is set, divides by the
// column standard deviation. Zero-variance columns are centered only.
type StandardScaler struct {
	WithStd bool

	mean []float64
	std  []float64
}

// Fit computes per-column statistics.
func (s *StandardScaler) Fit(X *mat.Dense) {
	rows, cols := X.Dims()
	s.mean = make([]float64, cols)
	s.std = make([]float64, cols)
	col := make([]float64, rows)
	for j := 0; j < cols; j++ {
		mat.Col(col, j, X)
		s.mean[j] = stat.Mean(col, nil)
		sd := stat.StdDev(col, nil)
		if sd == 0 {
			sd = 1
		}
		s.std[j] = sd
	}
}

// Transform returns the standardized copy of X.
func (s *StandardScaler) Transform(X *mat.Dense) (*mat.Dense, error) {
	if s.mean == nil {
		return nil, fmt.Errorf("scaler is not fitted")
	}
	rows, cols := X.Dims()
	if cols != len(s.mean) {
		return nil, fmt.Errorf("input has %d columns, scaler was fitted with %d", cols, len(s.mean))
	}
	out := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := X.At(i, j) - s.mean[j]
			if s.WithStd {
				v /= s.std[j]
			}
			out.Set(i, j, v)
		}
	}
	return out, nil
}
