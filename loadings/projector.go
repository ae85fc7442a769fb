// Package loadings builds the projection front end of the classifier: input
// samples are re-expressed as least-squares loadings over one or more basis
// sets, optionally standardized and importance-weighted, concatenated, and
// passed on with their trailing dataset-id column intact.
package loadings

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/factoredml/factored/compute"
)

// Projector computes least-squares loadings of samples onto one basis
// (components x features). While a projection runs, the compute pool is
// narrowed to Workers and restored afterwards, even when the solve fails.
type Projector struct {
	Basis   *mat.Dense
	Workers int
	Pool    *compute.Pool
}

// Transform solves basis' * loadings' = X' in the least-squares sense and
// returns the loadings (samples x components).
func (p *Projector) Transform(X mat.Matrix) (*mat.Dense, error) {
	pool := p.Pool
	if pool == nil {
		pool = compute.Default
	}
	restore := pool.Narrow(p.Workers)
	defer restore()

	_, basisFeatures := p.Basis.Dims()
	_, features := X.Dims()
	if features != basisFeatures {
		return nil, fmt.Errorf("basis has %d features but input has %d", basisFeatures, features)
	}
	var lt mat.Dense
	if err := lt.Solve(p.Basis.T(), X.T()); err != nil {
		return nil, fmt.Errorf("projection solve failed: %w", err)
	}
	return mat.DenseCopyOf(lt.T()), nil
}

// InverseTransform reconstructs samples from loadings.
func (p *Projector) InverseTransform(loadings mat.Matrix) *mat.Dense {
	r, _ := loadings.Dims()
	_, features := p.Basis.Dims()
	rec := mat.NewDense(r, features, nil)
	rec.Mul(loadings, p.Basis)
	return rec
}
