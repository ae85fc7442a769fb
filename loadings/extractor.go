package loadings

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/factoredml/factored/compute"
)

// ErrScaleImportance is returned for an unrecognized importance-scaling mode.
var ErrScaleImportance = errors.New("unknown scale_importance option")

// ExtractorOptions configures the feature-union extractor.
type ExtractorOptions struct {
	// ScaleBases divides each basis component by its standard deviation
	// before projecting.
	ScaleBases bool
	// Standardize divides projected columns by their standard deviation
	// (columns are always centered).
	Standardize bool
	// ScaleImportance balances blocks by basis size: "none", "sqrt" or
	// "linear". Anything else is a configuration error.
	ScaleImportance string
	// Identity appends the standardized raw features as an extra block.
	Identity bool
	// Workers narrows the compute pool during projection.
	Workers int
	Pool    *compute.Pool
}

// DefaultExtractorOptions mirrors the usual front-end configuration.
func DefaultExtractorOptions() ExtractorOptions {
	return ExtractorOptions{
		ScaleBases:      true,
		Standardize:     true,
		ScaleImportance: "sqrt",
	}
}

// Extractor projects samples onto every basis, standardizes and
// importance-weights each block, optionally appends an identity block, and
// re-attaches the trailing dataset-id column. Fit learns the per-block
// standardization statistics; Transform applies them.
type Extractor struct {
	projectors []*Projector
	scalers    []*StandardScaler
	weights    []float64

	identityScaler *StandardScaler
	identityWeight float64

	features int
	fitted   bool
	opts     ExtractorOptions
}

// NewExtractor validates the configuration and prepares (optionally
// std-scaled copies of) the bases. Every basis is components x features and
// all bases must agree on the feature count.
func NewExtractor(bases []*mat.Dense, opts ExtractorOptions) (*Extractor, error) {
	if len(bases) == 0 {
		return nil, fmt.Errorf("at least one basis is required")
	}
	_, features := bases[0].Dims()
	for i, b := range bases[1:] {
		if _, f := b.Dims(); f != features {
			return nil, fmt.Errorf("basis %d has %d features, basis 0 has %d", i+1, f, features)
		}
	}

	sizes := make([]float64, len(bases))
	prepared := make([]*mat.Dense, len(bases))
	for i, b := range bases {
		components, _ := b.Dims()
		sizes[i] = float64(components)
		if opts.ScaleBases {
			prepared[i] = scaleBasisRows(b)
		} else {
			prepared[i] = mat.DenseCopyOf(b)
		}
	}

	scales := make([]float64, 0, len(bases)+1)
	switch opts.ScaleImportance {
	case "", "none":
		for range bases {
			scales = append(scales, 1)
		}
	case "sqrt":
		for _, s := range sizes {
			scales = append(scales, math.Sqrt(s))
		}
	case "linear":
		scales = append(scales, sizes...)
	default:
		return nil, fmt.Errorf("%w: %q", ErrScaleImportance, opts.ScaleImportance)
	}
	if opts.Identity {
		scales = append(scales, 1/float64(features))
	}
	var invSum float64
	for _, s := range scales {
		invSum += 1 / s
	}

	e := &Extractor{
		projectors: make([]*Projector, len(bases)),
		scalers:    make([]*StandardScaler, len(bases)),
		weights:    make([]float64, len(bases)),
		features:   features,
		opts:       opts,
	}
	for i, b := range prepared {
		e.projectors[i] = &Projector{Basis: b, Workers: opts.Workers, Pool: opts.Pool}
		e.scalers[i] = &StandardScaler{WithStd: opts.Standardize}
		e.weights[i] = 1 / scales[i] / invSum
	}
	if opts.Identity {
		e.identityScaler = &StandardScaler{WithStd: opts.Standardize}
		e.identityWeight = 1 / scales[len(scales)-1] / invSum
	}
	return e, nil
}

// Fit learns standardization statistics from X (features plus trailing
// dataset-id column).
func (e *Extractor) Fit(X *mat.Dense) error {
	feats, _, err := splitFeatures(X, e.features)
	if err != nil {
		return err
	}
	for i, p := range e.projectors {
		l, err := p.Transform(feats)
		if err != nil {
			return err
		}
		e.scalers[i].Fit(l)
	}
	if e.identityScaler != nil {
		e.identityScaler.Fit(feats)
	}
	e.fitted = true
	return nil
}

// Transform returns the concatenated weighted blocks with the dataset column
// re-attached as the final column.
func (e *Extractor) Transform(X *mat.Dense) (*mat.Dense, error) {
	if !e.fitted {
		return nil, fmt.Errorf("extractor is not fitted")
	}
	feats, ids, err := splitFeatures(X, e.features)
	if err != nil {
		return nil, err
	}
	rows, _ := feats.Dims()

	blocks := make([]*mat.Dense, 0, len(e.projectors)+1)
	for i, p := range e.projectors {
		l, err := p.Transform(feats)
		if err != nil {
			return nil, err
		}
		scaled, err := e.scalers[i].Transform(l)
		if err != nil {
			return nil, err
		}
		scaled.Scale(e.weights[i], scaled)
		blocks = append(blocks, scaled)
	}
	if e.identityScaler != nil {
		scaled, err := e.identityScaler.Transform(feats)
		if err != nil {
			return nil, err
		}
		scaled.Scale(e.identityWeight, scaled)
		blocks = append(blocks, scaled)
	}

	var total int
	for _, b := range blocks {
		_, c := b.Dims()
		total += c
	}
	out := mat.NewDense(rows, total+1, nil)
	off := 0
	for _, b := range blocks {
		_, c := b.Dims()
		for i := 0; i < rows; i++ {
			for j := 0; j < c; j++ {
				out.Set(i, off+j, b.At(i, j))
			}
		}
		off += c
	}
	for i := 0; i < rows; i++ {
		out.Set(i, total, ids[i])
	}
	return out, nil
}

// FitTransform fits the extractor and transforms the same samples.
func (e *Extractor) FitTransform(X *mat.Dense) (*mat.Dense, error) {
	if err := e.Fit(X); err != nil {
		return nil, err
	}
	return e.Transform(X)
}

// OutputDims reports the transformed width, the dataset column included.
func (e *Extractor) OutputDims() int {
	var total int
	for _, p := range e.projectors {
		c, _ := p.Basis.Dims()
		total += c
	}
	if e.identityScaler != nil {
		total += e.features
	}
	return total + 1
}

func splitFeatures(X *mat.Dense, features int) (*mat.Dense, []float64, error) {
	rows, cols := X.Dims()
	if rows == 0 {
		return nil, nil, fmt.Errorf("input has no rows")
	}
	if cols != features+1 {
		return nil, nil, fmt.Errorf("input has %d columns, expected %d features plus the dataset column", cols, features)
	}
	feats := mat.NewDense(rows, features, nil)
	ids := make([]float64, rows)
	for i := 0; i < rows; i++ {
		for j := 0; j < features; j++ {
			feats.Set(i, j, X.At(i, j))
		}
		ids[i] = X.At(i, features)
	}
	return feats, ids, nil
}

// scaleBasisRows divides each component by its standard deviation across
// features; zero-variance components are left unscaled.
func scaleBasisRows(b *mat.Dense) *mat.Dense {
	rows, cols := b.Dims()
	out := mat.NewDense(rows, cols, nil)
	row := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(row, i, b)
		sd := stat.StdDev(row, nil)
		if sd == 0 {
			sd = 1
		}
		for j := 0; j < cols; j++ {
			out.Set(i, j, b.At(i, j)/sd)
		}
	}
	return out
}
