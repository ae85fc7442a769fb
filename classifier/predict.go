package classifier

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// ErrNotFitted is returned when prediction is attempted before Fit.
var ErrNotFitted = errors.New("classifier is not fitted")

// ErrUnknownDataset is returned when a dataset id was never seen at fit time.
var ErrUnknownDataset = errors.New("unknown dataset id")

// PredictProba runs the stacked joint model over X (features only, no
// dataset-id column) and returns probabilities over the global concatenated
// class set.
func (c *FactoredClassifier) PredictProba(X *mat.Dense) (*mat.Dense, error) {
	if !c.fitted {
		return nil, ErrNotFitted
	}
	if err := c.checkFeatures(X); err != nil {
		return nil, err
	}
	return c.stacked.Predict(X), nil
}

// PredictProbaDataset runs one dataset's model over X (features only) and
// returns probabilities over that dataset's local class set. The dataset id
// must have been seen at fit time.
func (c *FactoredClassifier) PredictProbaDataset(X *mat.Dense, dataset int) (*mat.Dense, error) {
	if !c.fitted {
		return nil, ErrNotFitted
	}
	if err := c.checkFeatures(X); err != nil {
		return nil, err
	}
	i, ok := c.index[dataset]
	if !ok {
		return nil, fmt.Errorf("dataset %d: %w", dataset, ErrUnknownDataset)
	}
	return c.models[i].Predict(X), nil
}

// Predict returns one label per row of X (final column the dataset id), in
// input row order. Rows whose id matches a training dataset are routed to
// that dataset's head and mapped through its local class set; rows with
// unmatched ids go through the stacked model and the global class list.
func (c *FactoredClassifier) Predict(X *mat.Dense) ([]int, error) {
	if !c.fitted {
		return nil, ErrNotFitted
	}
	feats, ids, err := stripIDs(X)
	if err != nil {
		return nil, err
	}
	if err := c.checkFeatures(feats); err != nil {
		return nil, err
	}

	pred := make([]int, len(ids))

	var unknown []int
	byDataset := make(map[int][]int)
	for r, id := range ids {
		if _, ok := c.index[id]; ok {
			byDataset[id] = append(byDataset[id], r)
		} else {
			unknown = append(unknown, r)
		}
	}

	if len(unknown) > 0 {
		p := c.stacked.Predict(gatherRows(feats, unknown))
		for r := range unknown {
			pred[unknown[r]] = c.classes[argmax(p, r)]
		}
	}
	for id, rowIdx := range byDataset {
		i := c.index[id]
		p := c.models[i].Predict(gatherRows(feats, rowIdx))
		classes := c.classesList[i]
		for r := range rowIdx {
			pred[rowIdx[r]] = classes[argmax(p, r)]
		}
	}
	return pred, nil
}

// Score partitions X by dataset and returns the unweighted mean of the
// per-dataset accuracies: a ten-row dataset counts exactly as much as a
// thousand-row one. Rows with unmatched dataset ids are ignored.
func (c *FactoredClassifier) Score(X *mat.Dense, y []int) (float64, error) {
	if !c.fitted {
		return 0, ErrNotFitted
	}
	_, features, parts, err := partition(X, y)
	if err != nil {
		return 0, err
	}
	if features != c.features {
		return 0, fmt.Errorf("input has %d features, model was fitted with %d", features, c.features)
	}
	var accs []float64
	for i, id := range c.datasetIDs {
		p, ok := parts[id]
		if !ok {
			continue
		}
		yb := oneHot(p.y, c.classesList[i])
		_, acc := c.models[i].Evaluate(p.X, yb)
		accs = append(accs, acc)
	}
	if len(accs) == 0 {
		return 0, fmt.Errorf("no rows matched a fitted dataset id")
	}
	return stat.Mean(accs, nil), nil
}

func (c *FactoredClassifier) checkFeatures(X *mat.Dense) error {
	_, cols := X.Dims()
	if cols != c.features {
		return fmt.Errorf("input has %d features, model was fitted with %d", cols, c.features)
	}
	return nil
}

func argmax(p *mat.Dense, row int) int {
	_, c := p.Dims()
	best, bestv := 0, p.At(row, 0)
	for j := 1; j < c; j++ {
		if v := p.At(row, j); v > bestv {
			best, bestv = j, v
		}
	}
	return best
}
