package classifier

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// part is one dataset's contiguous slice of the training data, rows in their
// original relative order.
type part struct {
	X *mat.Dense
	y []int
}

// partition validates X against y, strips the trailing dataset-id column and
// splits rows by dataset id. Returned ids are sorted ascending. y may be nil
// when only features and routing are needed.
func partition(X *mat.Dense, y []int) (ids []int, features int, parts map[int]*part, err error) {
	rows, cols := X.Dims()
	if rows == 0 {
		return nil, 0, nil, fmt.Errorf("input has no rows")
	}
	if cols < 2 {
		return nil, 0, nil, fmt.Errorf("input must have at least one feature plus the dataset-id column; got %d columns", cols)
	}
	if y != nil && len(y) != rows {
		return nil, 0, nil, fmt.Errorf("X has %d rows but y has %d labels", rows, len(y))
	}
	features = cols - 1

	rowIdx := make(map[int][]int)
	for i := 0; i < rows; i++ {
		id := int(X.At(i, features))
		rowIdx[id] = append(rowIdx[id], i)
	}
	ids = make([]int, 0, len(rowIdx))
	for id := range rowIdx {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	parts = make(map[int]*part, len(ids))
	for _, id := range ids {
		idx := rowIdx[id]
		sub := mat.NewDense(len(idx), features, nil)
		var labels []int
		if y != nil {
			labels = make([]int, len(idx))
		}
		for r, src := range idx {
			for j := 0; j < features; j++ {
				sub.Set(r, j, X.At(src, j))
			}
			if y != nil {
				labels[r] = y[src]
			}
		}
		parts[id] = &part{X: sub, y: labels}
	}
	return ids, features, parts, nil
}

// stripIDs splits X into its feature block and the per-row dataset ids.
func stripIDs(X *mat.Dense) (*mat.Dense, []int, error) {
	rows, cols := X.Dims()
	if rows == 0 {
		return nil, nil, fmt.Errorf("input has no rows")
	}
	if cols < 2 {
		return nil, nil, fmt.Errorf("input must have at least one feature plus the dataset-id column; got %d columns", cols)
	}
	features := cols - 1
	feats := mat.NewDense(rows, features, nil)
	ids := make([]int, rows)
	for i := 0; i < rows; i++ {
		for j := 0; j < features; j++ {
			feats.Set(i, j, X.At(i, j))
		}
		ids[i] = int(X.At(i, features))
	}
	return feats, ids, nil
}

// gatherRows copies the given rows of X into a new matrix.
func gatherRows(X *mat.Dense, idx []int) *mat.Dense {
	_, cols := X.Dims()
	out := mat.NewDense(len(idx), cols, nil)
	for r, src := range idx {
		for j := 0; j < cols; j++ {
			out.Set(r, j, X.At(src, j))
		}
	}
	return out
}
