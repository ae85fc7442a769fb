// Package datasets loads labeled classification tables from CSV files.
//
// A table holds a float feature matrix whose final column is the integer
// dataset id, plus one integer label per row - the exact input layout the
// factored classifier consumes. The label and dataset-id columns are located
// by header name; every remaining column is a feature.
package datasets

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Table is an in-memory labeled sample matrix.
type Table struct {
	// Header names the feature columns, in matrix column order.
	Header []string
	// X is rows x (features+1); the final column is the dataset id.
	X *mat.Dense
	// Y holds one label per row.
	Y []int
}

// Rows returns the number of samples.
func (t *Table) Rows() int {
	r, _ := t.X.Dims()
	return r
}

// Split shuffles rows with the given seed and splits off the last valFrac of
// them as a validation table. valFrac outside (0, 1) returns the whole table
// as train and a nil validation table.
func (t *Table) Split(valFrac float64, seed int64) (train, val *Table) {
	n := t.Rows()
	if valFrac <= 0 || valFrac >= 1 {
		return t, nil
	}
	nVal := int(float64(n) * valFrac)
	if nVal == 0 || nVal == n {
		return t, nil
	}
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	return t.takeRows(perm[:n-nVal]), t.takeRows(perm[n-nVal:])
}

func (t *Table) takeRows(idx []int) *Table {
	_, cols := t.X.Dims()
	x := mat.NewDense(len(idx), cols, nil)
	y := make([]int, len(idx))
	for r, src := range idx {
		for j := 0; j < cols; j++ {
			x.Set(r, j, t.X.At(src, j))
		}
		y[r] = t.Y[src]
	}
	return &Table{Header: t.Header, X: x, Y: y}
}

// NewTable builds a table directly from a matrix and labels, validating row
// counts.
func NewTable(X *mat.Dense, y []int) (*Table, error) {
	rows, _ := X.Dims()
	if rows != len(y) {
		return nil, fmt.Errorf("X has %d rows but y has %d labels", rows, len(y))
	}
	return &Table{X: X, Y: y}, nil
}
