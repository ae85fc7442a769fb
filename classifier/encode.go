package classifier

import (
	"sort"

	"gonum.org/v1/gonum/mat"
)

// classSet returns the sorted unique labels of one dataset. The label-to-
// column mapping implied by the ordering is local to that dataset.
func classSet(labels []int) []int {
	seen := make(map[int]struct{}, len(labels))
	for _, l := range labels {
		seen[l] = struct{}{}
	}
	classes := make([]int, 0, len(seen))
	for l := range seen {
		classes = append(classes, l)
	}
	sort.Ints(classes)
	return classes
}

// oneHot encodes labels against a dataset's class set, columns following the
// sorted class order. Labels outside the class set produce all-zero rows.
// A single-class dataset yields a valid one-column encoding.
func oneHot(labels, classes []int) *mat.Dense {
	col := make(map[int]int, len(classes))
	for j, c := range classes {
		col[c] = j
	}
	out := mat.NewDense(len(labels), len(classes), nil)
	for i, l := range labels {
		if j, ok := col[l]; ok {
			out.Set(i, j, 1)
		}
	}
	return out
}
