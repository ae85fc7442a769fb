package datasets

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"gonum.org/v1/gonum/mat"
)

// LoadMatrixCSV reads a headerless numeric CSV into a dense matrix. Every row
// must have the same number of columns. Basis files for the loadings front end
// use this format, one component per row.
func LoadMatrixCSV(path string) (*mat.Dense, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	var data []float64
	rows, cols := 0, 0
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", rows+1, err)
		}
		if cols == 0 {
			cols = len(rec)
		}
		for j, field := range rec {
			v, err := parseFloat(field)
			if err != nil {
				return nil, fmt.Errorf("row %d column %d: %w", rows+1, j+1, err)
			}
			data = append(data, v)
		}
		rows++
	}
	if rows == 0 {
		return nil, fmt.Errorf("no rows in %s", path)
	}
	return mat.NewDense(rows, cols, data), nil
}
