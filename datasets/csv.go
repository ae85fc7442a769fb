package datasets

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// LoadCSV reads a labeled table from a CSV file with a header row. labelCol
// and datasetCol name the label and dataset-id columns (matched
// case-insensitively); all other columns are parsed as float features. The
// dataset-id column is placed last in the returned matrix.
func LoadCSV(path, labelCol, datasetCol string) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	labelIdx, datasetIdx := -1, -1
	var featIdx []int
	var featNames []string
	for i, col := range header {
		switch normalize(col) {
		case normalize(labelCol):
			labelIdx = i
		case normalize(datasetCol):
			datasetIdx = i
		default:
			featIdx = append(featIdx, i)
			featNames = append(featNames, strings.TrimSpace(col))
		}
	}
	if labelIdx < 0 {
		return nil, fmt.Errorf("label column %q not found in %s", labelCol, path)
	}
	if datasetIdx < 0 {
		return nil, fmt.Errorf("dataset column %q not found in %s", datasetCol, path)
	}
	if len(featIdx) == 0 {
		return nil, fmt.Errorf("no feature columns in %s", path)
	}

	var data []float64
	var labels []int
	rows := 0
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", rows+2, err)
		}
		for _, j := range featIdx {
			v, err := parseFloat(rec[j])
			if err != nil {
				return nil, fmt.Errorf("row %d column %q: %w", rows+2, header[j], err)
			}
			data = append(data, v)
		}
		id, err := parseInt(rec[datasetIdx])
		if err != nil {
			return nil, fmt.Errorf("row %d dataset id: %w", rows+2, err)
		}
		data = append(data, float64(id))
		label, err := parseInt(rec[labelIdx])
		if err != nil {
			return nil, fmt.Errorf("row %d label: %w", rows+2, err)
		}
		labels = append(labels, label)
		rows++
	}
	if rows == 0 {
		return nil, fmt.Errorf("no data rows in %s", path)
	}

	return &Table{
		Header: featNames,
		X:      mat.NewDense(rows, len(featIdx)+1, data),
		Y:      labels,
	}, nil
}

func normalize(s string) string {
	return strings.TrimSpace(strings.ToLower(s))
}

func parseFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty value")
	}
	return strconv.ParseFloat(s, 64)
}

func parseInt(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty value")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return int(v), nil
}
