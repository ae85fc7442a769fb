package datasets

import (
	"os"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return path
}

func TestLoadCSV(t *testing.T) {
	path := writeCSV(t, "f1,f2,target,study\n"+
		"1.5,2.0,1,0\n"+
		"3.5,4.0,0,1\n"+
		"5.5,6.0,2.0,0\n")

	tab, err := LoadCSV(path, "target", "study")
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}
	if tab.Rows() != 3 {
		t.Fatalf("Rows = %d, want 3", tab.Rows())
	}
	if len(tab.Header) != 2 || tab.Header[0] != "f1" || tab.Header[1] != "f2" {
		t.Fatalf("Header = %v", tab.Header)
	}
	want := mat.NewDense(3, 3, []float64{
		1.5, 2.0, 0,
		3.5, 4.0, 1,
		5.5, 6.0, 0,
	})
	if !mat.EqualApprox(tab.X, want, 0) {
		t.Fatalf("X =\n%v", mat.Formatted(tab.X))
	}
	for i, label := range []int{1, 0, 2} {
		if tab.Y[i] != label {
			t.Errorf("Y[%d] = %d, want %d", i, tab.Y[i], label)
		}
	}
}

func TestLoadCSVColumnNamesCaseInsensitive(t *testing.T) {
	path := writeCSV(t, "F1, Target ,Study\n1,0,0\n")
	tab, err := LoadCSV(path, "target", "study")
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}
	if tab.Rows() != 1 || len(tab.Header) != 1 {
		t.Fatalf("unexpected table: %d rows, header %v", tab.Rows(), tab.Header)
	}
}

func TestLoadCSVErrors(t *testing.T) {
	if _, err := LoadCSV(filepath.Join(t.TempDir(), "nope.csv"), "y", "d"); err == nil {
		t.Fatal("expected error for missing file")
	}

	path := writeCSV(t, "f1,target,study\n")
	if _, err := LoadCSV(path, "target", "study"); err == nil {
		t.Fatal("expected error for empty data")
	}

	path = writeCSV(t, "f1,target,study\n1,0,0\n")
	if _, err := LoadCSV(path, "missing", "study"); err == nil {
		t.Fatal("expected error for missing label column")
	}
	if _, err := LoadCSV(path, "target", "missing"); err == nil {
		t.Fatal("expected error for missing dataset column")
	}

	path = writeCSV(t, "f1,target,study\nbad,0,0\n")
	if _, err := LoadCSV(path, "target", "study"); err == nil {
		t.Fatal("expected error for non-numeric feature")
	}
}

func TestLoadMatrixCSV(t *testing.T) {
	path := writeCSV(t, "1,2,3\n4,5,6\n")
	m, err := LoadMatrixCSV(path)
	if err != nil {
		t.Fatalf("LoadMatrixCSV: %v", err)
	}
	want := mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6})
	if !mat.EqualApprox(m, want, 0) {
		t.Fatalf("matrix =\n%v", mat.Formatted(m))
	}

	if _, err := LoadMatrixCSV(writeCSV(t, "")); err == nil {
		t.Fatal("expected error for empty file")
	}
	if _, err := LoadMatrixCSV(writeCSV(t, "1,x\n")); err == nil {
		t.Fatal("expected error for non-numeric value")
	}
}

func TestSplit(t *testing.T) {
	x := mat.NewDense(10, 2, nil)
	y := make([]int, 10)
	for i := 0; i < 10; i++ {
		x.Set(i, 0, float64(i))
		y[i] = i
	}
	tab, err := NewTable(x, y)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}

	train, val := tab.Split(0.3, 1)
	if train.Rows() != 7 || val.Rows() != 3 {
		t.Fatalf("split sizes %d/%d, want 7/3", train.Rows(), val.Rows())
	}
	// Rows must be a partition of the originals: labels track feature values.
	seen := make(map[int]bool)
	for _, part := range []*Table{train, val} {
		for i := 0; i < part.Rows(); i++ {
			label := part.Y[i]
			if part.X.At(i, 0) != float64(label) {
				t.Fatalf("row with label %d carries feature %v", label, part.X.At(i, 0))
			}
			if seen[label] {
				t.Fatalf("row %d appears twice", label)
			}
			seen[label] = true
		}
	}
	if len(seen) != 10 {
		t.Fatalf("split covers %d of 10 rows", len(seen))
	}
}

func TestSplitDegenerateFractions(t *testing.T) {
	tab, err := NewTable(mat.NewDense(4, 2, nil), make([]int, 4))
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	for _, frac := range []float64{0, -0.5, 1, 1.5, 0.01} {
		train, val := tab.Split(frac, 1)
		if train != tab || val != nil {
			t.Errorf("Split(%v) should return the table unchanged", frac)
		}
	}
}

func TestNewTableRowMismatch(t *testing.T) {
	if _, err := NewTable(mat.NewDense(3, 2, nil), []int{0}); err == nil {
		t.Fatal("expected error for label count mismatch")
	}
}
