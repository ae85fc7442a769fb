package factored

import (
	"fmt"
	"testing"

	"github.com/factoredml/factored/search"
)

func TestMakeClassifierVariants(t *testing.T) {
	tests := []struct {
		name string
		cfg  ClassifierConfig
		want string
	}{
		{
			name: "factored",
			cfg:  ClassifierConfig{Factored: true, LatentDim: 5, Alphas: []float64{0.1}},
			want: "*classifier.FactoredClassifier",
		},
		{
			name: "logistic l2",
			cfg:  ClassifierConfig{Alphas: []float64{0.1}},
			want: "*linear.Logistic",
		},
		{
			name: "logistic l1",
			cfg:  ClassifierConfig{Penalty: "l1", Alphas: []float64{0.1}},
			want: "*linear.Logistic",
		},
		{
			name: "trace norm",
			cfg:  ClassifierConfig{Penalty: "trace", Alphas: []float64{0.1}},
			want: "*linear.Fista",
		},
		{
			name: "grid search over alphas",
			cfg:  ClassifierConfig{Factored: true, Alphas: []float64{0.1, 1, 10}},
			want: "*search.AlphaCV",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MakeClassifier(tt.cfg)
			if err != nil {
				t.Fatalf("MakeClassifier: %v", err)
			}
			if typ := fmt.Sprintf("%T", got); typ != tt.want {
				t.Fatalf("MakeClassifier built %s, want %s", typ, tt.want)
			}
		})
	}
}

func TestMakeClassifierErrors(t *testing.T) {
	if _, err := MakeClassifier(ClassifierConfig{}); err == nil {
		t.Fatal("expected error without alphas")
	}
	if _, err := MakeClassifier(ClassifierConfig{Penalty: "elastic", Alphas: []float64{1}}); err == nil {
		t.Fatal("expected error for unknown penalty")
	}
}

func TestMakeClassifierGridCarriesConfig(t *testing.T) {
	got, err := MakeClassifier(ClassifierConfig{
		Alphas:  []float64{0.1, 1},
		CVFolds: 5,
		Seed:    7,
	})
	if err != nil {
		t.Fatalf("MakeClassifier: %v", err)
	}
	cv, ok := got.(*search.AlphaCV)
	if !ok {
		t.Fatalf("got %T, want *search.AlphaCV", got)
	}
	if cv.Folds != 5 || cv.Seed != 7 || len(cv.Alphas) != 2 {
		t.Fatal("grid configuration not carried through")
	}
}
