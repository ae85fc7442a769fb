// Command train fits the factored multi-dataset classifier on a labeled CSV
// and writes per-dataset training-curve plots.
//
// The CSV needs a header row, one label column, one integer dataset-id
// column, and float feature columns. Example:
//
//	train -data samples.csv -label target -dataset dataset \
//	      -latent 10 -alpha 0.01 -max-iter 50 -val-frac 0.1 -plots out
package main

import (
	"flag"
	"fmt"
	"image/color"
	"log"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/factoredml/factored/classifier"
	"github.com/factoredml/factored/datasets"
	"github.com/factoredml/factored/loadings"
)

func main() {
	dataPath := flag.String("data", "", "path to the labeled CSV file")
	labelCol := flag.String("label", "label", "name of the label column")
	datasetCol := flag.String("dataset", "dataset", "name of the dataset-id column")
	latent := flag.Int("latent", 10, "latent dimension of the shared encoder (0 = simple mode)")
	alpha := flag.Float64("alpha", 0.01, "L2 regularization strength")
	beta := flag.Float64("beta", 0.01, "L1 regularization strength")
	activation := flag.String("activation", "linear", "encoder activation: linear, relu, tanh, sigmoid")
	dropout := flag.Float64("dropout", 0, "dropout rate on the encoder output")
	maxIter := flag.Int("max-iter", 100, "maximum epochs per dataset")
	batchSize := flag.Int("batch", 256, "minibatch size")
	fitIntercept := flag.Bool("intercept", true, "fit a bias term per head")
	fineTune := flag.Bool("fine-tune", true, "fine-tune heads with a frozen encoder")
	earlyStop := flag.Bool("early-stop", true, "early-stop on validation loss")
	valFrac := flag.Float64("val-frac", 0.1, "fraction of rows held out for validation")
	bases := flag.String("bases", "", "comma-separated basis CSVs; projects samples onto their loadings first")
	scaleImportance := flag.String("scale-importance", "sqrt", "basis block weighting: none, sqrt, linear")
	identity := flag.Bool("identity", false, "append the raw features as an extra block after projection")
	workers := flag.Int("workers", 0, "numeric worker count (0 = all CPUs)")
	seed := flag.Int64("seed", 42, "random seed")
	verbose := flag.Int("v", 1, "verbosity level")
	plotDir := flag.String("plots", "plots", "output directory for training-curve plots")
	flag.Parse()

	if *dataPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	table, err := datasets.LoadCSV(*dataPath, *labelCol, *datasetCol)
	if err != nil {
		log.Fatalf("loading data: %v", err)
	}
	log.Printf("loaded %d rows from %s", table.Rows(), *dataPath)

	train, val := table.Split(*valFrac, *seed)

	if *bases != "" {
		if err := projectOntoBases(train, val, *bases, *scaleImportance, *identity, *workers); err != nil {
			log.Fatalf("projecting onto bases: %v", err)
		}
	}

	clf := classifier.New(classifier.Options{
		LatentDim:    *latent,
		Alpha:        *alpha,
		Beta:         *beta,
		Activation:   *activation,
		Dropout:      *dropout,
		MaxIter:      *maxIter,
		BatchSize:    *batchSize,
		FitIntercept: *fitIntercept,
		FineTune:     *fineTune,
		EarlyStop:    *earlyStop,
		Workers:      *workers,
		Seed:         *seed,
		Verbose:      *verbose,
	})

	if val != nil {
		err = clf.FitWithValidation(train.X, train.Y, val.X, val.Y)
	} else {
		err = clf.Fit(train.X, train.Y)
	}
	if err != nil {
		log.Fatalf("fit: %v", err)
	}

	log.Printf("datasets: %v", clf.DatasetIDs())
	log.Printf("epochs per dataset: %v", clf.NEpochs())

	score, err := clf.Score(train.X, train.Y)
	if err != nil {
		log.Fatalf("score: %v", err)
	}
	log.Printf("train accuracy (mean over datasets): %.4f", score)
	if val != nil {
		vs, err := clf.Score(val.X, val.Y)
		if err != nil {
			log.Fatalf("validation score: %v", err)
		}
		log.Printf("validation accuracy (mean over datasets): %.4f", vs)
	}

	if err := os.MkdirAll(*plotDir, 0o755); err != nil {
		log.Fatalf("creating plot dir: %v", err)
	}
	ids := clf.DatasetIDs()
	for i, h := range clf.Histories() {
		path := filepath.Join(*plotDir, fmt.Sprintf("dataset_%d_curves.png", ids[i]))
		if err := plotHistory(h, val != nil, path); err != nil {
			log.Fatalf("plotting dataset %d: %v", ids[i], err)
		}
		log.Printf("wrote %s", path)
	}
}

// projectOntoBases replaces the feature columns of train (and val) with their
// least-squares loadings over the given basis files. The extractor is fitted
// on the training rows only.
func projectOntoBases(train, val *datasets.Table, paths, scaleImportance string, identity bool, workers int) error {
	var bases []*mat.Dense
	for _, path := range strings.Split(paths, ",") {
		b, err := datasets.LoadMatrixCSV(strings.TrimSpace(path))
		if err != nil {
			return err
		}
		bases = append(bases, b)
	}

	opts := loadings.DefaultExtractorOptions()
	opts.ScaleImportance = scaleImportance
	opts.Identity = identity
	opts.Workers = workers
	ex, err := loadings.NewExtractor(bases, opts)
	if err != nil {
		return err
	}

	tx, err := ex.FitTransform(train.X)
	if err != nil {
		return err
	}
	train.X = tx
	if val != nil {
		vx, err := ex.Transform(val.X)
		if err != nil {
			return err
		}
		val.X = vx
	}
	log.Printf("projected onto %d bases: %d input columns", len(bases), ex.OutputDims())
	return nil
}

// plotHistory draws the loss (and validation loss) series of one dataset.
func plotHistory(h *classifier.History, withVal bool, path string) error {
	p := plot.New()
	p.Title.Text = "Training curves"
	p.X.Label.Text = "epoch"
	p.Y.Label.Text = "loss"

	line, err := plotter.NewLine(seriesXY(h.Losses()))
	if err != nil {
		return err
	}
	line.Color = color.RGBA{R: 20, G: 80, B: 200, A: 255}
	p.Add(line)
	p.Legend.Add("train loss", line)

	if withVal {
		vline, err := plotter.NewLine(seriesXY(h.ValLosses()))
		if err != nil {
			return err
		}
		vline.Color = color.RGBA{R: 200, G: 60, B: 40, A: 255}
		p.Add(vline)
		p.Legend.Add("val loss", vline)
	}

	return p.Save(8*vg.Inch, 5*vg.Inch, path)
}

func seriesXY(vals []float64) plotter.XYs {
	xys := make(plotter.XYs, len(vals))
	for i, v := range vals {
		xys[i] = plotter.XY{X: float64(i + 1), Y: v}
	}
	return xys
}
