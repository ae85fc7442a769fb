package classifier

import (
	"log"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/factoredml/factored/network"
)

// batchRange is a contiguous [lo, hi) slice of a dataset's shuffled rows.
type batchRange struct{ lo, hi int }

// datasetState holds everything one dataset owns during training: its
// shuffled data, batch cursor, epoch counter, early-stopping tracker, history
// and model. States are kept in dataset-id order.
type datasetState struct {
	id    int
	x, yb *mat.Dense

	xval, ybval *mat.Dense

	batch   int
	batches []batchRange
	cursor  int

	epochs  float64
	stopper *earlyStopping
	history *History
	model   *network.Model
}

// reshuffle draws a fresh permutation, reorders the dataset's rows,
// regenerates the batch sequence and resets the cursor.
func (st *datasetState) reshuffle(rng *rand.Rand) {
	n, _ := st.x.Dims()
	perm := rng.Perm(n)
	st.x = permuteRows(st.x, perm)
	st.yb = permuteRows(st.yb, perm)
	st.batches = genBatches(n, st.batch)
	st.cursor = 0
}

// trainOneBatch advances this dataset's cursor by one batch and applies a
// gradient step.
func (st *datasetState) trainOneBatch() {
	b := st.batches[st.cursor]
	st.cursor++
	_, xc := st.x.Dims()
	_, yc := st.yb.Dims()
	xb := st.x.Slice(b.lo, b.hi, 0, xc).(*mat.Dense)
	yb := st.yb.Slice(b.lo, b.hi, 0, yc).(*mat.Dense)
	st.model.TrainBatch(xb, yb)
}

// alternate is the round-robin optimization loop. Each tick advances every
// dataset by exactly one batch, in dataset-id order. A dataset that exhausts
// its batches is reshuffled, its epoch counter incremented and its model
// evaluated before it contributes the first batch of its next epoch; so a
// smaller dataset completes more epochs over the same number of ticks.
//
// The loop ends when every dataset has reached MaxIter epochs, or - with
// validation data and early stopping - when ALL datasets' trackers have
// stopped. A single dataset that keeps improving keeps the whole loop alive
// even if the others plateaued; this avoids under-training any dataset at the
// cost of letting one noisy dataset extend training.
func (c *FactoredClassifier) alternate(states []*datasetState, doVal bool) {
	maxIter := float64(c.opts.MaxIter)
	stop := false
	for !stop && minEpochs(states) < maxIter {
		for _, st := range states {
			if st.cursor >= len(st.batches) {
				st.reshuffle(c.rng)
				st.epochs++
				c.recordEpoch(st, doVal)
			}
			st.trainOneBatch()
			if doVal && c.opts.EarlyStop && allStopped(states) {
				stop = true
			}
		}
	}
}

// recordEpoch evaluates a dataset's model at an epoch boundary and feeds the
// results to its history and early-stopping tracker.
func (c *FactoredClassifier) recordEpoch(st *datasetState, doVal bool) {
	loss, acc := st.model.Evaluate(st.x, st.yb)
	rec := EpochRecord{Epoch: st.epochs, Loss: loss, Acc: acc}
	if doVal {
		rec.ValLoss, rec.ValAcc = st.model.Evaluate(st.xval, st.ybval)
		if c.opts.EarlyStop {
			st.stopper.observe(rec.ValLoss)
		}
	}
	st.history.add(rec)
	if c.opts.Verbose > 0 {
		log.Printf("epoch %.0f, dataset %d, loss: %.4f, acc: %.4f, val_loss: %.4f, val_acc: %.4f",
			st.epochs, st.id, rec.Loss, rec.Acc, rec.ValLoss, rec.ValAcc)
	}
}

func minEpochs(states []*datasetState) float64 {
	min := states[0].epochs
	for _, st := range states[1:] {
		if st.epochs < min {
			min = st.epochs
		}
	}
	return min
}

func allStopped(states []*datasetState) bool {
	for _, st := range states {
		if !st.stopper.stopped {
			return false
		}
	}
	return true
}

// genBatches covers [0, n) with contiguous ranges of at most size rows; the
// final partial batch is kept.
func genBatches(n, size int) []batchRange {
	if size <= 0 {
		size = n
	}
	var out []batchRange
	for lo := 0; lo < n; lo += size {
		hi := lo + size
		if hi > n {
			hi = n
		}
		out = append(out, batchRange{lo, hi})
	}
	return out
}

func permuteRows(m *mat.Dense, perm []int) *mat.Dense {
	r, c := m.Dims()
	out := mat.NewDense(r, c, nil)
	for dst, src := range perm {
		out.SetRow(dst, m.RawRowView(src))
	}
	return out
}
