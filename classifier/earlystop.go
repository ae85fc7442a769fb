package classifier

import "math"

// earlyStopping tracks one dataset's validation loss and signals stop after
// the patience window elapses without an improvement of at least minDelta.
type earlyStopping struct {
	minDelta float64
	patience int

	best    float64
	wait    int
	stopped bool
}

func newEarlyStopping() *earlyStopping {
	return &earlyStopping{
		minDelta: 1e-3,
		patience: 3,
		best:     math.Inf(1),
	}
}

func (e *earlyStopping) observe(valLoss float64) {
	if valLoss < e.best-e.minDelta {
		e.best = valLoss
		e.wait = 0
		return
	}
	e.wait++
	if e.wait >= e.patience {
		e.stopped = true
	}
}
