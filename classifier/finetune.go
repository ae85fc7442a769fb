package classifier

import "log"

// fineTuneEpochs is the fallback epoch count when no validation data is
// available to stop on.
const fineTuneEpochs = 30

// fineTuneStage retrains each head with the shared encoder frozen. The
// optimizer's learning rate drops to one tenth of its last-used value and
// dropout is disabled for the remaining epochs. Models are mutated in place;
// the graph is not rebuilt. With validation data each head trains up to
// MaxIter epochs under a fresh early-stopping tracker; without it, for a
// fixed fineTuneEpochs.
func (c *FactoredClassifier) fineTuneStage(states []*datasetState, doVal bool) {
	if c.opts.Verbose > 0 {
		log.Printf("fine tuning heads with frozen encoder")
	}
	for _, st := range states {
		st.model.ScaleLearnRate(0.1)
		st.model.FreezeEncoder()
		st.model.SetDropout(0)

		epochs := fineTuneEpochs
		var stopper *earlyStopping
		if doVal {
			epochs = c.opts.MaxIter
			if c.opts.EarlyStop {
				stopper = newEarlyStopping()
			}
		}

		for e := 0; e < epochs; e++ {
			st.reshuffle(c.rng)
			for st.cursor < len(st.batches) {
				st.trainOneBatch()
			}
			loss, acc := st.model.Evaluate(st.x, st.yb)
			rec := EpochRecord{Epoch: st.epochs + float64(e+1), Loss: loss, Acc: acc}
			if doVal {
				rec.ValLoss, rec.ValAcc = st.model.Evaluate(st.xval, st.ybval)
			}
			st.history.add(rec)
			if c.opts.Verbose > 1 {
				log.Printf("fine-tune epoch %d, dataset %d, loss: %.4f, acc: %.4f", e+1, st.id, loss, acc)
			}
			if stopper != nil {
				stopper.observe(rec.ValLoss)
				if stopper.stopped {
					break
				}
			}
		}
	}
}
