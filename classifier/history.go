package classifier

// EpochRecord is one epoch-boundary measurement for one dataset.
type EpochRecord struct {
	Epoch   float64
	Loss    float64
	Acc     float64
	ValLoss float64
	ValAcc  float64
}

// History accumulates a dataset's per-epoch metrics, including any epochs run
// during fine-tuning.
type History struct {
	Records []EpochRecord
}

func (h *History) add(r EpochRecord) {
	h.Records = append(h.Records, r)
}

// Losses returns the training-loss series.
func (h *History) Losses() []float64 {
	out := make([]float64, len(h.Records))
	for i, r := range h.Records {
		out[i] = r.Loss
	}
	return out
}

// ValLosses returns the validation-loss series.
func (h *History) ValLosses() []float64 {
	out := make([]float64, len(h.Records))
	for i, r := range h.Records {
		out[i] = r.ValLoss
	}
	return out
}

// Accuracies returns the training-accuracy series.
func (h *History) Accuracies() []float64 {
	out := make([]float64, len(h.Records))
	for i, r := range h.Records {
		out[i] = r.Acc
	}
	return out
}
