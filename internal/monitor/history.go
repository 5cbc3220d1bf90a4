package monitor

const historyWindowSize = 5

// history is a fixed-size moving average.
type history struct {
	values []float64
}

func (h *history) add(v float64) float64 {
	h.values = append(h.values, v)
	if len(h.values) > historyWindowSize {
		h.values = h.values[1:]
	}

	sum := 0.0
	for _, x := range h.values {
		sum += x
	}

	return sum / float64(len(h.values))
}
