package timeseries

// Windows slices series into overlapping windows of the given size,
// stepping one element at a time. For a series of length L it returns
// L-size+1 windows; nil when the series is shorter than size or size
// is not positive. Each window is an independent copy.
func Windows(series []float64, size int) [][]float64 {
	if size <= 0 || len(series) < size {
		return nil
	}

	out := make([][]float64, 0, len(series)-size+1)
	for i := 0; i+size <= len(series); i++ {
		w := make([]float64, size)
		copy(w, series[i:i+size])
		out = append(out, w)
	}
	return out
}

// WindowsWithTargets builds supervised training pairs for one-step-ahead
// sequence models: each input window of length size is paired with the
// value that immediately follows it. For a series of length L it returns
// L-size pairs.
func WindowsWithTargets(series []float64, size int) (inputs [][]float64, targets []float64) {
	if size <= 0 || len(series) <= size {
		return nil, nil
	}

	n := len(series) - size
	inputs = make([][]float64, 0, n)
	targets = make([]float64, 0, n)
	for i := 0; i < n; i++ {
		w := make([]float64, size)
		copy(w, series[i:i+size])
		inputs = append(inputs, w)
		targets = append(targets, series[i+size])
	}
	return inputs, targets
}
