package filters

import (
	"sort"
)

// Centered sliding-window smoothers. All of them are zero-phase: the window
// is placed symmetrically around each output sample, so the filters add no
// group delay. Near the edges the window shrinks to the available samples.

// windowBounds returns the clamped [start, end) window around index i for a
// centered window of the given size. For even sizes the extra sample is taken
// from the trailing side.
func windowBounds(i, n, size int) (start, end int) {
	start = i - (size-1)/2
	end = i + size/2 + 1
	if start < 0 {
		start = 0
	}
	if end > n {
		end = n
	}
	return start, end
}

// MovingAverage applies a centered moving average of the given window size.
// A window size <= 1 returns a copy of the input.
func MovingAverage(data []float64, size int) []float64 {
	result := make([]float64, len(data))
	if size <= 1 {
		copy(result, data)
		return result
	}

	for i := range data {
		start, end := windowBounds(i, len(data), size)
		sum := 0.0
		for j := start; j < end; j++ {
			sum += data[j]
		}
		result[i] = sum / float64(end-start)
	}
	return result
}

// MovingMedian applies a centered moving median of the given window size,
// suppressing outlier samples. A window size <= 1 returns a copy of the
// input.
func MovingMedian(data []float64, size int) []float64 {
	result := make([]float64, len(data))
	if size <= 1 {
		copy(result, data)
		return result
	}

	window := make([]float64, 0, size)
	for i := range data {
		start, end := windowBounds(i, len(data), size)
		window = append(window[:0], data[start:end]...)
		sort.Float64s(window)

		mid := len(window) / 2
		if len(window)%2 == 0 {
			result[i] = (window[mid-1] + window[mid]) / 2.0
		} else {
			result[i] = window[mid]
		}
	}
	return result
}
