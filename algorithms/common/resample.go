package common

import (
	"fmt"

	"gonum.org/v1/gonum/interp"
)

// ResampleUniform resamples a signal captured at possibly irregular
// timestamps onto a uniform grid at targetRate (Hz) using piecewise-linear
// interpolation. The returned time axis keeps the original time origin, is
// strictly uniform at the target rate, and never extends past the final
// timestamp.
func ResampleUniform(signal, timestamps []float64, targetRate float64) (resampled, t []float64, err error) {
	if len(signal) != len(timestamps) {
		return nil, nil, fmt.Errorf("signal length (%d) doesn't match timestamp length (%d)", len(signal), len(timestamps))
	}
	if len(signal) < 2 {
		return nil, nil, fmt.Errorf("need at least 2 samples to resample, got %d", len(signal))
	}
	if targetRate <= 0 {
		return nil, nil, fmt.Errorf("target rate must be positive, got %v", targetRate)
	}

	var pl interp.PiecewiseLinear
	if err := pl.Fit(timestamps, signal); err != nil {
		return nil, nil, fmt.Errorf("fitting interpolant: %w", err)
	}

	t0 := timestamps[0]
	tEnd := timestamps[len(timestamps)-1]
	step := 1.0 / targetRate
	n := int((tEnd-t0)/step) + 1
	// Rounding in the division can place the last grid point past the final
	// timestamp; drop it so every step of the returned axis is exactly
	// 1/targetRate.
	if t0+float64(n-1)*step > tEnd {
		n--
	}

	resampled = make([]float64, n)
	t = make([]float64, n)
	for i := 0; i < n; i++ {
		ti := t0 + float64(i)*step
		t[i] = ti
		resampled[i] = pl.Predict(ti)
	}
	return resampled, t, nil
}
