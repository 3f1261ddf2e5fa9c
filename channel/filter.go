package channel

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/interp"

	"github.com/owsense/csikit/algorithms/common"
	"github.com/owsense/csikit/algorithms/filters"
	"github.com/owsense/csikit/algorithms/spectral"
)

// ErrNaNInput is returned when the CSI filter encounters NaN values that the
// gap interpolation cannot fill.
var ErrNaNInput = errors.New("NaN in CSI filter input")

// FilterCSI smooths CSI across the subcarrier axis. csi is a
// frames x activeSubcarriers tensor; activeIndices are the 1-based
// subcarrier indices behind each column, possibly non-contiguous (DC gap,
// guard bands).
//
// Magnitude and unwrapped phase are processed separately: inactive gaps
// inside the dense [firstActive, lastActive] range are filled by linear
// interpolation, then each is smoothed with a zero-phase moving average of
// width filterSize. Phase is detrended with a linear fit first and the trend
// restored after smoothing, so a genuine multipath delay slope is not
// flattened. filterSize <= 1 skips the smoothing and returns the
// gap-interpolated values at the active positions.
//
// Smoothing the complex values (or real/imaginary parts) directly is not an
// acceptable substitute: it breaks phase continuity across the gaps.
func FilterCSI(csi [][]complex128, activeIndices []int, filterSize int) ([][]complex128, error) {
	if len(activeIndices) == 0 {
		return nil, fmt.Errorf("no active subcarrier indices")
	}
	for i := 1; i < len(activeIndices); i++ {
		if activeIndices[i] <= activeIndices[i-1] {
			return nil, fmt.Errorf("active indices not monotonically increasing at position %d", i)
		}
	}

	first := activeIndices[0]
	last := activeIndices[len(activeIndices)-1]
	dense := last - first + 1

	// Active column positions inside the dense range.
	activePos := make([]float64, len(activeIndices))
	for i, idx := range activeIndices {
		activePos[i] = float64(idx - first)
	}
	denseAxis := make([]float64, dense)
	for i := range denseAxis {
		denseAxis[i] = float64(i)
	}

	out := make([][]complex128, len(csi))
	for f, row := range csi {
		if len(row) != len(activeIndices) {
			return nil, fmt.Errorf("frame %d has %d subcarriers, want %d", f, len(row), len(activeIndices))
		}

		mag := make([]float64, len(row))
		phase := make([]float64, len(row))
		for i, v := range row {
			mag[i] = cmplx.Abs(v)
			phase[i] = cmplx.Phase(v)
		}
		// Unwrap along the subcarrier axis before any interpolation: a raw
		// phase difference across a gap must not be mistaken for a true
		// +-pi jump.
		phase = common.Unwrap(phase)

		denseMag, err := fillGaps(activePos, mag, denseAxis)
		if err != nil {
			return nil, fmt.Errorf("frame %d magnitude: %w", f, err)
		}
		densePhase, err := fillGaps(activePos, phase, denseAxis)
		if err != nil {
			return nil, fmt.Errorf("frame %d phase: %w", f, err)
		}

		if filterSize > 1 {
			denseMag = filters.MovingAverage(denseMag, filterSize)

			// Detrend, smooth the residual, retrend.
			intercept, slope := spectral.LinearTrend(denseAxis, densePhase)
			residual := make([]float64, dense)
			for i := range residual {
				residual[i] = densePhase[i] - (intercept + slope*denseAxis[i])
			}
			residual = filters.MovingAverage(residual, filterSize)
			for i := range densePhase {
				densePhase[i] = residual[i] + intercept + slope*denseAxis[i]
			}
		}

		filtered := make([]complex128, len(row))
		for i, idx := range activeIndices {
			pos := idx - first
			filtered[i] = cmplx.Rect(denseMag[pos], densePhase[pos])
		}
		out[f] = filtered
	}
	return out, nil
}

// fillGaps linearly interpolates values known at the given positions onto
// the dense axis. The dense axis never extends beyond the first/last known
// position, so no true extrapolation occurs.
func fillGaps(pos, values []float64, denseAxis []float64) ([]float64, error) {
	for i, v := range values {
		if math.IsNaN(v) {
			return nil, fmt.Errorf("%w: position %v", ErrNaNInput, pos[i])
		}
	}

	var pl interp.PiecewiseLinear
	if err := pl.Fit(pos, values); err != nil {
		return nil, fmt.Errorf("fitting gap interpolant: %w", err)
	}

	filled := make([]float64, len(denseAxis))
	for i, x := range denseAxis {
		filled[i] = pl.Predict(x)
		if math.IsNaN(filled[i]) {
			return nil, fmt.Errorf("%w: unfillable value at dense position %v", ErrNaNInput, x)
		}
	}
	return filled, nil
}
