package channel

import (
	"errors"
	"fmt"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/owsense/csikit/algorithms/common"
	"github.com/owsense/csikit/logging"
)

var (
	// ErrStartIndexOutOfRange is returned when the RX correlation anchor
	// lies beyond the received data.
	ErrStartIndexOutOfRange = errors.New("rx start index out of range")
	// ErrExtractionOutOfBounds is returned when the centered CIR window
	// falls outside the correlation output.
	ErrExtractionOutOfBounds = errors.New("CIR extraction window out of bounds")
	// ErrPeakOutsideWindow is returned in strict mode when the correlation
	// peak does not survive the centered extraction.
	ErrPeakOutsideWindow = errors.New("correlation peak outside extraction window")
)

// peakTolerance is the absolute tolerance for the post-extraction peak
// consistency check.
const peakTolerance = 1e-10

// Estimator extracts channel impulse responses from TX/RX IQ frame pairs by
// linear cross-correlation.
type Estimator struct {
	logger logging.Logger

	// strictPeak escalates the peak-consistency check from a warning to an
	// error, aborting the frame when the true correlation peak lies outside
	// the extraction window.
	strictPeak bool
}

// NewEstimator creates a CIR estimator. strictPeak selects whether a
// correlation peak outside the extraction window aborts the frame or is only
// logged.
func NewEstimator(logger logging.Logger, strictPeak bool) *Estimator {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Estimator{logger: logger, strictPeak: strictPeak}
}

// ComputeCIR cross-correlates rxData[rxStartIndex:] against the full
// txData over the overlapping lags within [-fftLength, +fftLength], extracts
// a window of exactly fftLength samples centered on zero lag, and circularly
// reorders it so the zero-lag tap lands at index 0 (increasing delay
// afterwards). The result is normalized by the TX reference length. Inputs
// too short to cover the centered window fail with ErrExtractionOutOfBounds.
//
// The whole routine is pure and deterministic. An odd fftLength only
// triggers a warning: the centered extraction assumes symmetric halves.
func (e *Estimator) ComputeCIR(txData, rxData []complex128, rxStartIndex, fftLength int) ([]complex128, error) {
	if fftLength <= 0 {
		return nil, fmt.Errorf("FFT length must be positive, got %d", fftLength)
	}
	if fftLength%2 != 0 {
		e.logger.Warn("odd FFT length: centered CIR extraction assumes symmetric halves", logging.Fields{
			"fft_length": fftLength,
		})
	}
	if len(txData) == 0 {
		return nil, fmt.Errorf("empty TX reference")
	}
	if rxStartIndex < 0 || rxStartIndex > len(rxData) {
		return nil, fmt.Errorf("%w: %d with %d rx samples", ErrStartIndexOutOfRange, rxStartIndex, len(rxData))
	}
	rx := rxData[rxStartIndex:]
	if len(rx) == 0 {
		return nil, fmt.Errorf("no rx samples after start index %d", rxStartIndex)
	}

	// Correlation lags are restricted to those with actual TX/RX overlap, so
	// short inputs produce a short correlation instead of zero padding.
	lagLo := max(-fftLength, -(len(txData) - 1))
	lagHi := min(fftLength, len(rx)-1)
	corr := e.crossCorrelate(rx, txData, lagLo, lagHi)

	// Global correlation maximum, kept for the post-extraction consistency
	// check.
	globalMax := 0.0
	globalMaxLag := 0
	for i, v := range corr {
		if mag := cmplx.Abs(v); mag > globalMax {
			globalMax = mag
			globalMaxLag = i + lagLo
		}
	}

	// Window of fftLength samples centered on zero lag.
	zeroLag := -lagLo
	start := zeroLag - fftLength/2
	end := zeroLag + fftLength - fftLength/2
	if start < 0 || end > len(corr) {
		return nil, fmt.Errorf("%w: [%d, %d) with %d correlation samples", ErrExtractionOutOfBounds, start, end, len(corr))
	}
	window := corr[start:end]

	// Circular reorder so the tap at the window center moves to index 0
	// (inverse FFT shift), then normalize by the reference length.
	n := len(window)
	scale := complex(1/float64(len(txData)), 0)
	cir := make([]complex128, n)
	windowMax := 0.0
	for i := range cir {
		v := window[(i+n/2)%n]
		if mag := cmplx.Abs(v); mag > windowMax {
			windowMax = mag
		}
		cir[i] = v * scale
	}

	// The extraction must not have lost the correlation peak. A mismatch
	// means the true peak lies outside the centered window, usually a
	// miscalibrated start offset.
	if globalMax-windowMax > peakTolerance {
		if e.strictPeak {
			return nil, fmt.Errorf("%w: global peak %v at lag %d, extracted peak %v",
				ErrPeakOutsideWindow, globalMax, globalMaxLag, windowMax)
		}
		e.logger.Warn("CIR peak discrepancy after extraction", logging.Fields{
			"global_peak":    globalMax,
			"global_lag":     globalMaxLag,
			"extracted_peak": windowMax,
		})
	}

	return cir, nil
}

// crossCorrelate computes the linear cross-correlation
// c[lag] = sum_n rx[n+lag] * conj(tx[n]) for lag in [lagLo, lagHi],
// via zero-padded FFTs. Callers pass a lag range restricted to overlapping
// shifts, so lagLo > -len(tx) and lagHi < len(rx).
func (e *Estimator) crossCorrelate(rx, tx []complex128, lagLo, lagHi int) []complex128 {
	size := common.NextPowerOfTwo(len(rx) + len(tx) - 1)
	fft := fourier.NewCmplxFFT(size)

	a := make([]complex128, size)
	copy(a, rx)
	b := make([]complex128, size)
	copy(b, tx)

	ca := fft.Coefficients(nil, a)
	cb := fft.Coefficients(nil, b)
	for i := range ca {
		ca[i] *= cmplx.Conj(cb[i])
	}
	full := fft.Sequence(nil, ca)
	invScale := complex(1/float64(size), 0)

	corr := make([]complex128, lagHi-lagLo+1)
	for i := range corr {
		lag := i + lagLo
		if lag < 0 {
			lag += size
		}
		corr[i] = full[lag] * invScale
	}
	return corr
}
