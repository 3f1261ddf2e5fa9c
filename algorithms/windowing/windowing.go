package windowing

import (
	"errors"
	"fmt"
	"math"
)

// NormMethod selects how window coefficients are scaled after generation.
type NormMethod string

const (
	// NormEnergy divides by the window RMS so the total power of a windowed
	// signal is preserved.
	NormEnergy NormMethod = "energy"
	// NormPeak divides by the maximum absolute coefficient.
	NormPeak NormMethod = "peak"
	// NormCoherent divides by the mean coefficient, correcting the amplitude
	// of sinusoid estimates.
	NormCoherent NormMethod = "coherent"
	// NormNoise divides by the square root of the equivalent noise bandwidth,
	// making noise-power and SNR estimates comparable across window types.
	NormNoise NormMethod = "noise"
	// NormNone applies no scaling.
	NormNone NormMethod = "none"
)

// Designated shape parameter values. Any other positive value selects a
// Kaiser window with that beta.
const (
	ShapeRectangular = 0.0
	ShapeHamming     = 5.0
	ShapeHann        = 6.0
)

// ErrUnknownNormMethod is returned for an unrecognized normalization method.
var ErrUnknownNormMethod = errors.New("unknown window normalization method")

// Get generates a window of the given length selected by its shape parameter:
// 0 is rectangular, 5 is periodic Hamming, 6 is periodic Hann, and any other
// value is a Kaiser window with beta equal to the shape parameter. The window
// is then scaled according to norm.
//
// All windows are periodic (DFT-even), intended for spectral analysis rather
// than filter design.
func Get(shapeParam float64, length int, norm NormMethod) ([]float64, error) {
	if length <= 0 {
		return nil, fmt.Errorf("window length must be positive, got %d", length)
	}

	var w []float64
	switch shapeParam {
	case ShapeRectangular:
		w = rectangular(length)
	case ShapeHamming:
		w = hamming(length)
	case ShapeHann:
		w = hann(length)
	default:
		w = kaiser(length, shapeParam)
	}

	if err := normalize(w, norm); err != nil {
		return nil, err
	}
	return w, nil
}

func rectangular(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 1.0
	}
	return w
}

func hamming(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/float64(n))
	}
	return w
}

func hann(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n)))
	}
	return w
}

// kaiser generates a periodic Kaiser window: the symmetric window of length
// n+1 with the last sample dropped.
func kaiser(n int, beta float64) []float64 {
	w := make([]float64, n)
	i0Beta := besselI0(beta)
	for i := range w {
		arg := 2.0*float64(i)/float64(n) - 1.0
		w[i] = besselI0(beta*math.Sqrt(1-arg*arg)) / i0Beta
	}
	return w
}

// besselI0 computes the zero-order modified Bessel function of the first kind
// using a series expansion.
func besselI0(x float64) float64 {
	sum := 1.0
	term := 1.0

	for i := 1; i < 50; i++ {
		term *= (x / (2.0 * float64(i))) * (x / (2.0 * float64(i)))
		sum += term

		if term < 1e-12 {
			break
		}
	}

	return sum
}

func normalize(w []float64, norm NormMethod) error {
	var scale float64

	switch norm {
	case NormEnergy, "":
		var sumSq float64
		for _, v := range w {
			sumSq += v * v
		}
		scale = math.Sqrt(sumSq / float64(len(w)))
	case NormPeak:
		for _, v := range w {
			if a := math.Abs(v); a > scale {
				scale = a
			}
		}
	case NormCoherent:
		var sum float64
		for _, v := range w {
			sum += v
		}
		scale = sum / float64(len(w))
	case NormNoise:
		scale = math.Sqrt(ENBW(w))
	case NormNone:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownNormMethod, norm)
	}

	if scale == 0 {
		return fmt.Errorf("window normalization %q degenerate: zero scale", norm)
	}
	for i := range w {
		w[i] /= scale
	}
	return nil
}

// ENBW returns the equivalent noise bandwidth of a window in frequency bins:
// N * sum(w^2) / (sum(w))^2. It is 1.0 for a rectangular window.
func ENBW(w []float64) float64 {
	var sum, sumSq float64
	for _, v := range w {
		sum += v
		sumSq += v * v
	}
	if sum == 0 {
		return math.Inf(1)
	}
	return float64(len(w)) * sumSq / (sum * sum)
}

// Apply multiplies signal by the window, returning a new slice. The lengths
// must match.
func Apply(signal, w []float64) ([]float64, error) {
	if len(signal) != len(w) {
		return nil, fmt.Errorf("signal length (%d) doesn't match window size (%d)", len(signal), len(w))
	}
	windowed := make([]float64, len(signal))
	for i := range signal {
		windowed[i] = signal[i] * w[i]
	}
	return windowed, nil
}
