package spectral

import (
	"github.com/mjibson/go-dsp/fft"
)

// FFT provides Fast Fourier Transform functionality backed by mjibson/go-dsp,
// which handles all sizes efficiently, including non-power-of-2.
type FFT struct {
	// No state needed for now
}

// NewFFT creates a new FFT calculator
func NewFFT() *FFT {
	return &FFT{}
}

// Compute computes the FFT of a real-valued signal.
func (f *FFT) Compute(x []float64) []complex128 {
	if len(x) == 0 {
		return []complex128{}
	}
	return fft.FFTReal(x)
}

// ComputeComplex computes the FFT of a complex-valued signal.
func (f *FFT) ComputeComplex(x []complex128) []complex128 {
	if len(x) == 0 {
		return []complex128{}
	}
	return fft.FFT(x)
}

// ComputeInverse computes the inverse FFT.
func (f *FFT) ComputeInverse(x []complex128) []complex128 {
	if len(x) == 0 {
		return []complex128{}
	}
	return fft.IFFT(x)
}

// Shift circularly rotates a spectrum so the zero-frequency bin moves to the
// center, index n/2 for even n. The counterpart of numpy's fftshift.
func Shift[T any](x []T) []T {
	n := len(x)
	shifted := make([]T, n)
	half := (n + 1) / 2
	copy(shifted, x[half:])
	copy(shifted[n-half:], x[:half])
	return shifted
}

// InverseShift undoes Shift, moving the center bin back to index 0. For even
// lengths Shift and InverseShift coincide.
func InverseShift[T any](x []T) []T {
	n := len(x)
	shifted := make([]T, n)
	half := n / 2
	copy(shifted, x[half:])
	copy(shifted[n-half:], x[:half])
	return shifted
}

// FrequencyAxis returns the centered frequency axis for an n-point transform
// at sample rate fs: (i - n/2) * fs / n for i in [0, n).
func FrequencyAxis(n int, fs float64) []float64 {
	freq := make([]float64, n)
	dc := n / 2
	for i := range freq {
		freq[i] = float64(i-dc) * fs / float64(n)
	}
	return freq
}
