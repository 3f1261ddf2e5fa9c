package spectral

import (
	"fmt"
	"math/cmplx"

	"github.com/owsense/csikit/algorithms/common"
	"github.com/owsense/csikit/algorithms/windowing"
	"github.com/owsense/csikit/logging"
)

// PSDConfig configures the one-sided power spectral density estimate.
type PSDConfig struct {
	// NFFT is the transform length. Zero selects the next power of two at or
	// above the signal length.
	NFFT int `json:"nfft" yaml:"nfft"`
	// WindowShape is the windowing shape parameter (default periodic
	// Hamming).
	WindowShape float64 `json:"window_shape" yaml:"windowShape"`
	// FMin and FMax bound the returned frequency range in Hz. FMax zero
	// means half the sample rate.
	FMin float64 `json:"f_min" yaml:"fMin"`
	FMax float64 `json:"f_max" yaml:"fMax"`
	// DetrendOrder is the polynomial order removed before windowing
	// (0 = mean removal).
	DetrendOrder int `json:"detrend_order" yaml:"detrendOrder"`
}

// DefaultPSDConfig returns the defaults: next-power-of-two NFFT, periodic
// Hamming window, full [0, fs/2] band, mean removal.
func DefaultPSDConfig() PSDConfig {
	return PSDConfig{
		WindowShape: windowing.ShapeHamming,
	}
}

// PSD estimates one-sided power spectral densities via a windowed
// periodogram with symmetric-frequency folding.
type PSD struct {
	fft    *FFT
	logger logging.Logger
}

// NewPSD creates a new PSD estimator.
func NewPSD(logger logging.Logger) *PSD {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &PSD{
		fft:    NewFFT(),
		logger: logger,
	}
}

// Compute estimates the one-sided PSD of signal sampled at fs Hz. The signal
// is polynomial-detrended, windowed with an energy-normalized window, padded
// to the transform length, and its centered periodogram folded to one side.
// Both returned slices are the same length with the frequency axis ascending
// and restricted to [FMin, FMax].
func (p *PSD) Compute(signal []float64, fs float64, cfg PSDConfig) (psd, freq []float64, err error) {
	if len(signal) == 0 {
		return nil, nil, fmt.Errorf("empty signal")
	}
	if fs <= 0 {
		return nil, nil, fmt.Errorf("sample rate must be positive, got %v", fs)
	}

	nfft := cfg.NFFT
	if nfft == 0 {
		nfft = common.NextPowerOfTwo(len(signal))
	}
	if nfft < len(signal) {
		return nil, nil, fmt.Errorf("nfft (%d) smaller than signal length (%d)", nfft, len(signal))
	}

	detrended, err := Detrend(signal, cfg.DetrendOrder)
	if err != nil {
		return nil, nil, err
	}

	w, err := windowing.Get(cfg.WindowShape, len(signal), windowing.NormEnergy)
	if err != nil {
		return nil, nil, err
	}
	windowed, err := windowing.Apply(detrended, w)
	if err != nil {
		return nil, nil, err
	}

	padded := make([]float64, nfft)
	copy(padded, windowed)

	coeffs := p.fft.Compute(padded)

	// Periodogram scaling: the energy-normalized window has sum(w^2) equal
	// to the signal length.
	scale := 1.0 / (fs * float64(len(signal)))
	power := make([]float64, nfft)
	for i, c := range coeffs {
		mag := cmplx.Abs(c)
		power[i] = mag * mag * scale
	}

	centered := Shift(power)
	axis := FrequencyAxis(nfft, fs)

	folded, foldedFreq, err := CombineSymmetricFrequenciesVec(centered, axis)
	if err != nil {
		return nil, nil, err
	}

	fMax := cfg.FMax
	if fMax == 0 {
		fMax = fs / 2
	}
	if cfg.FMin > fMax {
		return nil, nil, fmt.Errorf("invalid frequency range [%v, %v]", cfg.FMin, fMax)
	}

	for i, f := range foldedFreq {
		if f < cfg.FMin || f > fMax {
			continue
		}
		psd = append(psd, folded[i])
		freq = append(freq, f)
	}

	p.logger.Debug("PSD computed", logging.Fields{
		"nfft":       nfft,
		"signal_len": len(signal),
		"bins":       len(psd),
		"f_min":      cfg.FMin,
		"f_max":      fMax,
	})
	return psd, freq, nil
}
