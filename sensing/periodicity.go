package sensing

import (
	"fmt"

	"github.com/owsense/csikit/algorithms/spectral"
	"github.com/owsense/csikit/logging"
)

// PeriodicityConfig bundles time-series conditioning with the PSD estimate
// used to locate a dominant periodic signature.
type PeriodicityConfig struct {
	Resample ResampleConfig     `json:"resample" yaml:"resample"`
	PSD      spectral.PSDConfig `json:"psd" yaml:"psd"`
}

// DefaultPeriodicityConfig targets respiration-band signatures: 10 Hz
// conditioned grid, PSD restricted to [0.1, 0.7] Hz (6 to 42 cycles per
// minute).
func DefaultPeriodicityConfig() PeriodicityConfig {
	psd := spectral.DefaultPSDConfig()
	psd.FMin = 0.1
	psd.FMax = 0.7
	return PeriodicityConfig{
		Resample: DefaultResampleConfig(),
		PSD:      psd,
	}
}

// RateEstimate is the dominant periodic signature found in a conditioned
// time series.
type RateEstimate struct {
	// FrequencyHz is the PSD peak location.
	FrequencyHz float64
	// CyclesPerMinute is the same rate in per-minute units.
	CyclesPerMinute float64
	// PeakPower is the PSD value at the peak.
	PeakPower float64

	// PSD and Frequencies are the full one-sided band-limited estimate the
	// peak was picked from, for plotting and confidence heuristics.
	PSD         []float64
	Frequencies []float64
}

// Extractor locates dominant periodic signatures in scalar time series
// derived from the CSI/CIR tensors (a tap magnitude, a subcarrier phase).
type Extractor struct {
	psd    *spectral.PSD
	logger logging.Logger
}

// NewExtractor creates a periodicity extractor.
func NewExtractor(logger logging.Logger) *Extractor {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Extractor{psd: spectral.NewPSD(logger), logger: logger}
}

// ExtractRate conditions the series per the resample configuration and
// returns the dominant frequency of its one-sided PSD within the configured
// band.
func (e *Extractor) ExtractRate(signal, timestamps []float64, cfg PeriodicityConfig) (*RateEstimate, error) {
	conditioned, t, err := ApplyResample(signal, timestamps, cfg.Resample)
	if err != nil {
		return nil, err
	}
	if len(conditioned) < 2 {
		return nil, fmt.Errorf("conditioned series too short: %d samples", len(conditioned))
	}

	psd, freq, err := e.psd.Compute(conditioned, cfg.Resample.TargetRate, cfg.PSD)
	if err != nil {
		return nil, err
	}
	if len(psd) == 0 {
		return nil, fmt.Errorf("no PSD bins in band [%v, %v] Hz", cfg.PSD.FMin, cfg.PSD.FMax)
	}

	peak := 0
	for i := range psd {
		if psd[i] > psd[peak] {
			peak = i
		}
	}

	est := &RateEstimate{
		FrequencyHz:     freq[peak],
		CyclesPerMinute: freq[peak] * 60,
		PeakPower:       psd[peak],
		PSD:             psd,
		Frequencies:     freq,
	}
	e.logger.Debug("periodic signature extracted", logging.Fields{
		"frequency_hz":      est.FrequencyHz,
		"cycles_per_minute": est.CyclesPerMinute,
		"peak_power":        est.PeakPower,
		"duration_s":        t[len(t)-1],
		"bins":              len(psd),
	})
	return est, nil
}
