// Package sensing turns a conditioned CIR/CSI time series into periodic
// signature estimates (breathing rate, motion rates). It combines the
// irregular-grid resampling front end with the one-sided PSD pipeline.
package sensing

import (
	"fmt"

	"github.com/owsense/csikit/algorithms/common"
	"github.com/owsense/csikit/algorithms/filters"
)

// ResampleConfig controls the time-series conditioning applied before
// spectral analysis.
type ResampleConfig struct {
	// TargetRate is the uniform output sample rate in Hz.
	TargetRate float64 `json:"target_rate" yaml:"targetRate"`
	// MedianWindow is the moving-median width for outlier suppression
	// before resampling; <= 1 disables it.
	MedianWindow int `json:"median_window" yaml:"medianWindow"`
	// MeanWindow is the moving-mean smoothing width applied after
	// resampling; <= 1 disables it.
	MeanWindow int `json:"mean_window" yaml:"meanWindow"`
	// EdgeCutSeconds of data are discarded at both ends after resampling,
	// where filter and interpolation ringing concentrates.
	EdgeCutSeconds float64 `json:"edge_cut_seconds" yaml:"edgeCutSeconds"`
}

// DefaultResampleConfig returns conditioning defaults suited to sub-Hz
// physiological signatures: 10 Hz grid, light median/mean smoothing, one
// second trimmed per edge.
func DefaultResampleConfig() ResampleConfig {
	return ResampleConfig{
		TargetRate:     10,
		MedianWindow:   3,
		MeanWindow:     3,
		EdgeCutSeconds: 1,
	}
}

// Validate checks the conditioning parameters.
func (c ResampleConfig) Validate() error {
	if c.TargetRate <= 0 {
		return fmt.Errorf("target rate must be positive, got %v", c.TargetRate)
	}
	if c.EdgeCutSeconds < 0 {
		return fmt.Errorf("edge cut must be >= 0, got %v", c.EdgeCutSeconds)
	}
	return nil
}

// ApplyResample conditions an irregularly sampled time series onto a uniform
// grid: moving-median outlier suppression, linear resampling at the target
// rate using the original timestamps, edge trimming at both ends, moving-mean
// smoothing, and a timestamp axis re-zeroed to start at 0.
//
// Frame timestamps from a capture are only nominally uniform; dropped frames
// and trigger jitter make the raw axis irregular, which would smear any
// periodogram taken over it directly.
func ApplyResample(signal, timestamps []float64, cfg ResampleConfig) ([]float64, []float64, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	if len(signal) != len(timestamps) {
		return nil, nil, fmt.Errorf("signal has %d samples, timestamps %d", len(signal), len(timestamps))
	}

	conditioned := signal
	if cfg.MedianWindow > 1 {
		conditioned = filters.MovingMedian(signal, cfg.MedianWindow)
	}

	resampled, t, err := common.ResampleUniform(conditioned, timestamps, cfg.TargetRate)
	if err != nil {
		return nil, nil, fmt.Errorf("resampling to %v Hz: %w", cfg.TargetRate, err)
	}

	cut := int(cfg.EdgeCutSeconds * cfg.TargetRate)
	if 2*cut >= len(resampled) {
		return nil, nil, fmt.Errorf("edge cut of %v s removes all %d resampled samples", cfg.EdgeCutSeconds, len(resampled))
	}
	resampled = resampled[cut : len(resampled)-cut]
	t = t[cut : len(t)-cut]

	if cfg.MeanWindow > 1 {
		resampled = filters.MovingAverage(resampled, cfg.MeanWindow)
	}

	out := make([]float64, len(resampled))
	copy(out, resampled)
	zeroed := make([]float64, len(t))
	for i := range t {
		zeroed[i] = t[i] - t[0]
	}
	return out, zeroed, nil
}
