package ofdm

import (
	"errors"
	"fmt"
)

// ErrMissingSampleRate is returned when a field configuration carries no
// sample rate and none is supplied by the caller.
var ErrMissingSampleRate = errors.New("field configuration has no sample rate")

// FieldConfig describes an OFDM field: its FFT length and which subcarriers
// carry data and pilots. All subcarrier indices are 1-based within
// [1, FFTLength], matching the convention of WLAN field descriptors; this is
// the only boundary where 1-based indices enter the library.
type FieldConfig struct {
	FFTLength  int     `json:"fft_length" yaml:"fftLength"`
	SampleRate float64 `json:"sample_rate" yaml:"sampleRate"`

	// ActiveIndices lists every occupied subcarrier (data and pilots),
	// monotonically increasing, possibly non-contiguous around DC and the
	// guard bands.
	ActiveIndices []int `json:"active_indices" yaml:"activeIndices"`
	DataIndices   []int `json:"data_indices" yaml:"dataIndices"`
	PilotIndices  []int `json:"pilot_indices" yaml:"pilotIndices"`
}

// Validate checks the structural invariants of the field configuration.
func (c FieldConfig) Validate() error {
	if c.FFTLength <= 0 {
		return fmt.Errorf("FFT length must be positive, got %d", c.FFTLength)
	}
	if err := validateIndices("active", c.ActiveIndices, c.FFTLength); err != nil {
		return err
	}
	if err := validateIndices("data", c.DataIndices, c.FFTLength); err != nil {
		return err
	}
	if err := validateIndices("pilot", c.PilotIndices, c.FFTLength); err != nil {
		return err
	}

	active := make(map[int]bool, len(c.ActiveIndices))
	for _, idx := range c.ActiveIndices {
		active[idx] = true
	}
	for _, idx := range c.DataIndices {
		if !active[idx] {
			return fmt.Errorf("data index %d is not an active subcarrier", idx)
		}
	}
	for _, idx := range c.PilotIndices {
		if !active[idx] {
			return fmt.Errorf("pilot index %d is not an active subcarrier", idx)
		}
	}
	if len(c.DataIndices) > 0 && len(c.PilotIndices) > 0 &&
		len(c.DataIndices)+len(c.PilotIndices) != len(c.ActiveIndices) {
		return fmt.Errorf("data (%d) + pilot (%d) indices do not partition the %d active subcarriers",
			len(c.DataIndices), len(c.PilotIndices), len(c.ActiveIndices))
	}
	return nil
}

func validateIndices(name string, indices []int, fftLength int) error {
	for i, idx := range indices {
		if idx < 1 || idx > fftLength {
			return fmt.Errorf("%s index %d outside [1, %d]", name, idx, fftLength)
		}
		if i > 0 && idx <= indices[i-1] {
			return fmt.Errorf("%s indices not monotonically increasing at position %d", name, i)
		}
	}
	return nil
}

// FFTDCIndex returns the 1-based index of the zero-frequency bin of an
// n-point centered spectrum: floor(n/2) + 1.
func FFTDCIndex(n int) int {
	return n/2 + 1
}

// SubcarrierMapping holds everything derived from a field configuration that
// the transforms and filters need: signed frequency indices, the null set,
// and frequency axes. Computed once per configuration and immutable after.
type SubcarrierMapping struct {
	FFTLength  int
	SampleRate float64

	// Spacing is the subcarrier spacing in Hz.
	Spacing float64
	// DCIndex is the 0-based index of the zero-frequency bin.
	DCIndex int

	// FrequencyIndices spans [-FFTLength/2, FFTLength/2 - 1].
	FrequencyIndices []int
	// ActiveFrequencyIndices are the signed indices of the active
	// subcarriers, ascending.
	ActiveFrequencyIndices []int
	// NullFrequencyIndices are the signed indices carrying nothing (DC gap,
	// guard bands).
	NullFrequencyIndices []int
	// DataFrequencyIndices and PilotFrequencyIndices are the signed indices
	// of the respective subsets.
	DataFrequencyIndices  []int
	PilotFrequencyIndices []int

	// FrequencyAxis is the frequency in Hz of every bin; ActiveFrequencyAxis
	// covers active bins only.
	FrequencyAxis       []float64
	ActiveFrequencyAxis []float64
}

// NewSubcarrierMapping derives the subcarrier mapping for a field
// configuration. sampleRate overrides the configuration's rate when positive;
// if neither is set, ErrMissingSampleRate is returned.
func NewSubcarrierMapping(cfg FieldConfig, sampleRate float64) (*SubcarrierMapping, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	fs := cfg.SampleRate
	if sampleRate > 0 {
		fs = sampleRate
	}
	if fs <= 0 {
		return nil, fmt.Errorf("%w (FFT length %d)", ErrMissingSampleRate, cfg.FFTLength)
	}

	n := cfg.FFTLength
	dc := n / 2

	m := &SubcarrierMapping{
		FFTLength:  n,
		SampleRate: fs,
		Spacing:    fs / float64(n),
		DCIndex:    dc,
	}

	m.FrequencyIndices = make([]int, n)
	m.FrequencyAxis = make([]float64, n)
	for i := 0; i < n; i++ {
		m.FrequencyIndices[i] = i - dc
		m.FrequencyAxis[i] = float64(i-dc) * m.Spacing
	}

	m.ActiveFrequencyIndices = toSigned(cfg.ActiveIndices, dc)
	m.DataFrequencyIndices = toSigned(cfg.DataIndices, dc)
	m.PilotFrequencyIndices = toSigned(cfg.PilotIndices, dc)

	m.ActiveFrequencyAxis = make([]float64, len(m.ActiveFrequencyIndices))
	for i, k := range m.ActiveFrequencyIndices {
		m.ActiveFrequencyAxis[i] = float64(k) * m.Spacing
	}

	active := make(map[int]bool, len(cfg.ActiveIndices))
	for _, idx := range cfg.ActiveIndices {
		active[idx] = true
	}
	for i := 1; i <= n; i++ {
		if !active[i] {
			m.NullFrequencyIndices = append(m.NullFrequencyIndices, i-1-dc)
		}
	}

	return m, nil
}

// toSigned converts 1-based subcarrier indices to signed frequency indices
// around the 0-based DC bin.
func toSigned(indices []int, dc int) []int {
	signed := make([]int, len(indices))
	for i, idx := range indices {
		signed[i] = idx - 1 - dc
	}
	return signed
}
