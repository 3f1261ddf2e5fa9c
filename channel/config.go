package channel

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/owsense/csikit/ofdm"
)

// PipelineConfig holds the tunables of the batch CSI/CIR pipeline. Every
// constant the pipeline depends on is an explicit field with a documented
// default, so tests and callers control them deterministically.
type PipelineConfig struct {
	// FFTLength is the CIR length and correlation lag span.
	FFTLength int `json:"fft_length" yaml:"fftLength"`
	// RxStartIndex anchors the correlation window in each RX frame.
	RxStartIndex int `json:"rx_start_index" yaml:"rxStartIndex"`
	// ChunkSize bounds memory: RX frames are read in row chunks of this
	// many frames. Default 1000.
	ChunkSize int `json:"chunk_size" yaml:"chunkSize"`
	// ADCBitWidth sets the clipping threshold 2^(bits-1)-1. Default 16.
	ADCBitWidth int `json:"adc_bit_width" yaml:"adcBitWidth"`
	// MaxClippingWarnings caps the number of per-frame clipping warnings
	// logged per dataset; counting continues silently after. Default 10.
	MaxClippingWarnings int `json:"max_clipping_warnings" yaml:"maxClippingWarnings"`
	// FilterSize enables the subcarrier-axis CSI filter when > 1. Default 0
	// (off).
	FilterSize int `json:"filter_size" yaml:"filterSize"`
	// StrictPeakCheck aborts a dataset when a frame's correlation peak lies
	// outside the CIR extraction window instead of only warning.
	StrictPeakCheck bool `json:"strict_peak_check" yaml:"strictPeakCheck"`
}

// DefaultPipelineConfig returns the documented defaults. FFTLength has no
// sensible default and must be set by the caller.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		ChunkSize:           1000,
		ADCBitWidth:         16,
		MaxClippingWarnings: 10,
	}
}

// Validate checks the configuration, applying nothing: missing values are
// configuration errors, raised immediately and never retried.
func (c PipelineConfig) Validate() error {
	if c.FFTLength <= 0 {
		return fmt.Errorf("FFT length must be positive, got %d", c.FFTLength)
	}
	if c.RxStartIndex < 0 {
		return fmt.Errorf("rx start index must be >= 0, got %d", c.RxStartIndex)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", c.ChunkSize)
	}
	if c.ADCBitWidth < 2 || c.ADCBitWidth > 64 {
		return fmt.Errorf("ADC bit width %d outside [2, 64]", c.ADCBitWidth)
	}
	if c.MaxClippingWarnings < 0 {
		return fmt.Errorf("max clipping warnings must be >= 0, got %d", c.MaxClippingWarnings)
	}
	return nil
}

// DatasetConfig bundles the OFDM field descriptor with the pipeline
// configuration for one dataset, as loaded from a YAML file.
type DatasetConfig struct {
	Field    ofdm.FieldConfig `yaml:"field"`
	Pipeline PipelineConfig   `yaml:"pipeline"`
}

// LoadDatasetConfig reads a dataset configuration from a YAML file, filling
// unset pipeline values with their defaults and validating the result.
func LoadDatasetConfig(path string) (*DatasetConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := DatasetConfig{
		Pipeline: DefaultPipelineConfig(),
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Field.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	if err := cfg.Pipeline.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}
