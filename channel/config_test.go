package channel

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dataset.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadDatasetConfig(t *testing.T) {
	path := writeConfig(t, `
field:
  fftLength: 64
  sampleRate: 20e6
  activeIndices: [7, 8, 9, 10]
pipeline:
  fftLength: 64
  rxStartIndex: 128
  filterSize: 5
`)

	cfg, err := LoadDatasetConfig(path)
	if err != nil {
		t.Fatalf("LoadDatasetConfig failed: %v", err)
	}
	if cfg.Field.FFTLength != 64 || cfg.Field.SampleRate != 20e6 {
		t.Errorf("field = %+v", cfg.Field)
	}
	if cfg.Pipeline.RxStartIndex != 128 || cfg.Pipeline.FilterSize != 5 {
		t.Errorf("pipeline = %+v", cfg.Pipeline)
	}

	// Unset values keep their defaults.
	if cfg.Pipeline.ChunkSize != 1000 {
		t.Errorf("ChunkSize = %d, want default 1000", cfg.Pipeline.ChunkSize)
	}
	if cfg.Pipeline.ADCBitWidth != 16 {
		t.Errorf("ADCBitWidth = %d, want default 16", cfg.Pipeline.ADCBitWidth)
	}
	if cfg.Pipeline.MaxClippingWarnings != 10 {
		t.Errorf("MaxClippingWarnings = %d, want default 10", cfg.Pipeline.MaxClippingWarnings)
	}
}

func TestLoadDatasetConfig_Invalid(t *testing.T) {
	cases := map[string]string{
		"data outside active": `
field:
  fftLength: 64
  activeIndices: [7, 8]
  dataIndices: [9]
pipeline:
  fftLength: 64
`,
		"missing fft length": `
field:
  fftLength: 64
  activeIndices: [7, 8]
pipeline:
  rxStartIndex: 10
`,
		"negative rx start": `
field:
  fftLength: 64
  activeIndices: [7, 8]
pipeline:
  fftLength: 64
  rxStartIndex: -1
`,
		"malformed yaml": `{field: [`,
	}

	for name, content := range cases {
		if _, err := LoadDatasetConfig(writeConfig(t, content)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestLoadDatasetConfig_MissingFile(t *testing.T) {
	if _, err := LoadDatasetConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestPipelineConfigValidate(t *testing.T) {
	cfg := DefaultPipelineConfig()
	cfg.FFTLength = 64
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	bad := cfg
	bad.ChunkSize = 0
	if err := bad.Validate(); err == nil {
		t.Error("expected error for zero chunk size")
	}

	bad = cfg
	bad.ADCBitWidth = 1
	if err := bad.Validate(); err == nil {
		t.Error("expected error for 1-bit ADC width")
	}

	bad = cfg
	bad.MaxClippingWarnings = -1
	if err := bad.Validate(); err == nil {
		t.Error("expected error for negative warning cap")
	}
}
