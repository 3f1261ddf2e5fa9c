package sensing

import (
	"math"
	"testing"
)

// jitteredSine samples a sine at a nominally uniform rate with deterministic
// timestamp jitter, mimicking frame timestamps from a capture.
func jitteredSine(freq, nominalRate, duration float64) (signal, timestamps []float64) {
	n := int(duration * nominalRate)
	step := 1 / nominalRate
	signal = make([]float64, n)
	timestamps = make([]float64, n)
	for i := 0; i < n; i++ {
		t := float64(i)*step + 0.02*step*math.Sin(float64(i))
		timestamps[i] = t
		signal[i] = math.Sin(2 * math.Pi * freq * t)
	}
	return signal, timestamps
}

func TestApplyResample(t *testing.T) {
	cfg := DefaultResampleConfig()
	signal, ts := jitteredSine(0.25, 12.5, 30)

	out, tOut, err := ApplyResample(signal, ts, cfg)
	if err != nil {
		t.Fatalf("ApplyResample failed: %v", err)
	}
	if len(out) != len(tOut) {
		t.Fatalf("signal/time length mismatch: %d vs %d", len(out), len(tOut))
	}

	// Time axis starts at zero and is uniform at the target rate.
	if tOut[0] != 0 {
		t.Errorf("time axis starts at %v, want 0", tOut[0])
	}
	step := 1 / cfg.TargetRate
	for i := 1; i < len(tOut); i++ {
		if math.Abs(tOut[i]-tOut[i-1]-step) > 1e-9 {
			t.Fatalf("non-uniform step %v at sample %d, want %v", tOut[i]-tOut[i-1], i, step)
		}
	}

	// One second trimmed per edge from a ~30 s capture.
	wantDuration := 30.0 - 2*cfg.EdgeCutSeconds
	gotDuration := tOut[len(tOut)-1]
	if math.Abs(gotDuration-wantDuration) > 0.5 {
		t.Errorf("conditioned duration = %v s, want ~%v s", gotDuration, wantDuration)
	}

	// The slow sine survives the conditioning; compare against the ideal
	// waveform on the trimmed grid. The edge trim shifts the time origin by
	// EdgeCutSeconds relative to the original signal.
	for i, tv := range tOut {
		want := math.Sin(2 * math.Pi * 0.25 * (tv + cfg.EdgeCutSeconds))
		if math.Abs(out[i]-want) > 0.1 {
			t.Fatalf("sample %d = %v, want ~%v", i, out[i], want)
		}
	}
}

func TestApplyResample_Errors(t *testing.T) {
	signal, ts := jitteredSine(0.25, 10, 5)

	if _, _, err := ApplyResample(signal[:10], ts, DefaultResampleConfig()); err == nil {
		t.Error("expected error for length mismatch")
	}

	bad := DefaultResampleConfig()
	bad.TargetRate = 0
	if _, _, err := ApplyResample(signal, ts, bad); err == nil {
		t.Error("expected error for zero target rate")
	}

	bad = DefaultResampleConfig()
	bad.EdgeCutSeconds = 10 // trims more than the 5 s capture
	if _, _, err := ApplyResample(signal, ts, bad); err == nil {
		t.Error("expected error for edge cut exceeding capture")
	}
}

func TestApplyResample_MedianSuppressesOutliers(t *testing.T) {
	cfg := DefaultResampleConfig()
	cfg.MeanWindow = 1

	signal, ts := jitteredSine(0.2, 10, 20)
	spiked := make([]float64, len(signal))
	copy(spiked, signal)
	spiked[50] = 100
	spiked[120] = -100

	out, _, err := ApplyResample(spiked, ts, cfg)
	if err != nil {
		t.Fatalf("ApplyResample failed: %v", err)
	}
	for i, v := range out {
		if math.Abs(v) > 1.5 {
			t.Fatalf("outlier survived conditioning: sample %d = %v", i, v)
		}
	}
}
