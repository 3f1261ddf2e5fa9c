package channel

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/owsense/csikit/algorithms/common"
)

// gappedIndices models a tone map with a hole in the middle, like the DC
// gap of an OFDM band.
func gappedIndices() []int {
	idx := make([]int, 0, 40)
	for i := 1; i <= 20; i++ {
		idx = append(idx, i)
	}
	for i := 26; i <= 45; i++ {
		idx = append(idx, i)
	}
	return idx
}

func TestFilterCSI_SizeOneIsIdentity(t *testing.T) {
	idx := gappedIndices()
	row := make([]complex128, len(idx))
	for i, k := range idx {
		row[i] = cmplx.Rect(1+0.1*float64(i), 0.05*float64(k))
	}

	out, err := FilterCSI([][]complex128{row}, idx, 1)
	if err != nil {
		t.Fatalf("FilterCSI failed: %v", err)
	}
	for i := range row {
		if cmplx.Abs(out[0][i]-row[i]) > 1e-9 {
			t.Errorf("column %d changed: got %v, want %v", i, out[0][i], row[i])
		}
	}
}

func TestFilterCSI_PreservesConstantMagLinearPhase(t *testing.T) {
	idx := gappedIndices()
	slope := 0.08
	row := make([]complex128, len(idx))
	for i, k := range idx {
		row[i] = cmplx.Rect(0.7, slope*float64(k))
	}

	out, err := FilterCSI([][]complex128{row}, idx, 5)
	if err != nil {
		t.Fatalf("FilterCSI failed: %v", err)
	}
	for i := range row {
		if cmplx.Abs(out[0][i]-row[i]) > 0.02 {
			t.Errorf("column %d = %v, want ~%v", i, out[0][i], row[i])
		}
	}
}

func TestFilterCSI_BoundedPhaseDerivativeAcrossGap(t *testing.T) {
	// A phase slope steep enough to wrap several times within the band.
	// The filter must unwrap before interpolating across the gap, keeping
	// the smoothed phase derivative bounded instead of producing an
	// artificial 2*pi discontinuity.
	idx := gappedIndices()
	slope := 0.5
	row := make([]complex128, len(idx))
	for i, k := range idx {
		row[i] = cmplx.Rect(1, slope*float64(k))
	}

	out, err := FilterCSI([][]complex128{row}, idx, 5)
	if err != nil {
		t.Fatalf("FilterCSI failed: %v", err)
	}

	phase := make([]float64, len(out[0]))
	for i, v := range out[0] {
		phase[i] = cmplx.Phase(v)
	}
	phase = common.Unwrap(phase)
	for i := 1; i < len(phase); i++ {
		step := float64(idx[i] - idx[i-1])
		deriv := (phase[i] - phase[i-1]) / step
		if math.Abs(deriv-slope) > 0.3 {
			t.Errorf("phase derivative %v at column %d, want ~%v", deriv, i, slope)
		}
	}
}

func TestFilterCSI_SmoothsNoisyMagnitude(t *testing.T) {
	idx := gappedIndices()
	row := make([]complex128, len(idx))
	for i := range idx {
		mag := 1.0
		if i%2 == 0 {
			mag = 1.4
		}
		row[i] = complex(mag, 0)
	}

	out, err := FilterCSI([][]complex128{row}, idx, 7)
	if err != nil {
		t.Fatalf("FilterCSI failed: %v", err)
	}
	// Away from the band edges the alternating magnitude averages out.
	for i := 5; i < 15; i++ {
		if math.Abs(cmplx.Abs(out[0][i])-1.2) > 0.1 {
			t.Errorf("column %d magnitude = %v, want ~1.2", i, cmplx.Abs(out[0][i]))
		}
	}
}

func TestFilterCSI_Errors(t *testing.T) {
	idx := gappedIndices()
	row := make([]complex128, len(idx))
	for i := range row {
		row[i] = 1
	}

	if _, err := FilterCSI([][]complex128{row}, nil, 3); err == nil {
		t.Error("expected error for empty active indices")
	}
	if _, err := FilterCSI([][]complex128{row}, []int{3, 2, 5}, 3); err == nil {
		t.Error("expected error for non-monotonic indices")
	}
	if _, err := FilterCSI([][]complex128{row[:5]}, idx, 3); err == nil {
		t.Error("expected error for shape mismatch")
	}

	bad := make([]complex128, len(idx))
	copy(bad, row)
	bad[3] = complex(math.NaN(), 0)
	if _, err := FilterCSI([][]complex128{bad}, idx, 3); err == nil {
		t.Error("expected error for NaN input")
	}
}
