package ofdm

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/owsense/csikit/logging"
)

// PrunedDFT is a DFT matrix restricted to the rows of its active subcarriers,
// used to convert between a full-length CIR and the CSI on active tones.
//
// Rows are frequency-shifted so the row at the DC index is zero frequency,
// but columns are not shifted: column 0 corresponds to t=0, preserving the
// causal time ordering of the CIR. Because the matrix is not square, the
// CSI-to-CIR direction is a least-squares reconstruction through the
// pseudo-inverse.
type PrunedDFT struct {
	fftLength     int
	activeIndices []int // 1-based, ascending
	rows          [][]complex128
	pinv          [][]complex128
}

// NewPrunedDFT builds the pruned DFT matrix for the given FFT length and
// 1-based active subcarrier indices. dcIndex is 1-based; zero selects the
// default FFTDCIndex(fftLength). A DC row that is not all-ones is logged as
// a warning (it indicates a differing indexing convention upstream) but does
// not abort.
func NewPrunedDFT(fftLength int, activeIndices []int, dcIndex int, logger logging.Logger) (*PrunedDFT, error) {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	if fftLength <= 0 {
		return nil, fmt.Errorf("FFT length must be positive, got %d", fftLength)
	}
	if len(activeIndices) == 0 {
		return nil, fmt.Errorf("no active subcarrier indices")
	}
	if err := validateIndices("active", activeIndices, fftLength); err != nil {
		return nil, err
	}
	if dcIndex == 0 {
		dcIndex = FFTDCIndex(fftLength)
	}
	if dcIndex < 1 || dcIndex > fftLength {
		return nil, fmt.Errorf("DC index %d outside [1, %d]", dcIndex, fftLength)
	}

	n := fftLength
	dc0 := dcIndex - 1

	// Full DFT matrix with rows rolled so row dc0 is zero frequency.
	full := make([][]complex128, n)
	for r := 0; r < n; r++ {
		k := ((r-dc0)%n + n) % n
		row := make([]complex128, n)
		for c := 0; c < n; c++ {
			angle := -2 * math.Pi * float64(k) * float64(c) / float64(n)
			row[c] = cmplx.Exp(complex(0, angle))
		}
		full[r] = row
	}

	// Sanity check on the shift: the DC row of the full matrix is all-ones.
	for c, v := range full[dc0] {
		if cmplx.Abs(v-1) > 1e-9 {
			logger.Warn("pruned DFT: DC row is not all-ones, indexing conventions may differ", logging.Fields{
				"dc_index": dcIndex,
				"column":   c,
				"value":    v,
			})
			break
		}
	}

	d := &PrunedDFT{
		fftLength:     n,
		activeIndices: append([]int(nil), activeIndices...),
		rows:          make([][]complex128, len(activeIndices)),
	}
	for i, idx := range activeIndices {
		d.rows[i] = full[idx-1]
	}

	if err := d.computePseudoInverse(); err != nil {
		return nil, err
	}
	return d, nil
}

// FFTLength returns the transform length (the CIR length).
func (d *PrunedDFT) FFTLength() int { return d.fftLength }

// NumActive returns the number of active subcarriers (the CSI length).
func (d *PrunedDFT) NumActive() int { return len(d.rows) }

// Forward converts a CIR of length FFTLength into the CSI on the active
// subcarriers, ordered by increasing frequency.
func (d *PrunedDFT) Forward(cir []complex128) ([]complex128, error) {
	if len(cir) != d.fftLength {
		return nil, fmt.Errorf("CIR length %d does not match FFT length %d", len(cir), d.fftLength)
	}
	csi := make([]complex128, len(d.rows))
	for k, row := range d.rows {
		var sum complex128
		for n, h := range cir {
			sum += row[n] * h
		}
		csi[k] = sum
	}
	return csi, nil
}

// Inverse reconstructs a full-length CIR from active-subcarrier CSI via the
// least-squares pseudo-inverse. Content on null subcarriers is lost.
func (d *PrunedDFT) Inverse(csi []complex128) ([]complex128, error) {
	if len(csi) != len(d.rows) {
		return nil, fmt.Errorf("CSI length %d does not match active subcarrier count %d", len(csi), len(d.rows))
	}
	cir := make([]complex128, d.fftLength)
	for n := range cir {
		var sum complex128
		for k, v := range csi {
			sum += d.pinv[n][k] * v
		}
		cir[n] = sum
	}
	return cir, nil
}

// computePseudoInverse forms pinv = M^H (M M^H)^-1. The Gram matrix M M^H is
// small (active-count squared) and Hermitian positive definite for distinct
// DFT rows, so a pivoted Gauss-Jordan inversion is sufficient.
func (d *PrunedDFT) computePseudoInverse() error {
	m := len(d.rows)
	n := d.fftLength

	gram := make([][]complex128, m)
	for i := 0; i < m; i++ {
		gram[i] = make([]complex128, m)
		for j := 0; j < m; j++ {
			var sum complex128
			for c := 0; c < n; c++ {
				sum += d.rows[i][c] * cmplx.Conj(d.rows[j][c])
			}
			gram[i][j] = sum
		}
	}

	gramInv, err := invertComplex(gram)
	if err != nil {
		return fmt.Errorf("inverting Gram matrix: %w", err)
	}

	// pinv[n][k] = sum_j conj(rows[j][n]) * gramInv[j][k]
	d.pinv = make([][]complex128, n)
	for c := 0; c < n; c++ {
		d.pinv[c] = make([]complex128, m)
		for k := 0; k < m; k++ {
			var sum complex128
			for j := 0; j < m; j++ {
				sum += cmplx.Conj(d.rows[j][c]) * gramInv[j][k]
			}
			d.pinv[c][k] = sum
		}
	}
	return nil
}

// invertComplex inverts a square complex matrix by Gauss-Jordan elimination
// with partial pivoting.
func invertComplex(a [][]complex128) ([][]complex128, error) {
	n := len(a)

	// Augmented working copy [a | I].
	work := make([][]complex128, n)
	for i := 0; i < n; i++ {
		work[i] = make([]complex128, 2*n)
		copy(work[i], a[i])
		work[i][n+i] = 1
	}

	for col := 0; col < n; col++ {
		pivot := col
		for r := col + 1; r < n; r++ {
			if cmplx.Abs(work[r][col]) > cmplx.Abs(work[pivot][col]) {
				pivot = r
			}
		}
		if cmplx.Abs(work[pivot][col]) < 1e-12 {
			return nil, fmt.Errorf("matrix is singular at column %d", col)
		}
		work[col], work[pivot] = work[pivot], work[col]

		inv := 1 / work[col][col]
		for c := 0; c < 2 * n; c++ {
			work[col][c] *= inv
		}
		for r := 0; r < n; r++ {
			if r == col {
				continue
			}
			factor := work[r][col]
			if factor == 0 {
				continue
			}
			for c := 0; c < 2 * n; c++ {
				work[r][c] -= factor * work[col][c]
			}
		}
	}

	out := make([][]complex128, n)
	for i := 0; i < n; i++ {
		out[i] = work[i][n:]
	}
	return out, nil
}
