package spectral

import (
	"errors"
	"fmt"
	"math"
)

// ErrFrequencyAsymmetry is returned when a spectrum's negative and positive
// frequency axes do not mirror each other within tolerance.
var ErrFrequencyAsymmetry = errors.New("frequency axis is not symmetric")

// symmetryTolerance is the allowed mismatch between mirrored frequencies,
// as a fraction of the frequency resolution.
const symmetryTolerance = 0.01

// CombineSymmetricFrequencies folds a real-valued two-sided spectrum into
// one-sided form by adding each negative-frequency bin onto its positive
// mirror. The input freq axis must be symmetric about zero (fftshift order);
// spectrum has frequency as its first axis and arbitrary trailing axes,
// which are preserved.
//
// The zero bin is excluded. When the total bin count is even, one side holds
// one extra unpaired bin (typically Nyquist-adjacent); the extreme bin of the
// longer side is dropped before pairing. Mirrored frequencies must agree
// within 1% of the frequency resolution or ErrFrequencyAsymmetry is returned.
//
// The returned freq axis contains only the retained positive frequencies, in
// ascending order.
func CombineSymmetricFrequencies(spectrum [][]float64, freq []float64) ([][]float64, []float64, error) {
	if len(spectrum) != len(freq) {
		return nil, nil, fmt.Errorf("spectrum has %d frequency rows but axis has %d entries", len(spectrum), len(freq))
	}
	if len(freq) < 2 {
		return nil, nil, fmt.Errorf("need at least 2 frequency bins, got %d", len(freq))
	}

	resolution := math.Abs(freq[1] - freq[0])
	if resolution == 0 {
		return nil, nil, fmt.Errorf("%w: zero frequency resolution", ErrFrequencyAsymmetry)
	}

	var negIdx, posIdx []int
	for i, f := range freq {
		switch {
		case f < 0:
			negIdx = append(negIdx, i)
		case f > 0:
			posIdx = append(posIdx, i)
		}
	}

	// An unpaired leftover bin can only appear on one side and only one
	// deep; anything else is not a symmetric axis.
	switch diff := len(negIdx) - len(posIdx); {
	case diff == 0:
		// Both sides pair up.
	case diff == 1:
		// Drop the most-negative bin: with an even bin count the larger
		// magnitude extreme sits on the longer side.
		negIdx = negIdx[1:]
	case diff == -1:
		posIdx = posIdx[:len(posIdx)-1]
	default:
		return nil, nil, fmt.Errorf("%w: %d negative vs %d positive bins", ErrFrequencyAsymmetry, len(negIdx), len(posIdx))
	}

	n := len(posIdx)
	outFreq := make([]float64, n)
	out := make([][]float64, n)
	for i := 0; i < n; i++ {
		pi := posIdx[i]
		ni := negIdx[n-1-i] // mirrored: most-negative pairs with largest positive

		if math.Abs(-freq[ni]-freq[pi]) > symmetryTolerance*resolution {
			return nil, nil, fmt.Errorf("%w: %v does not mirror %v (resolution %v)",
				ErrFrequencyAsymmetry, freq[ni], freq[pi], resolution)
		}

		outFreq[i] = freq[pi]
		row := make([]float64, len(spectrum[pi]))
		for j := range row {
			row[j] = spectrum[pi][j] + spectrum[ni][j]
		}
		out[i] = row
	}
	return out, outFreq, nil
}

// CombineSymmetricFrequenciesVec is the single-channel convenience form of
// CombineSymmetricFrequencies.
func CombineSymmetricFrequenciesVec(spectrum, freq []float64) ([]float64, []float64, error) {
	rows := make([][]float64, len(spectrum))
	for i, v := range spectrum {
		rows[i] = []float64{v}
	}
	folded, outFreq, err := CombineSymmetricFrequencies(rows, freq)
	if err != nil {
		return nil, nil, err
	}
	out := make([]float64, len(folded))
	for i, row := range folded {
		out[i] = row[0]
	}
	return out, outFreq, nil
}
