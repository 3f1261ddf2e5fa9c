package capture

import (
	"fmt"
	"math"

	"github.com/owsense/csikit/logging"
)

const (
	csiHeaderDMASymbols    = 8
	csiPayloadWordIdx      = csiHeaderDMASymbols * wordsPerDMASymbol
	csiLenDMASymbols       = 56
	csiHalfDMASymbols      = csiLenDMASymbols / 2
	equalizerLenDMASymbols = 52

	// The frequency-offset word sits in the first word of the second
	// header symbol, sharing that symbol with the LO frequency bits.
	freqOffsetWordIdx = 1 * wordsPerDMASymbol
	// Extra capture timestamps occupy header symbols 2 through 7.
	extraTimestampsSymbolIdx = 2
	numExtraTimestamps       = csiHeaderDMASymbols - extraTimestampsSymbolIdx
)

// CSIHeader is the parsed eight-symbol CSI transaction header.
type CSIHeader struct {
	// Timestamp is the 100 MHz hardware counter value latched when the
	// frame was captured.
	Timestamp uint64
	// ExtraTimestamps are the six additional counter values the hardware
	// latches at later points of the frame-processing chain.
	ExtraTimestamps [numExtraTimestamps]uint64
	// LOFrequencyHz is the local-oscillator carrier frequency, stored on
	// the wire in deca-Hz across 29 bits.
	LOFrequencyHz uint64
	// FrequencyOffsetHz is the receiver carrier-frequency-offset estimate.
	// The hardware field is wider, but only the low 16 bits reach the
	// side channel.
	FrequencyOffsetHz float64
}

// TimestampSeconds converts the hardware counter to seconds.
func (h CSIHeader) TimestampSeconds() float64 {
	return float64(h.Timestamp) / timestampClockHz
}

// CSITransaction is one parsed hardware CSI capture: the header, the
// 56-subcarrier channel estimate, and any equalized data symbols.
type CSITransaction struct {
	CSIHeader

	// CSI is the per-subcarrier channel estimate, reordered so the lower
	// half of the band comes first.
	CSI []complex128
	// Equalizer holds the equalized data-carrying subcarriers of the
	// requested symbols, 52 per symbol. Nil when none were requested.
	Equalizer []complex128
}

// CSIDMASymbolsPerTransaction returns the transaction size in DMA symbols
// for numEq equalized symbols appended after the CSI block.
func CSIDMASymbolsPerTransaction(numEq int) (int, error) {
	if numEq < 0 {
		return 0, fmt.Errorf("equalized symbol count must not be negative, got %d", numEq)
	}
	n := csiHeaderDMASymbols + csiLenDMASymbols + numEq*equalizerLenDMASymbols
	if n > maxDMASymbolsPerTransaction {
		return 0, fmt.Errorf("transaction of %d DMA symbols exceeds the datagram limit %d", n, maxDMASymbolsPerTransaction)
	}
	return n, nil
}

// ParseCSISideChannel splits a word buffer into hardware CSI transactions,
// the counterpart of ParseSideChannel for the other stream kind. numEq is
// the number of equalized symbols configured on the hardware side.
func ParseCSISideChannel(words []uint16, numEq int, logger logging.Logger) ([]CSITransaction, error) {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	symbols, err := CSIDMASymbolsPerTransaction(numEq)
	if err != nil {
		return nil, err
	}
	wordsPerTrans := symbols * wordsPerDMASymbol
	if len(words) == 0 || len(words)%wordsPerTrans != 0 {
		return nil, fmt.Errorf("%w: %d words, %d per transaction", ErrAbnormalLength, len(words), wordsPerTrans)
	}

	out := make([]CSITransaction, 0, len(words)/wordsPerTrans)
	for off := 0; off < len(words); off += wordsPerTrans {
		trans := words[off : off+wordsPerTrans]
		t := CSITransaction{CSIHeader: parseCSIHeader(trans)}

		// One complex sample per payload symbol, I and Q in the first
		// two words.
		payload := complexStream(trans, csiPayloadWordIdx, wordsPerDMASymbol, 0)

		// The hardware emits the upper half of the band first; swap the
		// halves so subcarriers come out in ascending order.
		t.CSI = make([]complex128, csiLenDMASymbols)
		for i := range t.CSI {
			t.CSI[i] = payload[(i+csiHalfDMASymbols)%csiLenDMASymbols]
		}
		if numEq > 0 {
			t.Equalizer = payload[csiLenDMASymbols : csiLenDMASymbols+numEq*equalizerLenDMASymbols]
		}
		out = append(out, t)
	}
	logger.Debug("parsed CSI side channel", logging.Fields{
		"transactions":      len(out),
		"equalized_symbols": numEq,
	})
	return out, nil
}

func parseCSIHeader(trans []uint16) CSIHeader {
	meta := uint64At(trans, freqOffsetWordIdx)
	h := CSIHeader{
		Timestamp:         uint64At(trans, 0),
		LOFrequencyHz:     ((meta >> loFrequencyShift) & (1<<loFrequencyBits - 1)) * 10,
		FrequencyOffsetHz: 20e6 * float64(int16(trans[freqOffsetWordIdx])) / 512 / (2 * math.Pi),
	}
	for i := range h.ExtraTimestamps {
		h.ExtraTimestamps[i] = uint64At(trans, (extraTimestampsSymbolIdx+i)*wordsPerDMASymbol)
	}
	return h
}
