// Package capture parses side-channel DMA buffers produced by an SDR
// baseband into TX/RX IQ frames, the raw input of the channel-estimation
// pipeline.
//
// A buffer is a stream of 64-bit DMA symbols, each carrying four 16-bit
// words. Every transaction starts with a three-symbol header (timestamp,
// metadata, reserved) followed by the IQ payload, whose word layout depends
// on the antenna configuration.
package capture

import (
	"errors"
	"fmt"

	"github.com/owsense/csikit/logging"
)

// Layout selects how the payload words of a transaction map onto antenna
// streams.
type Layout string

const (
	// LayoutRxIQ0IQ1 interleaves two RX antennas, four words per sample
	// pair.
	LayoutRxIQ0IQ1 Layout = "rx_iq0_iq1"
	// LayoutTxRxIQ0 interleaves one RX antenna with the looped-back TX
	// baseband.
	LayoutTxRxIQ0 Layout = "tx_rx_iq0"
	// LayoutIQAll carries two RX antennas plus the TX baseband appended in
	// 32-bit chunks after a separator symbol.
	LayoutIQAll Layout = "iq_all"
	// LayoutRSSIRxIQ0 carries one RX antenna with per-sample AGC gain and
	// RSSI words.
	LayoutRSSIRxIQ0 Layout = "rssi_rx_iq0"
)

const (
	wordsPerDMASymbol = 4
	headerDMASymbols  = 3
	payloadWordIdx    = headerDMASymbols * wordsPerDMASymbol

	loFrequencyBits  = 29
	loFrequencyShift = 32
	allAntennaShift  = 61
	triggerShift     = 62

	// The hardware timestamp counter runs at 100 MHz.
	timestampClockHz = 100e6

	// maxDMASymbolsPerTransaction keeps one transaction within a single
	// UDP datagram: (65507 / 8) - 1.
	maxDMASymbolsPerTransaction = 8187
)

var (
	// ErrAbnormalLength is returned when a buffer is not a whole number of
	// transactions for the given layout.
	ErrAbnormalLength = errors.New("buffer length is not a whole number of transactions")
	// ErrUnknownLayout is returned for an unrecognized antenna layout.
	ErrUnknownLayout = errors.New("unknown IQ layout")
)

// Header is the parsed three-symbol transaction header.
type Header struct {
	// Timestamp is the 100 MHz hardware counter value latched by the
	// capture trigger.
	Timestamp uint64
	// LOFrequencyHz is the local-oscillator carrier frequency. The field
	// is stored on the wire in deca-Hz across 29 bits.
	LOFrequencyHz uint64
	// MultistaticTrigger reports whether the multistatic trigger source
	// fired the capture.
	MultistaticTrigger bool
	// AllAntenna reports whether the TX baseband was captured alongside
	// both RX antennas.
	AllAntenna bool
}

// TimestampSeconds converts the hardware counter to seconds.
func (h Header) TimestampSeconds() float64 {
	return float64(h.Timestamp) / timestampClockHz
}

// Transaction is one parsed capture: the header plus the antenna streams
// the layout provides. Absent streams are nil.
type Transaction struct {
	Header

	// RX0 and RX1 are the receive antenna streams.
	RX0 []complex128
	RX1 []complex128
	// TX is the looped-back transmit baseband.
	TX []complex128

	// AGCGain and RSSIHalfDB are per-sample gain and signal strength,
	// present only for LayoutRSSIRxIQ0. RSSI is in half-dB steps.
	AGCGain    []int16
	RSSIHalfDB []int16
}

// DMASymbolsPerTransaction returns the transaction size in DMA symbols for
// a layout and IQ length (in DMA symbols). LayoutIQAll appends the TX chunk
// and one separator symbol after the RX payload.
func DMASymbolsPerTransaction(layout Layout, iqLen int) (int, error) {
	if iqLen <= 0 {
		return 0, fmt.Errorf("IQ length must be positive, got %d", iqLen)
	}
	var n int
	switch layout {
	case LayoutIQAll:
		n = headerDMASymbols + iqLen + iqLen/2 + 1
	case LayoutRxIQ0IQ1, LayoutTxRxIQ0, LayoutRSSIRxIQ0:
		n = headerDMASymbols + iqLen
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownLayout, layout)
	}
	if n > maxDMASymbolsPerTransaction {
		return 0, fmt.Errorf("transaction of %d DMA symbols exceeds the datagram limit %d", n, maxDMASymbolsPerTransaction)
	}
	return n, nil
}

// ParseSideChannel splits a word buffer into transactions and parses each
// header and payload. iqLen is the IQ capture length in DMA symbols, as
// configured on the hardware side.
func ParseSideChannel(words []uint16, layout Layout, iqLen int, logger logging.Logger) ([]Transaction, error) {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	symbols, err := DMASymbolsPerTransaction(layout, iqLen)
	if err != nil {
		return nil, err
	}
	wordsPerTrans := symbols * wordsPerDMASymbol
	if len(words) == 0 || len(words)%wordsPerTrans != 0 {
		return nil, fmt.Errorf("%w: %d words, %d per transaction", ErrAbnormalLength, len(words), wordsPerTrans)
	}

	out := make([]Transaction, 0, len(words)/wordsPerTrans)
	for off := 0; off < len(words); off += wordsPerTrans {
		trans := words[off : off+wordsPerTrans]

		t := Transaction{Header: parseHeader(trans)}
		if layout == LayoutIQAll && !t.AllAntenna {
			logger.Warn("all-antenna flag off in a transaction parsed as iq_all", logging.Fields{
				"transaction": len(out),
			})
		}

		switch layout {
		case LayoutRxIQ0IQ1:
			t.RX0 = complexStream(trans, payloadWordIdx, 4, 0)
			t.RX1 = complexStream(trans, payloadWordIdx+2, 4, 0)
		case LayoutTxRxIQ0:
			t.RX0 = complexStream(trans, payloadWordIdx, 4, 0)
			t.TX = complexStream(trans, payloadWordIdx+2, 4, 0)
		case LayoutIQAll:
			// Per-antenna samples come in iqLen-symbol blocks; the TX
			// chunk follows a separator symbol, packed two words per
			// sample.
			t.RX0 = complexStream(trans, payloadWordIdx, 4, iqLen)
			t.RX1 = complexStream(trans, payloadWordIdx+2, 4, iqLen)
			txStart := wordsPerDMASymbol * (headerDMASymbols + iqLen + 2)
			t.TX = complexStream(trans, txStart, 2, 0)
		case LayoutRSSIRxIQ0:
			t.RX0 = complexStream(trans, payloadWordIdx, 4, 0)
			t.AGCGain = signedStream(trans, payloadWordIdx+2, 4)
			t.RSSIHalfDB = signedStream(trans, payloadWordIdx+3, 4)
		}
		out = append(out, t)
	}
	return out, nil
}

func parseHeader(trans []uint16) Header {
	meta := uint64At(trans, wordsPerDMASymbol)
	return Header{
		Timestamp:          uint64At(trans, 0),
		LOFrequencyHz:      ((meta >> loFrequencyShift) & (1<<loFrequencyBits - 1)) * 10,
		MultistaticTrigger: meta>>triggerShift&1 == 1,
		AllAntenna:         meta>>allAntennaShift&1 == 1,
	}
}

// complexStream reads I/Q word pairs starting at start with the given word
// stride, reinterpreting the unsigned words as two's-complement samples.
// maxSamples > 0 truncates the stream.
func complexStream(trans []uint16, start, stride, maxSamples int) []complex128 {
	var out []complex128
	for i := start; i+1 < len(trans); i += stride {
		if maxSamples > 0 && len(out) == maxSamples {
			break
		}
		out = append(out, complex(float64(int16(trans[i])), float64(int16(trans[i+1]))))
	}
	return out
}

func signedStream(trans []uint16, start, stride int) []int16 {
	var out []int16
	for i := start; i < len(trans); i += stride {
		out = append(out, int16(trans[i]))
	}
	return out
}

// uint64At reconstructs a 64-bit value from four 16-bit words, least
// significant word first.
func uint64At(words []uint16, idx int) uint64 {
	return uint64(words[idx]) |
		uint64(words[idx+1])<<16 |
		uint64(words[idx+2])<<32 |
		uint64(words[idx+3])<<48
}

// The IQ/CSI indicator sits in the top bit of the metadata symbol.
const (
	dataTypeSymbolIdx = 1
	dataTypeByteIdx   = 7
)

// DataType distinguishes the two side-channel stream kinds.
type DataType int

const (
	DataTypeCSI DataType = 0
	DataTypeIQ  DataType = 1
)

// DetectDataType reads the IQ/CSI indicator bit from a raw little-endian
// byte buffer, before any word-level parsing.
func DetectDataType(data []byte) (DataType, error) {
	idx := dataTypeSymbolIdx*8 + dataTypeByteIdx
	if idx >= len(data) {
		return 0, fmt.Errorf("buffer of %d bytes too short for the type indicator", len(data))
	}
	return DataType(data[idx] >> 7), nil
}
