package capture

import (
	"errors"
	"math"
	"testing"

	"github.com/owsense/csikit/logging"
)

// buildCSITransaction lays out one hardware CSI transaction: the
// eight-symbol header followed by one complex sample per payload symbol in
// the on-wire upper-half-first order.
func buildCSITransaction(timestamp uint64, loFreqHz uint64, freqOffsetWord int16, extra [numExtraTimestamps]uint64, payload []complex128) []uint16 {
	words := make([]uint16, csiPayloadWordIdx+len(payload)*wordsPerDMASymbol)
	putUint64(words, 0, timestamp)
	putUint64(words, freqOffsetWordIdx, (loFreqHz/10)<<loFrequencyShift|uint64(uint16(freqOffsetWord)))
	for i, ts := range extra {
		putUint64(words, (extraTimestampsSymbolIdx+i)*wordsPerDMASymbol, ts)
	}
	for s, v := range payload {
		words[csiPayloadWordIdx+s*wordsPerDMASymbol] = uint16(int16(real(v)))
		words[csiPayloadWordIdx+s*wordsPerDMASymbol+1] = uint16(int16(imag(v)))
	}
	return words
}

func TestParseCSISideChannel_HeaderAndSubcarrierOrder(t *testing.T) {
	// Distinct value per subcarrier so the half-block reorder is visible.
	payload := make([]complex128, csiLenDMASymbols)
	for s := range payload {
		payload[s] = complex(float64(s+1), float64(-(s + 1)))
	}
	extra := [numExtraTimestamps]uint64{11, 22, 33, 44, 55, 66}
	words := buildCSITransaction(987654321, 5180e6, -256, extra, payload)

	trans, err := ParseCSISideChannel(words, 0, &logging.NoOpLogger{})
	if err != nil {
		t.Fatalf("ParseCSISideChannel failed: %v", err)
	}
	if len(trans) != 1 {
		t.Fatalf("got %d transactions, want 1", len(trans))
	}

	tr := trans[0]
	if tr.Timestamp != 987654321 {
		t.Errorf("Timestamp = %d, want 987654321", tr.Timestamp)
	}
	if math.Abs(tr.TimestampSeconds()-9.87654321) > 1e-12 {
		t.Errorf("TimestampSeconds = %v, want 9.87654321", tr.TimestampSeconds())
	}
	if tr.ExtraTimestamps != extra {
		t.Errorf("ExtraTimestamps = %v, want %v", tr.ExtraTimestamps, extra)
	}
	if tr.LOFrequencyHz != 5180e6 {
		t.Errorf("LOFrequencyHz = %d, want 5180000000", tr.LOFrequencyHz)
	}
	wantOffset := 20e6 * -256 / 512 / (2 * math.Pi)
	if math.Abs(tr.FrequencyOffsetHz-wantOffset) > 1e-9 {
		t.Errorf("FrequencyOffsetHz = %v, want %v", tr.FrequencyOffsetHz, wantOffset)
	}

	// The wire carries the upper half of the band first: output subcarrier
	// i holds wire sample (i+28) mod 56.
	if len(tr.CSI) != csiLenDMASymbols {
		t.Fatalf("CSI length = %d, want %d", len(tr.CSI), csiLenDMASymbols)
	}
	for i := range tr.CSI {
		if want := payload[(i+csiHalfDMASymbols)%csiLenDMASymbols]; tr.CSI[i] != want {
			t.Errorf("CSI[%d] = %v, want %v", i, tr.CSI[i], want)
		}
	}
	if tr.Equalizer != nil {
		t.Errorf("Equalizer = %v, want nil without equalized symbols", tr.Equalizer)
	}
}

func TestParseCSISideChannel_Equalizer(t *testing.T) {
	payload := make([]complex128, csiLenDMASymbols+equalizerLenDMASymbols)
	for s := range payload {
		payload[s] = complex(float64(2*s), float64(2*s+1))
	}
	words := buildCSITransaction(1, 2412e6, 0, [numExtraTimestamps]uint64{}, payload)

	trans, err := ParseCSISideChannel(words, 1, &logging.NoOpLogger{})
	if err != nil {
		t.Fatalf("ParseCSISideChannel failed: %v", err)
	}

	tr := trans[0]
	if len(tr.Equalizer) != equalizerLenDMASymbols {
		t.Fatalf("Equalizer length = %d, want %d", len(tr.Equalizer), equalizerLenDMASymbols)
	}
	// Equalized symbols follow the CSI block on the wire, unswapped.
	for i := range tr.Equalizer {
		if want := payload[csiLenDMASymbols+i]; tr.Equalizer[i] != want {
			t.Errorf("Equalizer[%d] = %v, want %v", i, tr.Equalizer[i], want)
		}
	}
}

func TestParseCSISideChannel_MultipleTransactions(t *testing.T) {
	payload := make([]complex128, csiLenDMASymbols)
	first := buildCSITransaction(100, 2412e6, 0, [numExtraTimestamps]uint64{}, payload)
	second := buildCSITransaction(200, 2412e6, 0, [numExtraTimestamps]uint64{}, payload)
	words := append(append([]uint16{}, first...), second...)

	trans, err := ParseCSISideChannel(words, 0, &logging.NoOpLogger{})
	if err != nil {
		t.Fatalf("ParseCSISideChannel failed: %v", err)
	}
	if len(trans) != 2 {
		t.Fatalf("got %d transactions, want 2", len(trans))
	}
	if trans[0].Timestamp != 100 || trans[1].Timestamp != 200 {
		t.Errorf("timestamps = %d, %d, want 100, 200", trans[0].Timestamp, trans[1].Timestamp)
	}
}

func TestParseCSISideChannel_Errors(t *testing.T) {
	payload := make([]complex128, csiLenDMASymbols)
	words := buildCSITransaction(1, 2412e6, 0, [numExtraTimestamps]uint64{}, payload)

	if _, err := ParseCSISideChannel(words[:len(words)-1], 0, &logging.NoOpLogger{}); !errors.Is(err, ErrAbnormalLength) {
		t.Errorf("expected ErrAbnormalLength for a truncated buffer, got %v", err)
	}
	if _, err := ParseCSISideChannel(nil, 0, &logging.NoOpLogger{}); !errors.Is(err, ErrAbnormalLength) {
		t.Errorf("expected ErrAbnormalLength for an empty buffer, got %v", err)
	}
	// The equalizer count changes the transaction size, so a buffer built
	// for numEq 0 is abnormal under numEq 1.
	if _, err := ParseCSISideChannel(words, 1, &logging.NoOpLogger{}); !errors.Is(err, ErrAbnormalLength) {
		t.Errorf("expected ErrAbnormalLength for a mismatched equalizer count, got %v", err)
	}
	if _, err := ParseCSISideChannel(words, -1, &logging.NoOpLogger{}); err == nil {
		t.Error("expected error for a negative equalizer count")
	}
}

func TestCSIDMASymbolsPerTransaction(t *testing.T) {
	if n, err := CSIDMASymbolsPerTransaction(0); err != nil || n != 64 {
		t.Errorf("CSIDMASymbolsPerTransaction(0) = %d, %v, want 64", n, err)
	}
	if n, err := CSIDMASymbolsPerTransaction(2); err != nil || n != 64+2*equalizerLenDMASymbols {
		t.Errorf("CSIDMASymbolsPerTransaction(2) = %d, %v, want %d", n, err, 64+2*equalizerLenDMASymbols)
	}
	if _, err := CSIDMASymbolsPerTransaction(-1); err == nil {
		t.Error("expected error for a negative equalizer count")
	}
	// 157 equalized symbols push the transaction past one UDP datagram.
	if _, err := CSIDMASymbolsPerTransaction(157); err == nil {
		t.Error("expected error past the datagram limit")
	}
}
