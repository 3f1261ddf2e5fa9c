package capture

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/owsense/csikit/channel"
	"github.com/owsense/csikit/logging"
	"github.com/owsense/csikit/ofdm"
)

// loopbackBuffer builds a tx_rx_iq0 capture whose RX stream equals the TX
// stream: an ideal loopback channel. The reference is a quantized constant
// amplitude chirp repeated over the capture.
func loopbackBuffer(nFrames, iqLen int, amplitude float64) []uint16 {
	var words []uint16
	for f := 0; f < nFrames; f++ {
		payload := make([]uint16, 0, iqLen*wordsPerDMASymbol)
		for n := 0; n < iqLen; n++ {
			phase := -math.Pi * float64((n%64)*(n%64)) / 64
			i := uint16(int16(math.Round(amplitude * math.Cos(phase))))
			q := uint16(int16(math.Round(amplitude * math.Sin(phase))))
			payload = append(payload, i, q, i, q)
		}
		// 10 ms frame spacing on the 100 MHz counter.
		ts := uint64(f) * 1_000_000
		words = append(words, buildTransaction(ts, buildMeta(2412e6, false, false), payload)...)
	}
	return words
}

func TestSource_FromParsedTransactions(t *testing.T) {
	words := loopbackBuffer(5, 16, 500)
	trans, err := ParseSideChannel(words, LayoutTxRxIQ0, 16, &logging.NoOpLogger{})
	if err != nil {
		t.Fatalf("ParseSideChannel failed: %v", err)
	}

	src, err := NewSource(trans)
	if err != nil {
		t.Fatalf("NewSource failed: %v", err)
	}
	if src.NumFrames() != 5 {
		t.Fatalf("NumFrames = %d, want 5", src.NumFrames())
	}

	chunk, err := src.ReadChunk(1, 3)
	if err != nil {
		t.Fatalf("ReadChunk failed: %v", err)
	}
	if len(chunk) != 3 || len(chunk[0]) != 1 || len(chunk[0][0]) != 16 {
		t.Fatalf("chunk shape %dx%dx%d, want 3x1x16", len(chunk), len(chunk[0]), len(chunk[0][0]))
	}
	if len(src.TXReference(0)) != 16 {
		t.Fatalf("TX reference length %d, want 16", len(src.TXReference(0)))
	}

	ts := src.Timestamps()
	for i := 1; i < len(ts); i++ {
		if math.Abs(ts[i]-ts[i-1]-0.01) > 1e-9 {
			t.Fatalf("frame spacing %v s at %d, want 0.01", ts[i]-ts[i-1], i)
		}
	}

	if _, err := src.ReadChunk(3, 5); err == nil {
		t.Error("expected error for out-of-range chunk")
	}
}

func TestSource_Errors(t *testing.T) {
	if _, err := NewSource(nil); err == nil {
		t.Error("expected error for empty transaction list")
	}
	if _, err := NewSource([]Transaction{{RX0: []complex128{1}}}); err == nil {
		t.Error("expected error for a transaction without TX")
	}
	if _, err := NewSource([]Transaction{
		{RX0: []complex128{1}, TX: []complex128{1}},
		{RX0: []complex128{1}, RX1: []complex128{1}, TX: []complex128{1}},
	}); err == nil {
		t.Error("expected error for mixed antenna counts")
	}
}

func TestSource_DrivesChannelPipeline(t *testing.T) {
	const iqLen = 128
	words := loopbackBuffer(4, iqLen, 1000)
	trans, err := ParseSideChannel(words, LayoutTxRxIQ0, iqLen, &logging.NoOpLogger{})
	if err != nil {
		t.Fatalf("ParseSideChannel failed: %v", err)
	}
	src, err := NewSource(trans)
	if err != nil {
		t.Fatalf("NewSource failed: %v", err)
	}

	var active []int
	for i := 7; i <= 59; i++ {
		if i != 33 {
			active = append(active, i)
		}
	}
	field := ofdm.FieldConfig{FFTLength: 64, SampleRate: 20e6, ActiveIndices: active}
	cfg := channel.DefaultPipelineConfig()
	cfg.FFTLength = 64

	p, err := channel.NewPipeline(field, cfg, &logging.NoOpLogger{})
	if err != nil {
		t.Fatalf("NewPipeline failed: %v", err)
	}
	res, err := p.Process("loopback", src)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if len(res.CSI) != 4 || len(res.CSI[0]) != 1 || len(res.CSI[0][0]) != len(active) {
		t.Fatalf("CSI shape %dx%dx%d", len(res.CSI), len(res.CSI[0]), len(res.CSI[0][0]))
	}
	if res.ClippedSamples != 0 {
		t.Errorf("ClippedSamples = %d, want 0", res.ClippedSamples)
	}

	// Loopback: the zero-delay tap carries essentially all the energy.
	cir := res.CIR[0][0]
	peak := cmplx.Abs(cir[0])
	if peak < 0.9e6 {
		t.Errorf("zero-delay tap magnitude %v, want ~1e6", peak)
	}
	for k := 1; k < len(cir); k++ {
		if cmplx.Abs(cir[k]) > peak/5 {
			t.Errorf("tap %d magnitude %v rivals the loopback tap", k, cmplx.Abs(cir[k]))
		}
	}
}
