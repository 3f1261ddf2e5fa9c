package capture

import "fmt"

// Source adapts parsed side-channel transactions to the frame-source shape
// the channel pipeline reads: chunked RX tensors plus a per-frame TX
// reference. It requires a layout that captured the TX baseband.
type Source struct {
	transactions []Transaction
	antennas     int
}

// NewSource wraps transactions as a frame source. Every transaction must
// carry a TX stream and the same antenna count.
func NewSource(transactions []Transaction) (*Source, error) {
	if len(transactions) == 0 {
		return nil, fmt.Errorf("no transactions")
	}

	antennas := 0
	for i, t := range transactions {
		if len(t.TX) == 0 {
			return nil, fmt.Errorf("transaction %d has no TX stream; use a TX-capturing layout", i)
		}
		n := 1
		if t.RX1 != nil {
			n = 2
		}
		if antennas == 0 {
			antennas = n
		} else if n != antennas {
			return nil, fmt.Errorf("transaction %d has %d antennas, earlier transactions have %d", i, n, antennas)
		}
	}
	return &Source{transactions: transactions, antennas: antennas}, nil
}

// NumFrames returns the number of captured transactions.
func (s *Source) NumFrames() int { return len(s.transactions) }

// ReadChunk returns RX samples for frames [start, start+count) as a
// frames x antennas x samples tensor.
func (s *Source) ReadChunk(start, count int) ([][][]complex128, error) {
	if start < 0 || count < 0 || start+count > len(s.transactions) {
		return nil, fmt.Errorf("chunk [%d, %d) outside %d frames", start, start+count, len(s.transactions))
	}
	chunk := make([][][]complex128, count)
	for i := range chunk {
		t := s.transactions[start+i]
		frame := [][]complex128{t.RX0}
		if s.antennas == 2 {
			frame = append(frame, t.RX1)
		}
		chunk[i] = frame
	}
	return chunk, nil
}

// TXReference returns the captured TX baseband of the given frame.
func (s *Source) TXReference(frame int) []complex128 {
	return s.transactions[frame].TX
}

// Timestamps returns the per-frame capture times in seconds, the irregular
// time axis the sensing resampler consumes.
func (s *Source) Timestamps() []float64 {
	out := make([]float64, len(s.transactions))
	for i, t := range s.transactions {
		out[i] = t.TimestampSeconds()
	}
	return out
}
