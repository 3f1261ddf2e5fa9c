package channel

import (
	"errors"
	"fmt"
	"math"

	"github.com/dustin/go-humanize"

	"github.com/owsense/csikit/algorithms/common"
	"github.com/owsense/csikit/logging"
	"github.com/owsense/csikit/ofdm"
)

// ErrAntennaCountMismatch is returned when a chunk reports a different
// antenna count than the dataset was set up with. Differing per-chunk
// antenna counts indicate an inconsistent capture configuration, so the
// dataset is aborted rather than resized around it.
var ErrAntennaCountMismatch = errors.New("antenna count mismatch across chunks")

// FrameSource provides TX/RX sample data for one dataset. RX data is read in
// row chunks so the pipeline never holds the full capture in memory. Chunks
// are requested strictly sequentially: frame order is load-bearing for the
// time-series semantics downstream.
type FrameSource interface {
	// NumFrames returns the total number of frames in the dataset.
	NumFrames() int
	// ReadChunk returns RX samples for frames [start, start+count) as a
	// frames x antennas x samples tensor.
	ReadChunk(start, count int) ([][][]complex128, error)
	// TXReference returns the transmitted reference waveform for the given
	// frame. Sources with a shared reference return the same slice for
	// every frame.
	TXReference(frame int) []complex128
}

// Result is the per-dataset output of the pipeline: a complete time series
// of CIR and CSI per frame and antenna, plus clipping diagnostics. Filtered
// variants are present only when the filter was enabled; they never alias
// the raw tensors.
type Result struct {
	// CSI is frames x antennas x activeSubcarriers.
	CSI [][][]complex128
	// CIR is frames x antennas x FFTLength.
	CIR [][][]complex128

	// FilteredCSI and FilteredCIR hold the subcarrier-smoothed CSI and its
	// least-squares CIR reconstruction when FilterSize > 1, nil otherwise.
	FilteredCSI [][][]complex128
	FilteredCIR [][][]complex128

	// ClippedSamples counts RX samples at or beyond ADC full scale across
	// the whole dataset.
	ClippedSamples int

	Mapping *ofdm.SubcarrierMapping
}

// Pipeline drives the per-dataset CSI/CIR extraction: chunked reading,
// CIR estimation, pruned-DFT conversion, clipping diagnostics and the
// optional subcarrier-axis filter. The subcarrier mapping and transform
// matrices are built once at construction and reused across all frames.
type Pipeline struct {
	cfg       PipelineConfig
	field     ofdm.FieldConfig
	mapping   *ofdm.SubcarrierMapping
	dft       *ofdm.PrunedDFT
	estimator *Estimator
	logger    logging.Logger
}

// NewPipeline validates the configuration and precomputes the subcarrier
// mapping and pruned DFT matrix for the dataset's field.
func NewPipeline(field ofdm.FieldConfig, cfg PipelineConfig, logger logging.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	mapping, err := ofdm.NewSubcarrierMapping(field, 0)
	if err != nil {
		return nil, err
	}
	dft, err := ofdm.NewPrunedDFT(cfg.FFTLength, field.ActiveIndices, 0, logger)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		cfg:       cfg,
		field:     field,
		mapping:   mapping,
		dft:       dft,
		estimator: NewEstimator(logger, cfg.StrictPeakCheck),
		logger:    logger,
	}, nil
}

// Mapping returns the dataset's subcarrier mapping.
func (p *Pipeline) Mapping() *ofdm.SubcarrierMapping { return p.mapping }

// Process runs the pipeline over all frames of a dataset. Bounds errors on
// any frame abort the dataset: a single malformed frame usually means a
// systemic offset miscalibration. Clipping and peak discrepancies are
// diagnostics only and never stop processing.
func (p *Pipeline) Process(dataset string, src FrameSource) (*Result, error) {
	nFrames := src.NumFrames()
	if nFrames <= 0 {
		return nil, fmt.Errorf("dataset %s: no frames", dataset)
	}

	fullScale := common.FullScale(p.cfg.ADCBitWidth)
	result := &Result{Mapping: p.mapping}

	nAntennas := 0
	clippingWarnings := 0

	for start := 0; start < nFrames; start += p.cfg.ChunkSize {
		count := p.cfg.ChunkSize
		if start+count > nFrames {
			count = nFrames - start
		}

		chunk, err := src.ReadChunk(start, count)
		if err != nil {
			return nil, fmt.Errorf("dataset %s: reading frames [%d, %d): %w", dataset, start, start+count, err)
		}
		if len(chunk) != count {
			return nil, fmt.Errorf("dataset %s: chunk returned %d frames, want %d", dataset, len(chunk), count)
		}

		chunkBytes := 0
		for i, frame := range chunk {
			frameIdx := start + i

			if nAntennas == 0 {
				// First frame fixes the antenna count; the output tensors
				// are preallocated for the whole dataset.
				nAntennas = len(frame)
				if nAntennas == 0 {
					return nil, fmt.Errorf("dataset %s: frame %d has no antennas", dataset, frameIdx)
				}
				result.CSI = allocTensor(nFrames, nAntennas)
				result.CIR = allocTensor(nFrames, nAntennas)

				if len(frame[0]) > 0 {
					logging.LogComplexStatistics(p.logger, fmt.Sprintf("%s rx0", dataset), frame[0])
				}
			}
			if len(frame) != nAntennas {
				return nil, fmt.Errorf("dataset %s: frame %d: %w: got %d, dataset has %d",
					dataset, frameIdx, ErrAntennaCountMismatch, len(frame), nAntennas)
			}

			for ant, rx := range frame {
				chunkBytes += 16 * len(rx)

				clipped := countClipped(rx, fullScale)
				if clipped > 0 {
					result.ClippedSamples += clipped
					if clippingWarnings < p.cfg.MaxClippingWarnings {
						clippingWarnings++
						p.logger.Warn("ADC clipping detected", logging.Fields{
							"dataset":    dataset,
							"frame":      frameIdx,
							"antenna":    ant,
							"clipped":    clipped,
							"full_scale": fullScale,
						})
					}
				}

				cir, err := p.estimator.ComputeCIR(src.TXReference(frameIdx), rx, p.cfg.RxStartIndex, p.cfg.FFTLength)
				if err != nil {
					return nil, fmt.Errorf("dataset %s: frame %d antenna %d: %w", dataset, frameIdx, ant, err)
				}
				csi, err := p.dft.Forward(cir)
				if err != nil {
					return nil, fmt.Errorf("dataset %s: frame %d antenna %d: %w", dataset, frameIdx, ant, err)
				}

				result.CIR[frameIdx][ant] = cir
				result.CSI[frameIdx][ant] = csi
			}
		}

		p.logger.Debug("chunk processed", logging.Fields{
			"dataset": dataset,
			"frames":  fmt.Sprintf("[%d, %d)", start, start+count),
			"size":    humanize.Bytes(uint64(chunkBytes)),
		})
	}

	if p.cfg.FilterSize > 1 {
		if err := p.applyFilter(dataset, result, nFrames, nAntennas); err != nil {
			return nil, err
		}
	}

	p.logger.Info("dataset processed", logging.Fields{
		"dataset":         dataset,
		"frames":          nFrames,
		"antennas":        nAntennas,
		"clipped_samples": result.ClippedSamples,
	})
	return result, nil
}

// applyFilter smooths the CSI tensor across subcarriers per antenna and
// reconstructs the matching CIR through the pseudo-inverse.
func (p *Pipeline) applyFilter(dataset string, result *Result, nFrames, nAntennas int) error {
	result.FilteredCSI = allocTensor(nFrames, nAntennas)
	result.FilteredCIR = allocTensor(nFrames, nAntennas)

	for ant := 0; ant < nAntennas; ant++ {
		perAntenna := make([][]complex128, nFrames)
		for f := 0; f < nFrames; f++ {
			perAntenna[f] = result.CSI[f][ant]
		}

		filtered, err := FilterCSI(perAntenna, p.field.ActiveIndices, p.cfg.FilterSize)
		if err != nil {
			return fmt.Errorf("dataset %s: filtering antenna %d: %w", dataset, ant, err)
		}

		for f := 0; f < nFrames; f++ {
			cir, err := p.dft.Inverse(filtered[f])
			if err != nil {
				return fmt.Errorf("dataset %s: reconstructing frame %d antenna %d: %w", dataset, f, ant, err)
			}
			result.FilteredCSI[f][ant] = filtered[f]
			result.FilteredCIR[f][ant] = cir
		}
	}
	return nil
}

// countClipped counts samples with either rail at or beyond full scale. The
// ADC clips I and Q independently, so each rail is tested on its own.
func countClipped(rx []complex128, fullScale float64) int {
	clipped := 0
	for _, v := range rx {
		if math.Abs(real(v)) >= fullScale || math.Abs(imag(v)) >= fullScale {
			clipped++
		}
	}
	return clipped
}

func allocTensor(frames, antennas int) [][][]complex128 {
	t := make([][][]complex128, frames)
	for f := range t {
		t[f] = make([][]complex128, antennas)
	}
	return t
}
