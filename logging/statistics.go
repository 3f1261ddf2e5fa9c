package logging

import (
	"math"
	"math/cmplx"
)

// LogComplexStatistics logs detailed statistics of a complex data array at
// debug level: extremes of the real/imaginary parts, magnitude and power (dB),
// phase range, and the bit depth required to represent the data in two's
// complement. All computation is skipped unless the logger emits debug, since
// these scans are expensive on per-frame capture buffers.
func LogComplexStatistics(logger Logger, label string, data []complex128) {
	if logger == nil || !logger.Enabled(DebugLevel) {
		return
	}
	if len(data) == 0 {
		logger.Debug("complex statistics: empty array", Fields{"label": label})
		return
	}

	realMax, realMin := math.Inf(-1), math.Inf(1)
	imagMax, imagMin := math.Inf(-1), math.Inf(1)
	magMaxIdx, magMinIdx := 0, 0
	magMax, magMin := math.Inf(-1), math.Inf(1)
	phaseMax, phaseMin := math.Inf(-1), math.Inf(1)
	var powerSum float64

	for i, v := range data {
		re, im := real(v), imag(v)
		realMax = math.Max(realMax, re)
		realMin = math.Min(realMin, re)
		imagMax = math.Max(imagMax, im)
		imagMin = math.Min(imagMin, im)

		mag := cmplx.Abs(v)
		if mag > magMax {
			magMax, magMaxIdx = mag, i
		}
		if mag < magMin {
			magMin, magMinIdx = mag, i
		}
		powerSum += mag * mag

		ph := cmplx.Phase(v)
		phaseMax = math.Max(phaseMax, ph)
		phaseMin = math.Min(phaseMin, ph)
	}

	meanPower := powerSum / float64(len(data))

	logger.Debug("complex statistics", Fields{
		"label":       label,
		"len":         len(data),
		"real_max":    realMax,
		"real_min":    realMin,
		"imag_max":    imagMax,
		"imag_min":    imagMin,
		"mag_max":     magMax,
		"mag_max_idx": magMaxIdx,
		"mag_min":     magMin,
		"mag_min_idx": magMinIdx,
		"phase_max":   phaseMax,
		"phase_min":   phaseMin,
	})

	fields := Fields{
		"label":      label,
		"mean_power": meanPower,
		"max_power":  magMax * magMax,
	}
	if meanPower > 0 {
		fields["mean_power_db"] = 10 * math.Log10(meanPower)
	}
	if magMin > 0 {
		fields["min_power_db"] = 10 * math.Log10(magMin*magMin)
	}
	logger.Debug("complex power statistics", fields)

	realAbs := math.Max(math.Abs(realMax), math.Abs(realMin))
	imagAbs := math.Max(math.Abs(imagMax), math.Abs(imagMin))
	logger.Debug("complex bit depth", Fields{
		"label":     label,
		"bits_real": requiredBits(realAbs),
		"bits_imag": requiredBits(imagAbs),
	})
}

// requiredBits returns the number of bits needed to represent the given
// absolute maximum in two's complement.
func requiredBits(maxAbs float64) int {
	if maxAbs <= 0 {
		return 1
	}
	return int(math.Ceil(math.Log2(maxAbs))) + 1
}
