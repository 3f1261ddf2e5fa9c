package common

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/stat"
)

// Basic numeric helpers shared across the channel-estimation algorithms,
// using gonum where it has a robust implementation.

// Mean calculates the arithmetic mean of a slice using gonum
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return stat.Mean(data, nil)
}

// RMS calculates root mean square
func RMS(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}

	sumSquares := 0.0
	for _, val := range data {
		sumSquares += val * val
	}

	return math.Sqrt(sumSquares / float64(len(data)))
}

// MagnitudeToDB converts magnitude to decibels.
func MagnitudeToDB(magnitude float64) float64 {
	return 20 * math.Log10(magnitude)
}

// DBToMagnitude converts decibels to magnitude.
func DBToMagnitude(db float64) float64 {
	return math.Pow(10, db/20)
}

// PowerToDB converts power to decibels.
func PowerToDB(power float64) float64 {
	return 10 * math.Log10(power)
}

// DBToPower converts decibels to power.
func DBToPower(db float64) float64 {
	return math.Pow(10, db/10)
}

// AveragePower calculates the average power of a complex array.
func AveragePower(data []complex128) float64 {
	if len(data) == 0 {
		return 0.0
	}
	var sum float64
	for _, v := range data {
		mag := cmplx.Abs(v)
		sum += mag * mag
	}
	return sum / float64(len(data))
}

// AveragePowerDB calculates the average power of a complex array in dB.
func AveragePowerDB(data []complex128) float64 {
	return PowerToDB(AveragePower(data))
}

// Unwrap corrects phase angles so that consecutive differences never exceed
// pi in magnitude, producing a continuous phase curve.
func Unwrap(phase []float64) []float64 {
	unwrapped := make([]float64, len(phase))
	if len(phase) == 0 {
		return unwrapped
	}

	unwrapped[0] = phase[0]
	offset := 0.0
	for i := 1; i < len(phase); i++ {
		diff := phase[i] - phase[i-1]
		if diff > math.Pi {
			offset -= 2 * math.Pi
		} else if diff < -math.Pi {
			offset += 2 * math.Pi
		}
		unwrapped[i] = phase[i] + offset
	}
	return unwrapped
}

// IsPowerOfTwo checks if n is a power of 2
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}

// NextPowerOfTwo finds the next power of 2 >= n
func NextPowerOfTwo(n int) int {
	if n <= 0 {
		return 1
	}

	power := 1
	for power < n {
		power <<= 1
	}
	return power
}

// FullScale returns the positive full-scale value of a signed ADC with the
// given bit width: 2^(bits-1) - 1. Samples at or beyond this level are
// clipped.
func FullScale(bitWidth int) float64 {
	return math.Pow(2, float64(bitWidth-1)) - 1
}

// FixedPointSignedRange returns the minimum and maximum representable values
// of a signed fixed-point number with nInt integer and nFrac fractional bits.
func FixedPointSignedRange(nInt, nFrac int) (min, max float64) {
	min = -math.Pow(2, float64(nInt-1))
	max = math.Pow(2, float64(nInt-1)) - math.Pow(2, -float64(nFrac))
	return min, max
}

// FixedPointUnsignedRange returns the minimum and maximum representable
// values of an unsigned fixed-point number.
func FixedPointUnsignedRange(nInt, nFrac int) (min, max float64) {
	return 0, math.Pow(2, float64(nInt)) - math.Pow(2, -float64(nFrac))
}

// ToUnsigned converts a signed integer to its two's-complement unsigned
// representation at the given bit width.
func ToUnsigned(value int64, bitWidth int) uint64 {
	if value < 0 {
		return uint64(value + (1 << bitWidth))
	}
	return uint64(value)
}

// RequiredBits returns the number of bits needed to represent the largest
// absolute value in data in two's complement.
func RequiredBits(data []float64) int {
	maxAbs := 0.0
	for _, v := range data {
		if a := math.Abs(v); a > maxAbs {
			maxAbs = a
		}
	}
	if maxAbs <= 0 {
		return 1
	}
	return int(math.Ceil(math.Log2(maxAbs))) + 1
}
