package spectral

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Detrend removes a fitted polynomial of the given order from the signal and
// returns the residual. Order 0 is mean removal; order 1 removes a linear
// trend. The fit is an ordinary least-squares solve of the Vandermonde
// system.
func Detrend(signal []float64, order int) ([]float64, error) {
	if order < 0 {
		return nil, fmt.Errorf("detrend order must be >= 0, got %d", order)
	}
	if len(signal) <= order {
		return nil, fmt.Errorf("signal length %d too short for detrend order %d", len(signal), order)
	}

	residual := make([]float64, len(signal))

	if order == 0 {
		mean := stat.Mean(signal, nil)
		for i, v := range signal {
			residual[i] = v - mean
		}
		return residual, nil
	}

	n := len(signal)
	vand := mat.NewDense(n, order+1, nil)
	for i := 0; i < n; i++ {
		// Normalized abscissa keeps the Vandermonde system well conditioned
		// for higher orders.
		x := float64(i) / float64(n-1)
		p := 1.0
		for j := 0; j <= order; j++ {
			vand.Set(i, j, p)
			p *= x
		}
	}

	var qr mat.QR
	qr.Factorize(vand)

	y := mat.NewDense(n, 1, nil)
	for i, v := range signal {
		y.Set(i, 0, v)
	}

	var coeff mat.Dense
	if err := qr.SolveTo(&coeff, false, y); err != nil {
		return nil, fmt.Errorf("polynomial fit failed: %w", err)
	}

	for i := 0; i < n; i++ {
		x := float64(i) / float64(n-1)
		fitted := 0.0
		for j := order; j >= 0; j-- {
			fitted = fitted*x + coeff.At(j, 0)
		}
		residual[i] = signal[i] - fitted
	}
	return residual, nil
}

// LinearTrend fits a straight line y = intercept + slope*x to the given
// series and returns the fit parameters. NaN inputs yield NaN parameters.
func LinearTrend(x, y []float64) (intercept, slope float64) {
	if len(x) != len(y) || len(x) < 2 {
		return math.NaN(), math.NaN()
	}
	intercept, slope = stat.LinearRegression(x, y, nil, false)
	return intercept, slope
}
