// Package stats provides the population statistics used by the correlation
// engine: mean, variance, standard deviation, covariance, Pearson correlation
// and full correlation matrices. All moments are population moments (1/n).
package stats

import (
	"errors"
	"math"
)

var (
	// ErrEmptyInput is returned when a computation receives no values.
	ErrEmptyInput = errors.New("stats: empty input")
	// ErrLengthMismatch is returned when two parallel vectors differ in length.
	ErrLengthMismatch = errors.New("stats: input lengths differ")
)

// Mean returns the arithmetic mean of xs.
func Mean(xs []float64) (float64, error) {
	if len(xs) == 0 {
		return 0, ErrEmptyInput
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs)), nil
}

// Variance returns the population variance of xs: (1/n) * Σ (x - mean)².
func Variance(xs []float64) (float64, error) {
	m, err := Mean(xs)
	if err != nil {
		return 0, err
	}
	var sum float64
	for _, x := range xs {
		d := x - m
		sum += d * d
	}
	return sum / float64(len(xs)), nil
}

// StdDev returns the population standard deviation of xs.
func StdDev(xs []float64) (float64, error) {
	v, err := Variance(xs)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(v), nil
}

// Covariance returns the population covariance of xs and ys.
func Covariance(xs, ys []float64) (float64, error) {
	if len(xs) != len(ys) {
		return 0, ErrLengthMismatch
	}
	if len(xs) == 0 {
		return 0, ErrEmptyInput
	}
	mx, _ := Mean(xs)
	my, _ := Mean(ys)
	var sum float64
	for i := range xs {
		sum += (xs[i] - mx) * (ys[i] - my)
	}
	return sum / float64(len(xs)), nil
}

// Correlation returns the Pearson coefficient of xs and ys.
//
// A constant series has zero standard deviation; its correlation with
// anything is reported as 0.0 rather than an error, so that degenerate
// real-world series (a parking that never moves) rank as uninteresting
// instead of failing the whole run.
func Correlation(xs, ys []float64) (float64, error) {
	if len(xs) != len(ys) {
		return 0, ErrLengthMismatch
	}
	if len(xs) == 0 {
		return 0, ErrEmptyInput
	}
	sx, _ := StdDev(xs)
	sy, _ := StdDev(ys)
	if sx == 0 || sy == 0 {
		return 0, nil
	}
	cov, err := Covariance(xs, ys)
	if err != nil {
		return 0, err
	}
	return cov / (sx * sy), nil
}

// CorrelationMatrix returns the NxN matrix of pairwise Pearson coefficients
// between the given series. Cell [i][j] = Correlation(series[i], series[j]);
// the diagonal is 1.0 except for constant series, which correlate at 0.0
// with everything including themselves.
func CorrelationMatrix(series [][]float64) ([][]float64, error) {
	if len(series) == 0 {
		return nil, ErrEmptyInput
	}
	n := len(series)
	mat := make([][]float64, n)
	for i := range mat {
		mat[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			r, err := Correlation(series[i], series[j])
			if err != nil {
				return nil, err
			}
			mat[i][j] = r
		}
	}
	return mat, nil
}
