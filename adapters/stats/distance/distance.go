package distance

import (
	"fmt"
	"math"

	"gopairs/domain/core"

	"github.com/montanaflynn/stats"
)

// Normalize returns the z-scores of x using the population mean and standard
// deviation of x alone. A constant series has no z-scores and fails with
// core.ErrConstantSeries.
func Normalize(x []float64) ([]float64, error) {
	if len(x) == 0 {
		return nil, core.NewSeriesTooShortError("series", 0, 1)
	}
	if IsConstant(x) {
		return nil, core.ErrConstantSeries
	}
	mean, err := stats.Mean(x)
	if err != nil {
		return nil, core.NewNumericalTestError("mean", err)
	}
	sd, err := stats.StandardDeviationPopulation(x)
	if err != nil {
		return nil, core.NewNumericalTestError("standard deviation", err)
	}
	if sd == 0 {
		return nil, core.ErrConstantSeries
	}
	if math.IsInf(mean, 0) || math.IsNaN(sd) || math.IsInf(sd, 0) {
		return nil, core.NewNumericalTestError("normalize", fmt.Errorf("%w: mean %v, sd %v", core.ErrNonFinite, mean, sd))
	}

	z := make([]float64, len(x))
	for i, v := range x {
		z[i] = (v - mean) / sd
	}
	return z, nil
}

// IsConstant reports whether every observation equals the first. Accumulated
// rounding in the mean can leave a tiny nonzero deviation for such series, so
// this is checked on the raw values.
func IsConstant(x []float64) bool {
	if len(x) == 0 {
		return true
	}
	for _, v := range x[1:] {
		if v != x[0] {
			return false
		}
	}
	return true
}

// SquaredEuclidean returns Σ(a_i - b_i)²
func SquaredEuclidean(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d observations", core.ErrRaggedTable, len(a), len(b))
	}
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum, nil
}

// Distance normalizes both series independently and returns the squared
// Euclidean distance between their z-score paths
func Distance(a, b []float64) (float64, error) {
	za, err := Normalize(a)
	if err != nil {
		return 0, err
	}
	zb, err := Normalize(b)
	if err != nil {
		return 0, err
	}
	return SquaredEuclidean(za, zb)
}
