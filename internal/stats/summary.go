// Package stats summarises distance samples for the benchmark and analysis
// tools.
package stats

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary describes a sample with population statistics.
type Summary struct {
	N          int
	Mean       float64
	ThreeSigma float64
	Max        float64
	Min        float64
}

// Summarize computes the mean, three population standard deviations, the
// maximum and the minimum of xs. An empty sample yields NaN fields.
func Summarize(xs []float64) Summary {
	if len(xs) == 0 {
		nan := math.NaN()
		return Summary{Mean: nan, ThreeSigma: nan, Max: nan, Min: nan}
	}
	mean, std := stat.PopMeanStdDev(xs, nil)
	return Summary{
		N:          len(xs),
		Mean:       mean,
		ThreeSigma: 3 * std,
		Max:        floats.Max(xs),
		Min:        floats.Min(xs),
	}
}

// SummarizeInts is Summarize for integer samples such as group sizes.
func SummarizeInts(xs []int) Summary {
	fs := make([]float64, len(xs))
	for i, x := range xs {
		fs[i] = float64(x)
	}
	return Summarize(fs)
}

func (s Summary) String() string {
	return fmt.Sprintf("%v, 3sigma: %v, max: %v, min %v", s.Mean, s.ThreeSigma, s.Max, s.Min)
}
