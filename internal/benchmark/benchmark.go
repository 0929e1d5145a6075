// Package benchmark compares the distance metrics on a data set: how long
// each takes to build the pairwise matrix, and how far the planar and
// haversine distances drift from the geodesic ones.
package benchmark

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/banshee-data/geokmedoids/internal/distance"
	"github.com/banshee-data/geokmedoids/internal/geo"
	"github.com/banshee-data/geokmedoids/internal/stats"
	"github.com/banshee-data/geokmedoids/internal/timeutil"
)

// Reference is the ground-truth metric.
const Reference = distance.Geodesic

// Options configures a benchmark run.
type Options struct {
	// Workers bounds matrix construction concurrency; 0 means GOMAXPROCS.
	Workers int
	// Clock times each matrix; nil selects the real clock.
	Clock timeutil.Clock
}

// Timing is the wall-clock cost of one metric's pairwise matrix,
// projection included.
type Timing struct {
	Metric    string
	Elapsed   time.Duration
	Anomalies distance.Anomalies
}

// Accuracy is the relative error of one metric against Reference over
// every unordered pair of distinct points.
type Accuracy struct {
	Metric string
	RelErr stats.Summary
	// Skipped counts coincident pairs, for which the relative error is
	// undefined.
	Skipped int
}

// Report is the outcome of Run.
type Report struct {
	Points   int
	Timings  []Timing
	Accuracy []Accuracy
}

// Run builds the matrix of every metric over points and compares them.
func Run(ctx context.Context, points []geo.Position, opts Options) (*Report, error) {
	clock := opts.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}

	rep := &Report{Points: len(points)}
	upper := make(map[string][]float64, len(distance.ValidMetrics))
	for _, name := range distance.ValidMetrics {
		m, err := distance.New(name, distance.WithWorkers(opts.Workers))
		if err != nil {
			return nil, err
		}
		start := clock.Now()
		mat, err := m.PairwiseMatrix(ctx, points)
		if err != nil {
			return nil, fmt.Errorf("benchmark %s: %w", name, err)
		}
		rep.Timings = append(rep.Timings, Timing{Metric: name, Elapsed: clock.Since(start), Anomalies: mat.Anomalies})
		upper[name] = mat.UpperTriangle()
	}

	truth := upper[Reference]
	for _, name := range distance.ValidMetrics {
		if name == Reference {
			continue
		}
		errs, skipped := relativeErrors(upper[name], truth)
		rep.Accuracy = append(rep.Accuracy, Accuracy{Metric: name, RelErr: stats.Summarize(errs), Skipped: skipped})
	}
	return rep, nil
}

// relativeErrors returns |truth-got|/truth for every pair with a non-zero
// reference distance.
func relativeErrors(got, truth []float64) ([]float64, int) {
	out := make([]float64, 0, len(truth))
	skipped := 0
	for i, g := range truth {
		if g == 0 {
			skipped++
			continue
		}
		out = append(out, math.Abs(g-got[i])/g)
	}
	return out, skipped
}

// Timing returns the timing of metric.
func (r *Report) Timing(metric string) (Timing, bool) {
	for _, t := range r.Timings {
		if t.Metric == metric {
			return t, true
		}
	}
	return Timing{}, false
}

// Speedup returns how many times faster fast was than slow.
func (r *Report) Speedup(fast, slow string) float64 {
	f, ok1 := r.Timing(fast)
	s, ok2 := r.Timing(slow)
	if !ok1 || !ok2 || f.Elapsed <= 0 {
		return math.NaN()
	}
	return float64(s.Elapsed) / float64(f.Elapsed)
}

// Slowest returns the metric with the longest matrix build.
func (r *Report) Slowest() string {
	slowest := ""
	var longest time.Duration = -1
	for _, t := range r.Timings {
		if t.Elapsed > longest {
			slowest, longest = t.Metric, t.Elapsed
		}
	}
	return slowest
}

// Write prints the report in the same layout as the clustering run info.
func (r *Report) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, t := range r.Timings {
		fmt.Fprintf(bw, "Time elapsed for %s distance matrix (seconds): %0.4f\n", t.Metric, t.Elapsed.Seconds())
		fmt.Fprintf(bw, "Time elapsed for %s distance matrix (hh:mm:ss): %s\n", t.Metric, timeutil.FormatElapsed(t.Elapsed))
		if n := t.Anomalies.Total(); n > 0 {
			fmt.Fprintf(bw, "%s numeric anomalies: %d\n", t.Metric, n)
		}
		fmt.Fprintln(bw)
	}

	pairs := [][2]string{
		{distance.Planar, distance.Haversine},
		{distance.Planar, distance.Geodesic},
		{distance.Haversine, distance.Geodesic},
	}
	for _, p := range pairs {
		fmt.Fprintf(bw, "%s speedup over %s: %vX\n", p[0], p[1], r.Speedup(p[0], p[1]))
	}
	fmt.Fprintln(bw)

	for _, a := range r.Accuracy {
		fmt.Fprintf(bw, "%s difference over %s: %s\n", a.Metric, Reference, a.RelErr)
		if a.Skipped > 0 {
			fmt.Fprintf(bw, "%s: %d coincident pairs skipped\n", a.Metric, a.Skipped)
		}
	}
	return bw.Flush()
}
