// Package report writes the plain-text summary that accompanies every
// clustering run.
package report

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/banshee-data/geokmedoids/internal/distance"
	"github.com/banshee-data/geokmedoids/internal/kmedoids"
	"github.com/banshee-data/geokmedoids/internal/timeutil"
	"github.com/banshee-data/geokmedoids/internal/version"
)

// TimestampLayout formats run timestamps in file names and reports.
const TimestampLayout = "20060102-150405"

// OutputPaths are the files produced by one run.
type OutputPaths struct {
	Positions string
	Centers   string
	RunInfo   string
}

// Outputs derives the run's file names from prefix and the run start time:
// <prefix>_<YYYYMMDD-HHMMSS>_positions.csv and so on.
func Outputs(prefix string, start time.Time) OutputPaths {
	stem := fmt.Sprintf("%s_%s_", prefix, start.Format(TimestampLayout))
	return OutputPaths{
		Positions: stem + "positions.csv",
		Centers:   stem + "centers.csv",
		RunInfo:   stem + "runinfo.txt",
	}
}

// RunInfo is everything the run summary reports.
type RunInfo struct {
	Program     string
	CommandLine []string
	Input       string
	Outputs     OutputPaths
	Metric      string
	Matrix      *distance.Matrix
	Result      *kmedoids.Result
	RunID       string
	Start       time.Time
	End         time.Time
}

// Write renders the summary to w.
func (ri *RunInfo) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)
	p := func(format string, args ...interface{}) {
		fmt.Fprintf(bw, format+"\n", args...)
	}
	program := ri.Program
	if program == "" {
		program = "geokmedoids"
	}

	p("%s", strings.Join(ri.CommandLine, " "))
	p("")
	p("input: %s", ri.Input)
	p("output: %s, %s", ri.Outputs.Positions, ri.Outputs.Centers)
	p("")

	if res := ri.Result; res != nil {
		cfg := res.Config
		p("kmedoids_random_state: %d", cfg.Seed)
		p("kmedoids_n_clusters: %d", cfg.K)
		p("kmedoids_max_iter: %d", cfg.MaxIter)
		p("kmedoids_init: %s", cfg.Init)
		p("kmedoids_method: %s", cfg.Method)
	}
	p("kmedoids_metric: %s", ri.Metric)
	p("")

	if m := ri.Matrix; m != nil {
		secs := m.Elapsed.Seconds()
		p("Time elapsed for %s distance matrix (seconds): %0.4f", m.Metric, secs)
		p("Time elapsed for %s distance matrix (hh:mm:ss): %s", m.Metric, timeutil.FormatElapsed(m.Elapsed))
		if m.OverBudget {
			p("Distance matrix exceeded its time budget")
		}
		if proj := m.Projection; proj != nil {
			p("UTM zone: %s (%d positions outside the zone)", proj.Designator(), proj.CrossZone)
		}
		a := m.Anomalies
		p("Numeric anomalies: %d non-finite cells, %d cross-zone positions, %d unprojectable positions",
			a.NonFinite, a.CrossZone, a.Unprojectable)
	}
	if res := ri.Result; res != nil {
		p("Time elapsed for K-medoids fit (seconds): %0.4f", res.Elapsed.Seconds())
		p("Time elapsed for K-medoids fit (hh:mm:ss): %s", timeutil.FormatElapsed(res.Elapsed))
		p("Iterations: %d", res.Iterations)
		p("Iteration cap reached: %t", res.CapReached)
		p("Final cost: %.3f", res.Cost)
	}
	if ri.RunID != "" {
		p("Run id: %s", ri.RunID)
	}
	p("%s started at %s", program, ri.Start.Format(TimestampLayout))
	p("%s ended at %s", program, ri.End.Format(TimestampLayout))
	p("%s version %s", program, version.String())
	return bw.Flush()
}
