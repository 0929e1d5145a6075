package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/banshee-data/geokmedoids/internal/distance"
	"github.com/banshee-data/geokmedoids/internal/geo"
	"github.com/banshee-data/geokmedoids/internal/kmedoids"
)

func TestOutputs(t *testing.T) {
	start := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	got := Outputs("runs/milan", start)
	want := OutputPaths{
		Positions: "runs/milan_20260304-050607_positions.csv",
		Centers:   "runs/milan_20260304-050607_centers.csv",
		RunInfo:   "runs/milan_20260304-050607_runinfo.txt",
	}
	if got != want {
		t.Errorf("Outputs() = %+v, want %+v", got, want)
	}
}

func TestRunInfoWrite(t *testing.T) {
	start := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	ri := &RunInfo{
		Program:     "geokmedoids",
		CommandLine: []string{"geokmedoids", "-c", "in.csv", "-k", "2"},
		Input:       "in.csv",
		Outputs:     Outputs("out", start),
		Metric:      distance.Geodesic,
		Matrix: &distance.Matrix{
			Metric:     distance.Geodesic,
			Elapsed:    1500 * time.Millisecond,
			OverBudget: true,
			Anomalies:  distance.Anomalies{NonFinite: 2},
		},
		Result: &kmedoids.Result{
			Cost:       123.4567,
			Iterations: 4,
			CapReached: true,
			Elapsed:    62*time.Second + 250*time.Millisecond,
			Config:     kmedoids.Config{K: 2, Init: kmedoids.InitBuild, Method: kmedoids.MethodPAM, MaxIter: 4, Seed: 9},
		},
		RunID: "run-1",
		Start: start,
		End:   start.Add(70 * time.Second),
	}

	var buf bytes.Buffer
	if err := ri.Write(&buf); err != nil {
		t.Fatalf("Write: %v", err)
	}
	out := buf.String()

	if !strings.HasPrefix(out, "geokmedoids -c in.csv -k 2\n\ninput: in.csv\n") {
		t.Errorf("unexpected header:\n%s", out)
	}
	for _, want := range []string{
		"output: out_20260304-050607_positions.csv, out_20260304-050607_centers.csv\n",
		"kmedoids_random_state: 9\n",
		"kmedoids_n_clusters: 2\n",
		"kmedoids_max_iter: 4\n",
		"kmedoids_init: build\n",
		"kmedoids_method: pam\n",
		"kmedoids_metric: geodesic\n",
		"Time elapsed for geodesic distance matrix (seconds): 1.5000\n",
		"Time elapsed for geodesic distance matrix (hh:mm:ss): 0:00:01.500000\n",
		"Distance matrix exceeded its time budget\n",
		"Numeric anomalies: 2 non-finite cells, 0 cross-zone positions, 0 unprojectable positions\n",
		"Time elapsed for K-medoids fit (seconds): 62.2500\n",
		"Time elapsed for K-medoids fit (hh:mm:ss): 0:01:02.250000\n",
		"Iteration cap reached: true\n",
		"Final cost: 123.457\n",
		"Run id: run-1\n",
		"geokmedoids started at 20260304-050607\n",
		"geokmedoids ended at 20260304-050717\n",
		"geokmedoids version dev",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q\n---\n%s", want, out)
		}
	}
}

func TestRunInfoWrite_Projection(t *testing.T) {
	ri := &RunInfo{
		Metric: distance.Planar,
		Matrix: &distance.Matrix{
			Metric:     distance.Planar,
			Projection: &geo.Projection{Zone: geo.Zone{Number: 32, North: true}, Band: 'T', CrossZone: 3},
		},
	}
	var buf bytes.Buffer
	if err := ri.Write(&buf); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !strings.Contains(buf.String(), "UTM zone: 32T (3 positions outside the zone)\n") {
		t.Errorf("report missing the projection line\n---\n%s", buf.String())
	}
}

func TestRunInfoWrite_Minimal(t *testing.T) {
	var buf bytes.Buffer
	ri := &RunInfo{Metric: distance.Planar}
	if err := ri.Write(&buf); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if strings.Contains(buf.String(), "kmedoids_n_clusters") {
		t.Error("report without a result printed engine settings")
	}
	if !strings.Contains(buf.String(), "kmedoids_metric: planar") {
		t.Error("report lost the metric")
	}
}
