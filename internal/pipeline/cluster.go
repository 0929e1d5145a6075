// Package pipeline wires the loaders, metrics, clustering engine, labeler
// and writers into the runs performed by the command-line tools.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/geokmedoids/internal/config"
	"github.com/banshee-data/geokmedoids/internal/csvio"
	"github.com/banshee-data/geokmedoids/internal/distance"
	"github.com/banshee-data/geokmedoids/internal/fsutil"
	"github.com/banshee-data/geokmedoids/internal/geo"
	"github.com/banshee-data/geokmedoids/internal/kmedoids"
	"github.com/banshee-data/geokmedoids/internal/labeler"
	"github.com/banshee-data/geokmedoids/internal/monitoring"
	"github.com/banshee-data/geokmedoids/internal/report"
	"github.com/banshee-data/geokmedoids/internal/runstore"
	"github.com/banshee-data/geokmedoids/internal/timeutil"
)

// ClusterOptions configures a clustering run.
type ClusterOptions struct {
	// Input is the id,lat,lon positions file.
	Input string
	// Config holds the clustering parameters; nil uses the defaults.
	Config *config.ClusterConfig
	// Prefix overrides Config's output prefix. It must already be validated.
	Prefix string

	FS      fsutil.FileSystem
	Clock   timeutil.Clock
	Labeler *labeler.Labeler
	// Store records the run when set.
	Store *runstore.Store

	// CommandLine is echoed into the run report.
	CommandLine []string
}

// ClusterRun is the outcome of a clustering run.
type ClusterRun struct {
	RunID   string
	Outputs report.OutputPaths
	Matrix  *distance.Matrix
	Result  *kmedoids.Result
	Labeled *labeler.Output
}

// Cluster loads positions, clusters them and writes the labeled positions,
// the group centers and the run report.
func Cluster(ctx context.Context, opts ClusterOptions) (*ClusterRun, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.EmptyClusterConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	fs := opts.FS
	if fs == nil {
		fs = fsutil.OSFileSystem{}
	}
	clock := opts.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	lab := opts.Labeler
	if lab == nil {
		lab = labeler.New()
	}
	prefix := opts.Prefix
	if prefix == "" {
		prefix = cfg.GetOutputPrefix()
	}

	start := clock.Now()
	points, err := loadPositions(fs, opts.Input)
	if err != nil {
		return nil, err
	}
	monitoring.Logf("loaded %d positions from %s", len(points), opts.Input)

	metric, err := cfg.Metric(distance.WithClock(clock))
	if err != nil {
		return nil, err
	}
	mat, err := metric.PairwiseMatrix(ctx, points)
	if err != nil {
		return nil, fmt.Errorf("build %s distance matrix: %w", metric.Name(), err)
	}
	if err := mat.Anomalies.Err(); err != nil {
		monitoring.Logf("%s distance matrix: %v", metric.Name(), err)
	}

	kcfg := cfg.KMedoids()
	kcfg.Clock = clock
	res, err := kmedoids.Fit(ctx, mat, kcfg)
	if err != nil {
		return nil, err
	}
	if res.CapReached {
		monitoring.Logf("k-medoids stopped at the iteration cap (%d) before converging", res.Config.MaxIter)
	}

	labeled, err := lab.Label(points, res, mat.Projection)
	if err != nil {
		return nil, err
	}

	run := &ClusterRun{
		RunID:   uuid.NewString(),
		Outputs: report.Outputs(prefix, start),
		Matrix:  mat,
		Result:  res,
		Labeled: labeled,
	}
	if dir := filepath.Dir(prefix); dir != "." {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := writeFile(fs, run.Outputs.Positions, func(w io.Writer) error {
		return csvio.WriteLabeledPositions(w, labeled.Positions)
	}); err != nil {
		return nil, err
	}
	if err := writeFile(fs, run.Outputs.Centers, func(w io.Writer) error {
		return csvio.WriteGroupCenters(w, labeled.Groups)
	}); err != nil {
		return nil, err
	}

	info := &report.RunInfo{
		CommandLine: opts.CommandLine,
		Input:       opts.Input,
		Outputs:     run.Outputs,
		Metric:      metric.Name(),
		Matrix:      mat,
		Result:      res,
		RunID:       run.RunID,
		Start:       start,
		End:         clock.Now(),
	}
	if err := writeFile(fs, run.Outputs.RunInfo, info.Write); err != nil {
		return nil, err
	}

	if opts.Store != nil {
		if err := opts.Store.Insert(ctx, runRecord(run, opts.Input, prefix, metric.Name(), cfg, start, len(points))); err != nil {
			return nil, fmt.Errorf("record run: %w", err)
		}
	}
	return run, nil
}

func runRecord(run *ClusterRun, input, prefix, metric string, cfg *config.ClusterConfig, start time.Time, points int) *runstore.Run {
	res := run.Result
	rec := &runstore.Run{
		RunID:         run.RunID,
		CreatedAt:     start,
		Input:         input,
		OutputPrefix:  prefix,
		Metric:        metric,
		Init:          string(res.Config.Init),
		Method:        string(res.Config.Method),
		K:             res.Config.K,
		MaxIter:       res.Config.MaxIter,
		Seed:          res.Config.Seed,
		Points:        points,
		Cost:          res.Cost,
		Iterations:    res.Iterations,
		CapReached:    res.CapReached,
		FitSeconds:    res.Elapsed.Seconds(),
		MatrixSeconds: run.Matrix.Elapsed.Seconds(),
		Anomalies:     run.Matrix.Anomalies.Total(),
	}
	if data, err := json.Marshal(cfg); err == nil {
		rec.ConfigJSON = data
	}
	return rec
}

func loadPositions(fs fsutil.FileSystem, path string) ([]geo.Position, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open positions: %w", err)
	}
	defer f.Close()
	points, err := csvio.LoadPositions(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return points, nil
}

func writeFile(fs fsutil.FileSystem, path string, write func(io.Writer) error) error {
	f, err := fs.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	monitoring.Logf("wrote %s", path)
	return nil
}
