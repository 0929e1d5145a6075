package pipeline

import (
	"fmt"
	"io"

	"github.com/banshee-data/geokmedoids/internal/analysis"
	"github.com/banshee-data/geokmedoids/internal/csvio"
	"github.com/banshee-data/geokmedoids/internal/distance"
	"github.com/banshee-data/geokmedoids/internal/fsutil"
	"github.com/banshee-data/geokmedoids/internal/labeler"
)

// AnalyzeOptions configures the analysis of one clustering run.
type AnalyzeOptions struct {
	Positions string
	Centers   string
	// Metric names the distance metric; empty selects planar.
	Metric string
	// ChartPrefix, when set, receives <prefix>_distances.png,
	// <prefix>_sizes.png and <prefix>_charts.html.
	ChartPrefix string

	FS fsutil.FileSystem
}

// Analyze measures a clustering run's positions against its centers and
// optionally renders the charts.
func Analyze(opts AnalyzeOptions) (*analysis.Analysis, error) {
	fs := opts.FS
	if fs == nil {
		fs = fsutil.OSFileSystem{}
	}
	name := opts.Metric
	if name == "" {
		name = distance.Planar
	}
	metric, err := distance.New(name)
	if err != nil {
		return nil, err
	}

	var positions []labeler.LabeledPosition
	if err := readFile(fs, opts.Positions, func(r io.Reader) (err error) {
		positions, err = csvio.LoadLabeledPositions(r)
		return err
	}); err != nil {
		return nil, err
	}
	var centers []csvio.GroupCenter
	if err := readFile(fs, opts.Centers, func(r io.Reader) (err error) {
		centers, err = csvio.LoadGroupCenters(r)
		return err
	}); err != nil {
		return nil, err
	}

	a, err := analysis.Analyze(positions, centers, metric)
	if err != nil {
		return nil, err
	}
	if opts.ChartPrefix == "" {
		return a, nil
	}
	if _, err := a.SavePNG(fs, opts.ChartPrefix); err != nil {
		return nil, fmt.Errorf("save charts: %w", err)
	}
	if err := writeFile(fs, opts.ChartPrefix+"_charts.html", a.RenderHTML); err != nil {
		return nil, err
	}
	return a, nil
}
