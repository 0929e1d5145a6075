package analysis

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/geokmedoids/internal/fsutil"
)

const (
	plotWidth  = 10 * vg.Inch
	plotHeight = 5 * vg.Inch
)

// barPlot draws values as one bar per entry, in the given order.
func barPlot(title, yLabel string, values []float64) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Rank"
	p.Y.Label.Text = yLabel

	if len(values) == 0 {
		return p, nil
	}
	width := plotWidth / vg.Length(len(values)) * 0.8
	if width < vg.Points(0.5) {
		width = vg.Points(0.5)
	}
	bars, err := plotter.NewBarChart(plotter.Values(values), width)
	if err != nil {
		return nil, err
	}
	bars.LineStyle.Width = 0
	p.Add(bars)
	return p, nil
}

func writePNG(w io.Writer, p *plot.Plot) error {
	wt, err := p.WriterTo(plotWidth, plotHeight, "png")
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}

// PlotPaths names the chart files written by SavePNG.
type PlotPaths struct {
	Distances string
	Sizes     string
}

// SavePNG writes the sorted distance and size bar charts next to prefix.
func (a *Analysis) SavePNG(fs fsutil.FileSystem, prefix string) (PlotPaths, error) {
	paths := PlotPaths{
		Distances: prefix + "_distances.png",
		Sizes:     prefix + "_sizes.png",
	}

	dp, err := barPlot(fmt.Sprintf("Distance to group center (%s)", a.Metric), "Distance (m)", a.SortedDistances())
	if err != nil {
		return paths, err
	}
	if err := savePlot(fs, paths.Distances, dp); err != nil {
		return paths, err
	}

	sp, err := barPlot("Group size", "Positions", a.SortedSizes())
	if err != nil {
		return paths, err
	}
	if err := savePlot(fs, paths.Sizes, sp); err != nil {
		return paths, err
	}
	return paths, nil
}

func savePlot(fs fsutil.FileSystem, path string, p *plot.Plot) error {
	f, err := fs.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := writePNG(f, p); err != nil {
		f.Close()
		return fmt.Errorf("render %s: %w", path, err)
	}
	return f.Close()
}

// barChart builds an interactive bar chart of values in the given order.
func barChart(title, subtitle, series string, values []float64) *charts.Bar {
	x := make([]string, len(values))
	y := make([]opts.BarData, len(values))
	for i, v := range values {
		x[i] = fmt.Sprintf("%d", i)
		y[i] = opts.BarData{Value: v}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
	)
	bar.SetXAxis(x).AddSeries(series, y)
	return bar
}

// RenderHTML writes a page with both sorted bar charts.
func (a *Analysis) RenderHTML(w io.Writer) error {
	page := components.NewPage()
	page.PageTitle = "Clustering analysis"
	page.AddCharts(
		barChart(
			fmt.Sprintf("Distance to group center (%s)", a.Metric),
			fmt.Sprintf("positions=%d mean=%.1fm max=%.1fm", len(a.Distances), a.DistanceStat.Mean, a.DistanceStat.Max),
			"distance", a.SortedDistances(),
		),
		barChart(
			"Group size",
			fmt.Sprintf("groups=%d mean=%.1f max=%.0f", len(a.Sizes), a.SizeStat.Mean, a.SizeStat.Max),
			"size", a.SortedSizes(),
		),
	)
	return page.Render(w)
}
