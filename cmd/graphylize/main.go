// Command graphylize analyzes the output of a geokmedoids run: the distance
// from every position to its group center and the size of every group. It
// prints summary statistics and, with -charts, writes sorted bar charts as
// PNG images and an HTML page.
package main

import (
	"flag"
	"log"
	"os"

	"github.com/banshee-data/geokmedoids/internal/distance"
	"github.com/banshee-data/geokmedoids/internal/monitoring"
	"github.com/banshee-data/geokmedoids/internal/pipeline"
	"github.com/banshee-data/geokmedoids/internal/security"
)

var (
	positions = flag.String("positions", "", "labeled positions CSV (uid,gid,latitude,longitude)")
	centers   = flag.String("centers", "", "group centers CSV (gid,latitude,longitude)")
	metric    = flag.String("metric", distance.Planar, "distance metric: planar, haversine or geodesic")
	charts    = flag.String("charts", "", "prefix for the chart files (no charts when empty)")
	verbose   = flag.Bool("verbose", false, "log debug output")
)

func main() {
	flag.Parse()
	if *positions == "" || *centers == "" {
		log.Fatal("-positions and -centers are required")
	}
	monitoring.SetVerbose(*verbose)

	prefix := *charts
	if prefix != "" {
		var err error
		if prefix, err = security.OutputPrefix(prefix); err != nil {
			log.Fatalf("invalid chart prefix: %v", err)
		}
	}

	a, err := pipeline.Analyze(pipeline.AnalyzeOptions{
		Positions:   *positions,
		Centers:     *centers,
		Metric:      *metric,
		ChartPrefix: prefix,
	})
	if err != nil {
		log.Fatalf("graphylize: %v", err)
	}
	if err := a.Write(os.Stdout); err != nil {
		log.Fatalf("write summary: %v", err)
	}
}
