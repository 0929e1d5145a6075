// Command benchmark times the construction of the pairwise distance matrix
// with every metric and reports how far the planar and haversine distances
// are from the geodesic ones.
//
// Usage:
//
//	benchmark [-workers N] positions.csv
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/geokmedoids/internal/benchmark"
	"github.com/banshee-data/geokmedoids/internal/csvio"
	"github.com/banshee-data/geokmedoids/internal/monitoring"
)

var (
	workers = flag.Int("workers", 0, "parallel workers per matrix (0 = number of CPUs)")
	verbose = flag.Bool("verbose", false, "log debug output")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] positions.csv\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	monitoring.SetVerbose(*verbose)

	f, err := os.Open(flag.Arg(0))
	if err != nil {
		log.Fatalf("open input: %v", err)
	}
	points, err := csvio.LoadPositions(f)
	f.Close()
	if err != nil {
		log.Fatalf("%s: %v", flag.Arg(0), err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rep, err := benchmark.Run(ctx, points, benchmark.Options{Workers: *workers})
	if err != nil {
		log.Fatalf("benchmark: %v", err)
	}
	if err := rep.Write(os.Stdout); err != nil {
		log.Fatalf("write report: %v", err)
	}
}
