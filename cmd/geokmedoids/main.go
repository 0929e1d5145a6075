// Command geokmedoids divides a list of geographic positions into K groups
// and picks, for every group, one of the original positions as its center.
//
// Input is a CSV file with the columns id,lat,lon. Every run writes three
// files named after the output prefix and the start time: the labeled
// positions (uid,gid,latitude,longitude), the group centers
// (gid,latitude,longitude) and a plain-text run report.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/banshee-data/geokmedoids/internal/config"
	"github.com/banshee-data/geokmedoids/internal/distance"
	"github.com/banshee-data/geokmedoids/internal/kmedoids"
	"github.com/banshee-data/geokmedoids/internal/monitoring"
	"github.com/banshee-data/geokmedoids/internal/pipeline"
	"github.com/banshee-data/geokmedoids/internal/runstore"
	"github.com/banshee-data/geokmedoids/internal/security"
	"github.com/banshee-data/geokmedoids/internal/version"
)

// Environment variables read after loading an optional .env file.
const (
	envConfig = "GEOKMEDOIDS_CONFIG"
	envRunsDB = "GEOKMEDOIDS_RUNS_DB"
)

type options struct {
	input       string
	configPath  string
	runsDB      string
	verbose     bool
	showVersion bool
	// overrides holds only the flags given on the command line.
	overrides *config.ClusterConfig
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("geokmedoids", flag.ContinueOnError)
	fs.SetOutput(stderr)

	opts := &options{overrides: config.EmptyClusterConfig()}
	fs.StringVar(&opts.input, "input", "", "input CSV file with columns id,lat,lon (required)")
	fs.StringVar(&opts.configPath, "config", os.Getenv(envConfig), "JSON cluster configuration; flags override its values")
	fs.StringVar(&opts.runsDB, "runs-db", os.Getenv(envRunsDB), "sqlite database recording every run (optional)")
	fs.BoolVar(&opts.verbose, "verbose", false, "log debug output")
	fs.BoolVar(&opts.showVersion, "version", false, "print the version and exit")

	output := fs.String("output", config.DefaultOutputPrefix, "path and name prefix of the generated files")
	seed := fs.Uint64("seed", 0, "random seed")
	k := fs.Int("k", config.DefaultKClusters, "number of groups")
	maxIter := fs.Int("max-iter", config.DefaultMaxIter, "maximum number of iterations")
	initName := fs.String("init", config.DefaultInit, fmt.Sprintf("initialization %v", kmedoids.ValidInits))
	method := fs.String("method", config.DefaultMethod, fmt.Sprintf("fit method %v", kmedoids.ValidMethods))
	metric := fs.String("metric", config.DefaultDistanceMetric, fmt.Sprintf("distance metric %v; planar projects to UTM and is fastest, geodesic is exact and slowest", distance.ValidMetrics))
	workers := fs.Int("workers", 0, "parallel workers (0 = number of CPUs)")
	budget := fs.Duration("matrix-budget", 0, "report when the distance matrix takes longer than this (0 = no budget)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if opts.showVersion {
		return opts, nil
	}
	if opts.input == "" {
		return nil, fmt.Errorf("-input is required")
	}

	o := opts.overrides
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "output":
			o.OutputPrefix = output
		case "seed":
			o.RandomSeed = seed
		case "k":
			o.KClusters = k
		case "max-iter":
			o.MaxIter = maxIter
		case "init":
			o.Init = initName
		case "method":
			o.Method = method
		case "metric":
			o.DistanceMetric = metric
		case "workers":
			o.Workers = workers
		case "matrix-budget":
			b := budget.String()
			o.MatrixBudget = &b
		}
	})
	if err := o.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

// clusterConfig layers the command-line overrides on the config file.
func (o *options) clusterConfig() (*config.ClusterConfig, error) {
	cfg := config.EmptyClusterConfig()
	if o.configPath != "" {
		loaded, err := config.LoadClusterConfig(o.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	cfg.Overlay(o.overrides)
	return cfg, nil
}

func main() {
	_ = godotenv.Load()

	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err == flag.ErrHelp {
		return
	}
	if err != nil {
		log.Fatalf("geokmedoids: %v", err)
	}
	if opts.showVersion {
		fmt.Printf("geokmedoids version %s\n", version.String())
		return
	}
	monitoring.SetVerbose(opts.verbose)

	cfg, err := opts.clusterConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	prefix, err := security.OutputPrefix(cfg.GetOutputPrefix())
	if err != nil {
		log.Fatalf("invalid output prefix: %v", err)
	}

	var store *runstore.Store
	if opts.runsDB != "" {
		store, err = runstore.Open(opts.runsDB)
		if err != nil {
			log.Fatalf("open runs database: %v", err)
		}
		defer store.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	started := time.Now()
	run, err := pipeline.Cluster(ctx, pipeline.ClusterOptions{
		Input:       opts.input,
		Config:      cfg,
		Prefix:      prefix,
		Store:       store,
		CommandLine: os.Args,
	})
	if err != nil {
		log.Fatalf("geokmedoids: %v", err)
	}
	log.Printf("run %s: %d groups, cost %.3f, %d iterations in %v",
		run.RunID, len(run.Result.Medoids), run.Result.Cost, run.Result.Iterations, time.Since(started).Round(time.Millisecond))
}
