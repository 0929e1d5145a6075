// Command runs inspects the run history database written by geokmedoids.
//
// Usage:
//
//	runs [-db path] list [-n 20]
//	runs [-db path] show <run-id>
//	runs [-db path] migrate up|down|status
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"text/tabwriter"

	"github.com/joho/godotenv"

	"github.com/banshee-data/geokmedoids/internal/runstore"
)

const defaultDB = "geokmedoids_runs.db"

func main() {
	_ = godotenv.Load()

	dbPath := os.Getenv("GEOKMEDOIDS_RUNS_DB")
	if dbPath == "" {
		dbPath = defaultDB
	}
	flag.StringVar(&dbPath, "db", dbPath, "path to the run history sqlite database")
	flag.Usage = printUsage
	flag.Parse()

	if err := run(context.Background(), dbPath, flag.Args(), os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			printUsage()
			os.Exit(2)
		}
		log.Fatalf("runs: %v", err)
	}
}

var errUsage = errors.New("usage")

func printUsage() {
	fmt.Fprintln(os.Stderr, `runs - inspect the geokmedoids run history

Usage:
  runs [-db path] list [-n 20]       list the most recent runs
  runs [-db path] show <run-id>      print one run
  runs [-db path] migrate up         apply pending schema migrations
  runs [-db path] migrate down       roll back one schema migration
  runs [-db path] migrate status     print the schema version`)
}

func run(ctx context.Context, dbPath string, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	store, err := runstore.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	switch args[0] {
	case "list":
		fs := flag.NewFlagSet("list", flag.ContinueOnError)
		n := fs.Int("n", 20, "number of runs to show (0 = all)")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		runs, err := store.List(ctx, *n)
		if err != nil {
			return err
		}
		return printRuns(out, runs)
	case "show":
		if len(args) != 2 {
			return errUsage
		}
		r, err := store.Get(ctx, args[1])
		if err != nil {
			return err
		}
		return printRun(out, r)
	case "migrate":
		if len(args) != 2 {
			return errUsage
		}
		return migrateCommand(store, args[1], out)
	}
	return errUsage
}

func migrateCommand(store *runstore.Store, action string, out io.Writer) error {
	migrations := runstore.Migrations()
	switch action {
	case "up":
		if err := store.MigrateUp(migrations); err != nil {
			return err
		}
	case "down":
		if err := store.MigrateDown(migrations); err != nil {
			return err
		}
	case "status":
	default:
		return errUsage
	}
	version, dirty, err := store.MigrateVersion(migrations)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Current version: %d\nDirty: %v\n", version, dirty)
	return nil
}

func printRuns(out io.Writer, runs []*runstore.Run) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN ID\tCREATED\tMETRIC\tK\tPOINTS\tCOST\tITER\tCAP")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%.3f\t%d\t%t\n",
			r.RunID, r.CreatedAt.Format("2006-01-02 15:04:05"), r.Metric, r.K, r.Points, r.Cost, r.Iterations, r.CapReached)
	}
	return tw.Flush()
}

func printRun(out io.Writer, r *runstore.Run) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "run id:\t%s\n", r.RunID)
	fmt.Fprintf(tw, "created:\t%s\n", r.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(tw, "input:\t%s\n", r.Input)
	fmt.Fprintf(tw, "output prefix:\t%s\n", r.OutputPrefix)
	fmt.Fprintf(tw, "metric:\t%s\n", r.Metric)
	fmt.Fprintf(tw, "init / method:\t%s / %s\n", r.Init, r.Method)
	fmt.Fprintf(tw, "k / max iter / seed:\t%d / %d / %d\n", r.K, r.MaxIter, r.Seed)
	fmt.Fprintf(tw, "points:\t%d\n", r.Points)
	fmt.Fprintf(tw, "cost:\t%.3f\n", r.Cost)
	fmt.Fprintf(tw, "iterations:\t%d (cap reached: %t)\n", r.Iterations, r.CapReached)
	fmt.Fprintf(tw, "matrix / fit seconds:\t%.4f / %.4f\n", r.MatrixSeconds, r.FitSeconds)
	fmt.Fprintf(tw, "anomalies:\t%d\n", r.Anomalies)
	if len(r.ConfigJSON) > 0 {
		fmt.Fprintf(tw, "config:\t%s\n", r.ConfigJSON)
	}
	return tw.Flush()
}
