// Command collate merges the labeled positions of one or more geokmedoids
// runs into a single file with one row per identity: the group that
// identity was most often assigned to, that group's center and the other
// identities sharing it.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/banshee-data/geokmedoids/internal/monitoring"
	"github.com/banshee-data/geokmedoids/internal/pipeline"
	"github.com/banshee-data/geokmedoids/internal/security"
)

// fileList collects a flag given more than once or as a comma separated
// list.
type fileList []string

func (l *fileList) String() string { return strings.Join(*l, ",") }

func (l *fileList) Set(v string) error {
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			*l = append(*l, p)
		}
	}
	return nil
}

func parseFlags(args []string, stderr io.Writer) (*pipeline.CollateOptions, bool, error) {
	fs := flag.NewFlagSet("collate", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var positions, centers fileList
	fs.Var(&positions, "positions", "labeled positions CSV (uid,gid,latitude,longitude); repeatable")
	fs.Var(&centers, "centers", "group centers CSV (gid,latitude,longitude); repeatable")
	output := fs.String("output", pipeline.DefaultCollatedOutput, "output CSV file")
	verbose := fs.Bool("verbose", false, "log debug output")
	if err := fs.Parse(args); err != nil {
		return nil, false, err
	}
	if len(positions) == 0 || len(centers) == 0 {
		return nil, false, fmt.Errorf("-positions and -centers are required")
	}
	return &pipeline.CollateOptions{Positions: positions, Centers: centers, Output: *output}, *verbose, nil
}

func main() {
	_ = godotenv.Load()

	opts, verbose, err := parseFlags(os.Args[1:], os.Stderr)
	if err == flag.ErrHelp {
		return
	}
	if err != nil {
		log.Fatalf("collate: %v", err)
	}
	monitoring.SetVerbose(verbose)

	cwd, err := os.Getwd()
	if err != nil {
		log.Fatalf("collate: %v", err)
	}
	if err := security.ValidatePathWithinAllowedDirs(opts.Output, []string{cwd, os.TempDir()}); err != nil {
		log.Fatalf("invalid output path: %v", err)
	}

	res, err := pipeline.Collate(*opts)
	if err != nil {
		log.Fatalf("collate: %v", err)
	}
	log.Printf("wrote %d groups to %s", len(res.Groups()), opts.Output)
}
