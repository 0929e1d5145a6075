package pipeline

import (
	"fmt"
	"io"

	"github.com/banshee-data/geokmedoids/internal/collate"
	"github.com/banshee-data/geokmedoids/internal/csvio"
	"github.com/banshee-data/geokmedoids/internal/fsutil"
	"github.com/banshee-data/geokmedoids/internal/labeler"
	"github.com/banshee-data/geokmedoids/internal/monitoring"
)

// DefaultCollatedOutput is the collation output file used when none is
// given.
const DefaultCollatedOutput = "collated.csv"

// CollateOptions configures a collation.
type CollateOptions struct {
	// Positions are uid,gid,latitude,longitude files, read in order.
	Positions []string
	// Centers are gid,latitude,longitude files. Group identifiers must be
	// unique across all of them.
	Centers []string
	Output  string

	FS fsutil.FileSystem
}

// Collate folds every labeled position into one majority group per
// identity and writes the collated identities.
func Collate(opts CollateOptions) (*collate.Result, error) {
	if len(opts.Positions) == 0 || len(opts.Centers) == 0 {
		return nil, fmt.Errorf("collate needs at least one positions file and one centers file")
	}
	fs := opts.FS
	if fs == nil {
		fs = fsutil.OSFileSystem{}
	}
	output := opts.Output
	if output == "" {
		output = DefaultCollatedOutput
	}

	centers := make(map[string]collate.Center)
	for _, path := range opts.Centers {
		var loaded []csvio.GroupCenter
		if err := readFile(fs, path, func(r io.Reader) (err error) {
			loaded, err = csvio.LoadGroupCenters(r)
			return err
		}); err != nil {
			return nil, err
		}
		for id, c := range csvio.CenterMap(loaded) {
			if _, dup := centers[id]; dup {
				return nil, fmt.Errorf("%s: %w: group %q defined in more than one centers file", path, csvio.ErrInput, id)
			}
			centers[id] = c
		}
	}

	col := collate.New()
	for _, path := range opts.Positions {
		var rows []labeler.LabeledPosition
		if err := readFile(fs, path, func(r io.Reader) (err error) {
			rows, err = csvio.LoadLabeledPositions(r)
			return err
		}); err != nil {
			return nil, err
		}
		if err := col.AddAll(csvio.Observations(rows)); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	res, err := col.Finalize(centers)
	if err != nil {
		return nil, err
	}
	monitoring.Logf("collated %d identities into %d groups", col.Identities(), len(res.Groups()))

	if err := writeFile(fs, output, func(w io.Writer) error {
		return csvio.WriteCollatedIdentities(w, res.Records())
	}); err != nil {
		return nil, err
	}
	return res, nil
}

func readFile(fs fsutil.FileSystem, path string, read func(io.Reader) error) error {
	f, err := fs.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	if err := read(f); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}
