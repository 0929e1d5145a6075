// Package csvio reads and writes the CSV files exchanged between the
// clustering, collation and analysis tools.
//
// Position inputs use the header id,lat,lon (uid, latitude and longitude
// are accepted as alternative column names). Clustering writes
// uid,gid,latitude,longitude and gid,latitude,longitude files, and
// collation writes one row per identity.
package csvio

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
)

// ErrInput marks malformed input files.
var ErrInput = errors.New("invalid input")

// InputError locates a problem in an input file. It matches ErrInput
// with errors.Is.
type InputError struct {
	// Line is the 1-based line of the offending row; 0 for file-level
	// problems.
	Line  int
	Field string
	Err   error
}

func (e *InputError) Error() string {
	switch {
	case e.Line > 0 && e.Field != "":
		return fmt.Sprintf("%v: line %d: %s: %v", ErrInput, e.Line, e.Field, e.Err)
	case e.Line > 0:
		return fmt.Sprintf("%v: line %d: %v", ErrInput, e.Line, e.Err)
	}
	return fmt.Sprintf("%v: %v", ErrInput, e.Err)
}

func (e *InputError) Unwrap() []error {
	return []error{ErrInput, e.Err}
}

// decode reads r into out after checking that the header names every
// required column. Each entry of required lists the accepted names for one
// column.
func decode(r io.Reader, out interface{}, required ...[]string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read csv: %w", err)
	}

	header, err := csv.NewReader(bytes.NewReader(data)).Read()
	if err == io.EOF {
		return &InputError{Err: gocsv.ErrEmptyCSVFile}
	}
	if err != nil {
		return &InputError{Line: 1, Err: err}
	}
	have := make(map[string]bool, len(header))
	for _, h := range header {
		have[h] = true
	}
	for _, names := range required {
		found := false
		for _, n := range names {
			found = found || have[n]
		}
		if !found {
			return &InputError{Line: 1, Err: fmt.Errorf("missing column %s", strings.Join(names, "|"))}
		}
	}

	if err := gocsv.UnmarshalBytes(data, out); err != nil {
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			return &InputError{Line: pe.Line, Err: pe.Err}
		}
		return &InputError{Err: err}
	}
	return nil
}

// lineOf maps a 0-based data row to its file line, counting the header.
func lineOf(row int) int {
	return row + 2
}

func parseCoord(line int, field, v string) (float64, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, &InputError{Line: line, Field: field, Err: errors.New("missing value")}
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, &InputError{Line: line, Field: field, Err: err}
	}
	return f, nil
}

func requireText(line int, field, v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", &InputError{Line: line, Field: field, Err: errors.New("missing value")}
	}
	return v, nil
}

// encode writes rows with gocsv, header first.
func encode(w io.Writer, rows interface{}) error {
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}
