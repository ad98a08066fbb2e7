// Package ingest loads a CSV dataset into a dataset.Dataset. CSV parsing,
// header interpretation and directory layout are explicitly out of scope
// for the mining core (spec.md §1); this package is the thin boundary that
// turns a file on disk into the core's in-memory input.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/tempoeng/gnprules/sdk/dataset"
	"github.com/tempoeng/gnprules/sdk/engineerr"
)

// LoadCSV reads path as a CSV table: one column named "X" (the
// continuous target, case-insensitive), one column named "T" or
// "timestamp" (case-insensitive), and every other column interpreted as a
// binary attribute. Any cell other than "0" or "1" in an attribute column
// becomes dataset.TritMissing. Returns the built dataset, the attribute
// display names in column order, and an error wrapping
// engineerr.ErrMissingInput if path does not exist.
func LoadCSV(path string, dMax, horizon int) (*dataset.Dataset, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("%w: %s", engineerr.ErrMissingInput, path)
		}
		return nil, nil, err
	}
	defer f.Close()
	return Load(f, dMax, horizon)
}

// Load reads r as a CSV table with the same schema as LoadCSV.
func Load(r io.Reader, dMax, horizon int) (*dataset.Dataset, []string, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: reading header: %v", engineerr.ErrBadShape, err)
	}

	xCol, tCol := -1, -1
	var attrCols []int
	var names []string
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "x":
			xCol = i
		case "t", "timestamp":
			tCol = i
		default:
			attrCols = append(attrCols, i)
			names = append(names, h)
		}
	}
	if xCol < 0 {
		return nil, nil, fmt.Errorf("%w: no X column in header", engineerr.ErrBadShape)
	}
	if tCol < 0 {
		return nil, nil, fmt.Errorf("%w: no T/timestamp column in header", engineerr.ErrBadShape)
	}

	var x []float64
	var timestamps []string
	var attrs [][]uint8
	for lineNo := 2; ; lineNo++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("%w: line %d: %v", engineerr.ErrBadShape, lineNo, err)
		}
		if len(record) != len(header) {
			return nil, nil, fmt.Errorf("%w: line %d has %d columns, want %d", engineerr.ErrBadShape, lineNo, len(record), len(header))
		}

		v, err := strconv.ParseFloat(strings.TrimSpace(record[xCol]), 64)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: line %d: bad X value %q", engineerr.ErrBadShape, lineNo, record[xCol])
		}
		x = append(x, v)
		timestamps = append(timestamps, record[tCol])

		row := make([]uint8, len(attrCols))
		for i, col := range attrCols {
			row[i] = parseTrit(record[col])
		}
		attrs = append(attrs, row)
	}

	ds, err := dataset.New(attrs, x, timestamps, names, dMax, horizon)
	if err != nil {
		return nil, nil, err
	}
	return ds, names, nil
}

// parseTrit maps a raw CSV cell to a stored attribute byte: "0" and "1"
// pass through, anything else (including parse failures) becomes a
// sentinel the dataset reads as missing.
func parseTrit(cell string) uint8 {
	switch strings.TrimSpace(cell) {
	case "0":
		return 0
	case "1":
		return 1
	default:
		return 2 // any value other than 0/1 reads as dataset.TritMissing
	}
}
