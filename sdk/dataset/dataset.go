// Package dataset provides an immutable, read-only view over the binary
// attribute matrix, continuous target series and timestamps that the
// mining engine scans once and traverses many times.
package dataset

import (
	"fmt"

	"github.com/tempoeng/gnprules/sdk/engineerr"
)

// Trit is the three-valued result of reading an attribute cell.
type Trit uint8

const (
	TritZero Trit = iota
	TritOne
	TritMissing
)

// Dataset is an arena-style, flat-slice view: no per-cell allocation, no
// mutators. Safe for concurrent reads from multiple trial goroutines.
type Dataset struct {
	attrs      [][]uint8 // attrs[t][k], raw stored byte; anything but 0/1 is missing
	x          []float64
	timestamps []string
	names      []string // attr_name[k]
	dMax       int
	horizon    int
}

// New validates and wraps the given columns into a Dataset. attrs must have
// one row per timestamp/x entry; every row must have the same number of
// columns as names. dMax and horizon define the safe traversal range.
func New(attrs [][]uint8, x []float64, timestamps, names []string, dMax, horizon int) (*Dataset, error) {
	n := len(x)
	if len(attrs) != n || len(timestamps) != n {
		return nil, fmt.Errorf("%w: %d x rows, %d attr rows, %d timestamps", engineerr.ErrBadShape, n, len(attrs), len(timestamps))
	}
	k := len(names)
	for t, row := range attrs {
		if len(row) != k {
			return nil, fmt.Errorf("%w: row %d has %d attribute columns, want %d (len(names))", engineerr.ErrBadShape, t, len(row), k)
		}
	}
	if dMax < 0 || horizon < 0 {
		return nil, fmt.Errorf("%w: D_max=%d and H=%d must be non-negative", engineerr.ErrBadShape, dMax, horizon)
	}
	return &Dataset{attrs: attrs, x: x, timestamps: timestamps, names: names, dMax: dMax, horizon: horizon}, nil
}

// N returns the number of rows.
func (d *Dataset) N() int { return len(d.x) }

// K returns the number of attributes.
func (d *Dataset) K() int { return len(d.names) }

// AttrName returns the display name of attribute k.
func (d *Dataset) AttrName(k int) string { return d.names[k] }

// DMax and Horizon return the configured maximum delay and future horizon.
func (d *Dataset) DMax() int    { return d.dMax }
func (d *Dataset) Horizon() int { return d.horizon }

// SafeRange returns the half-open [start, end) range of rows that may start
// a traversal: far enough from the start to look back D_max rows, far
// enough from the end to look forward Horizon rows.
func (d *Dataset) SafeRange() (start, end int) {
	start = d.dMax
	end = d.N() - d.horizon
	if end < start {
		end = start
	}
	return start, end
}

// Attr reads attribute k at row t. Any row/column out of range, or any
// stored value other than 0 or 1, reads as TritMissing.
func (d *Dataset) Attr(t, k int) Trit {
	if t < 0 || t >= len(d.attrs) || k < 0 || k >= len(d.names) {
		return TritMissing
	}
	switch d.attrs[t][k] {
	case 0:
		return TritZero
	case 1:
		return TritOne
	default:
		return TritMissing
	}
}

// X returns the target value at row t and whether t is in range. Rows past
// the end of the series read as (0, false), letting callers render the
// witness CSV's "-" placeholder for horizons that fall off the end.
func (d *Dataset) X(t int) (float64, bool) {
	if t < 0 || t >= len(d.x) {
		return 0, false
	}
	return d.x[t], true
}

// Timestamp returns the opaque timestamp string for row t, or "" if t is
// out of range.
func (d *Dataset) Timestamp(t int) string {
	if t < 0 || t >= len(d.timestamps) {
		return ""
	}
	return d.timestamps[t]
}
