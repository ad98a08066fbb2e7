// Package report renders the engine's two output formats: a per-rule
// witness CSV and a pool-wide TSV summary.
package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/tempoeng/gnprules/internal/fileutil"
	"github.com/tempoeng/gnprules/sdk/dataset"
	"github.com/tempoeng/gnprules/sdk/engineerr"
	"github.com/tempoeng/gnprules/sdk/pool"
	"github.com/tempoeng/gnprules/sdk/ruleset"
)

// literalHeader renders the column header of literal i:
// Attr{i+1}_{attribute name}_t-{delay}.
func literalHeader(i int, name string, delay int) string {
	return fmt.Sprintf("Attr%d_%s_t-%d", i+1, name, delay)
}

// WriteWitnessCSV writes rule's per-row witness table: one row per
// witness, one column per literal (attribute name at t-d if the literal
// held, "0" otherwise — always the attribute name at a true witness row,
// since every literal holds there by construction) followed by
// X(t+1)..X(t+H), with
// "-" for any horizon past the end of the dataset.
func WriteWitnessCSV(w io.Writer, rule ruleset.Rule, ds *dataset.Dataset, names []string) error {
	cw := csv.NewWriter(w)
	header := make([]string, 0, 2+len(rule.Literals)+len(rule.Mean))
	header = append(header, "RowIndex", "Timestamp")
	for i, l := range rule.Literals {
		header = append(header, literalHeader(i, names[l.Attr], l.Delay))
	}
	for h := 1; h <= len(rule.Mean); h++ {
		header = append(header, fmt.Sprintf("X(t+%d)", h))
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("%w: witness header: %v", engineerr.ErrEmitterFailure, err)
	}

	row := make([]string, len(header))
	for _, t := range rule.Witnesses {
		row[0] = fmt.Sprintf("%d", t)
		row[1] = ds.Timestamp(t)
		for i, l := range rule.Literals {
			if ds.Attr(t-l.Delay, l.Attr) == dataset.TritOne {
				row[2+i] = names[l.Attr]
			} else {
				row[2+i] = "0"
			}
		}
		base := 2 + len(rule.Literals)
		for h := 1; h <= len(rule.Mean); h++ {
			if v, ok := ds.X(t + h); ok {
				row[base+h-1] = fmt.Sprintf("%g", v)
			} else {
				row[base+h-1] = "-"
			}
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("%w: witness row for t=%d: %v", engineerr.ErrEmitterFailure, t, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("%w: %v", engineerr.ErrEmitterFailure, err)
	}
	return nil
}

// WriteWitnessFile renders rule's witness CSV and writes it atomically to
// path via the teacher's tempfile-then-rename helper, so a crash mid-write
// never leaves a partial witness file for a downstream reader to trip on.
func WriteWitnessFile(path string, rule ruleset.Rule, ds *dataset.Dataset, names []string) error {
	var buf bytes.Buffer
	if err := WriteWitnessCSV(&buf, rule, ds, names); err != nil {
		return err
	}
	if err := fileutil.WriteFileAtomic(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("%w: %v", engineerr.ErrEmitterFailure, err)
	}
	return nil
}

// literalText renders one literal as attr_name(t-d).
func literalText(l ruleset.Literal, names []string) string {
	return fmt.Sprintf("%s(t-%d)", names[l.Attr], l.Delay)
}

// WriteSummaryTSV writes one line per pool rule: its literals joined by
// " & ", its support stats, and its per-horizon mean/sigma pairs.
func WriteSummaryTSV(w io.Writer, p *pool.Pool, names []string) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	header := []string{"Rule", "SupportCount", "NegativeCount", "SupportRate", "HighSupport", "LowVariance", "MeanSigma"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("%w: summary header: %v", engineerr.ErrEmitterFailure, err)
	}
	for _, r := range p.Rules() {
		text := ""
		for i, l := range r.Literals {
			if i > 0 {
				text += " & "
			}
			text += literalText(l, names)
		}
		meanSigma := ""
		for h := range r.Mean {
			if h > 0 {
				meanSigma += "; "
			}
			meanSigma += fmt.Sprintf("h%d=%.4g±%.4g", h+1, r.Mean[h], r.Sigma[h])
		}
		row := []string{
			text,
			fmt.Sprintf("%d", r.SupportCount),
			fmt.Sprintf("%d", r.NegativeCount),
			fmt.Sprintf("%.4g", r.SupportRate),
			fmt.Sprintf("%t", r.HighSupport),
			fmt.Sprintf("%t", r.LowVariance),
			meanSigma,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("%w: summary row: %v", engineerr.ErrEmitterFailure, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("%w: %v", engineerr.ErrEmitterFailure, err)
	}
	return nil
}

// WriteSummaryFile renders the pool's TSV summary and writes it atomically.
func WriteSummaryFile(path string, p *pool.Pool, names []string) error {
	var buf bytes.Buffer
	if err := WriteSummaryTSV(&buf, p, names); err != nil {
		return err
	}
	if err := fileutil.WriteFileAtomic(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("%w: %v", engineerr.ErrEmitterFailure, err)
	}
	return nil
}
