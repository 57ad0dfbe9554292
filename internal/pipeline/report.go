package pipeline

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ColumnSummary describes one column of a dataset
type ColumnSummary struct {
	Name    string
	Type    string
	Missing int
	Numeric bool
	Min     float64
	Max     float64
	Mean    float64
	StdDev  float64
}

// DataReport is the sanity report printed by the datacheck binary
type DataReport struct {
	Rows          int
	Columns       []ColumnSummary
	DuplicateRows int
	Start         *time.Time
	End           *time.Time
	Hours         []int
}

// BuildReport reads a processed (or raw) CSV with type detection enabled and summarizes it
func BuildReport(r io.Reader) (*DataReport, error) {
	df := dataframe.ReadCSV(r, dataframe.HasHeader(true), dataframe.DetectTypes(true))
	if df.Err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", df.Err)
	}

	report := &DataReport{Rows: df.Nrow()}

	for _, name := range df.Names() {
		col := df.Col(name)
		summary := ColumnSummary{Name: name, Type: string(col.Type())}

		for _, nan := range col.IsNaN() {
			if nan {
				summary.Missing++
			}
		}

		if col.Type() == series.Float || col.Type() == series.Int {
			values := finite(col.Float())
			summary.Numeric = true
			if len(values) > 0 {
				summary.Min = floats.Min(values)
				summary.Max = floats.Max(values)
				summary.Mean, summary.StdDev = stat.MeanStdDev(values, nil)
			}
		}
		report.Columns = append(report.Columns, summary)
	}

	report.DuplicateRows = countDuplicates(df.Records())

	if hasName(df.Names(), ColumnDatetime) {
		for _, s := range df.Col(ColumnDatetime).Records() {
			ts := ParseTimestamp(s)
			if ts == nil {
				continue
			}
			if report.Start == nil || ts.Before(*report.Start) {
				report.Start = ts
			}
			if report.End == nil || ts.After(*report.End) {
				report.End = ts
			}
		}
	}

	if hasName(df.Names(), ColumnHour) {
		seen := map[int]bool{}
		for _, s := range df.Col(ColumnHour).Records() {
			if h, err := strconv.Atoi(strings.TrimSpace(s)); err == nil && !seen[h] {
				seen[h] = true
				report.Hours = append(report.Hours, h)
			}
		}
		sort.Ints(report.Hours)
	}

	return report, nil
}

// Print writes the report in a human-readable layout
func (r *DataReport) Print(w io.Writer) {
	rule := strings.Repeat("=", 80)

	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "BASIC INFORMATION")
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Shape: (%d, %d)\n", r.Rows, len(r.Columns))
	for _, c := range r.Columns {
		fmt.Fprintf(w, "  %-10s %s\n", c.Name, c.Type)
	}

	fmt.Fprintln(w, "\n"+rule)
	fmt.Fprintln(w, "MISSING VALUES")
	fmt.Fprintln(w, rule)
	for _, c := range r.Columns {
		fmt.Fprintf(w, "  %-10s %d\n", c.Name, c.Missing)
	}

	fmt.Fprintln(w, "\n"+rule)
	fmt.Fprintln(w, "DUPLICATES")
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Duplicate rows: %d\n", r.DuplicateRows)

	if r.Start != nil && r.End != nil {
		fmt.Fprintln(w, "\n"+rule)
		fmt.Fprintln(w, "DATETIME RANGE")
		fmt.Fprintln(w, rule)
		fmt.Fprintf(w, "Start: %s\n", r.Start.Format(ProcessedTimeLayout))
		fmt.Fprintf(w, "End:   %s\n", r.End.Format(ProcessedTimeLayout))
	}

	fmt.Fprintln(w, "\n"+rule)
	fmt.Fprintln(w, "VALUE RANGES")
	fmt.Fprintln(w, rule)
	for _, c := range r.Columns {
		if !c.Numeric {
			continue
		}
		fmt.Fprintf(w, "  %-10s min=%-10.3f max=%-10.3f mean=%-10.3f std=%.3f\n", c.Name, c.Min, c.Max, c.Mean, c.StdDev)
	}

	if len(r.Hours) > 0 {
		fmt.Fprintf(w, "\nHour unique values: %v\n", r.Hours)
	}
}

func finite(values []float64) []float64 {
	out := values[:0:0]
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}

// countDuplicates counts data rows identical to an earlier row. records[0] is the header.
func countDuplicates(records [][]string) int {
	if len(records) < 2 {
		return 0
	}
	seen := make(map[string]struct{}, len(records)-1)
	dups := 0
	for _, rec := range records[1:] {
		key := strings.Join(rec, "\x1f")
		if _, ok := seen[key]; ok {
			dups++
			continue
		}
		seen[key] = struct{}{}
	}
	return dups
}

func hasName(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
