package pipeline

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// RawTable is the raw station-hour dataset exactly as read, every cell a string.
// No cleaning happens here.
type RawTable struct {
	df dataframe.DataFrame
}

// ErrNoHeader is returned for a source with no header row at all
var ErrNoHeader = errors.New("raw table has no header row")

// ReadRaw loads a CSV table with a header row. Type detection and gota's
// missing-value tokens are disabled so every cell reaches the normalizer as
// written. A header with no data rows yields an empty table.
func ReadRaw(r io.Reader) (*RawTable, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read raw table: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrNoHeader
	}

	var df dataframe.DataFrame
	if len(records) == 1 {
		df = emptyFrame(records[0])
	} else {
		df = dataframe.LoadRecords(records,
			dataframe.HasHeader(true),
			dataframe.DetectTypes(false),
			dataframe.DefaultType(series.String),
			dataframe.NaNValues(nil),
		)
	}
	if df.Err != nil {
		return nil, fmt.Errorf("failed to read raw table: %w", df.Err)
	}
	return &RawTable{df: df}, nil
}

func emptyFrame(header []string) dataframe.DataFrame {
	cols := make([]series.Series, len(header))
	for i, name := range header {
		cols[i] = series.New([]string{}, series.String, name)
	}
	return dataframe.New(cols...)
}

// ReadRawFile opens path and reads it with ReadRaw
func ReadRawFile(path string) (*RawTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	return ReadRaw(f)
}

// Rows returns the number of data rows
func (t *RawTable) Rows() int {
	return t.df.Nrow()
}

// Columns returns the column names in source order
func (t *RawTable) Columns() []string {
	return t.df.Names()
}

// hasColumn reports whether the table carries the named column
func (t *RawTable) hasColumn(name string) bool {
	return hasName(t.df.Names(), name)
}

// records returns the named columns as rows of strings, header excluded
func (t *RawTable) records(columns []string) ([][]string, error) {
	sel := t.df.Select(columns)
	if sel.Err != nil {
		return nil, fmt.Errorf("failed to select columns: %w", sel.Err)
	}
	recs := sel.Records()
	if len(recs) == 0 {
		return nil, nil
	}
	return recs[1:], nil
}
