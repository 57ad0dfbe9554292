package pipeline

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"aqi-platform/internal/models"
)

// ProcessedTimeLayout is the Datetime format of the processed dataset.
// Readings carrying a non-UTC offset are written with ProcessedOffsetLayout
// so the instant and the wall-clock hour both survive a re-read.
const (
	ProcessedTimeLayout   = "2006-01-02 15:04:05"
	ProcessedOffsetLayout = "2006-01-02 15:04:05-07:00"
)

// ProcessedColumns is the processed dataset header: the required columns plus hour.
func ProcessedColumns() []string {
	cols := make([]string, 0, len(RequiredColumns)+1)
	cols = append(cols, RequiredColumns...)
	return append(cols, ColumnHour)
}

// WriteProcessed writes rows as CSV under ProcessedColumns, one line per reading
func WriteProcessed(w io.Writer, rows []models.CleanReading) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ProcessedColumns()); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	record := make([]string, len(RequiredColumns)+1)
	for i := range rows {
		r := &rows[i]
		record[0] = r.StationID
		record[1] = formatProcessedTime(r.Timestamp)
		for ch := 0; ch < models.NumChannels; ch++ {
			record[2+ch] = strconv.FormatFloat(r.Values[ch], 'f', -1, 64)
		}
		record[len(record)-1] = strconv.Itoa(r.Hour)
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatProcessedTime(ts time.Time) string {
	if _, offset := ts.Zone(); offset != 0 {
		return ts.Format(ProcessedOffsetLayout)
	}
	return ts.Format(ProcessedTimeLayout)
}

// WriteProcessedFile writes to a temp file next to path and renames it into
// place, so a failed run never leaves a truncated dataset behind.
func WriteProcessedFile(path string, rows []models.CleanReading) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".processed-*.csv")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := WriteProcessed(tmp, rows); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move processed file into place: %w", err)
	}
	return nil
}

// ReadProcessed loads a processed dataset back into clean readings. It reuses
// the raw reader, normalizer and quality filter, so a hand-edited file cannot
// smuggle implausible rows into training. Hour is recomputed from Datetime.
func ReadProcessed(r io.Reader) ([]models.CleanReading, FilterStats, error) {
	table, err := ReadRaw(r)
	if err != nil {
		return nil, FilterStats{}, err
	}
	raw, err := Normalize(table)
	if err != nil {
		return nil, FilterStats{}, err
	}
	rows, stats := FilterQuality(raw)
	if !IsSortedByStationTime(rows) {
		SortByStationTime(rows)
	}
	return rows, stats, nil
}

// ReadProcessedFile opens path and reads it with ReadProcessed
func ReadProcessedFile(path string) ([]models.CleanReading, FilterStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, FilterStats{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	return ReadProcessed(f)
}
