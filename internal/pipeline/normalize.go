package pipeline

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"aqi-platform/internal/models"
)

const (
	ColumnStation  = "StationId"
	ColumnDatetime = "Datetime"
	ColumnHour     = "hour"
)

// RequiredColumns is the ordered raw schema. Extra source columns are ignored.
var RequiredColumns = []string{
	ColumnStation, ColumnDatetime,
	"PM2.5", "PM10", "NO2", "CO", "SO2", "O3", "NH3", "AQI",
}

// ErrMissingColumn aborts a run whose source lacks a required column.
var ErrMissingColumn = errors.New("missing required column")

// TimestampLayouts are tried in order; the first successful parse wins.
var TimestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02 15:04:05",
}

// Normalize projects the table onto RequiredColumns and coerces every cell.
// Unparseable timestamps and non-numeric tokens become nil; nothing is dropped here.
func Normalize(t *RawTable) ([]models.RawReading, error) {
	for _, col := range RequiredColumns {
		if !t.hasColumn(col) {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, col)
		}
	}

	rows, err := t.records(RequiredColumns)
	if err != nil {
		return nil, err
	}

	out := make([]models.RawReading, len(rows))
	for i, row := range rows {
		r := &out[i]
		r.StationID = strings.TrimSpace(row[0])
		r.Datetime = row[1]
		r.Timestamp = ParseTimestamp(row[1])
		for ch := 0; ch < models.NumChannels; ch++ {
			r.Values[ch] = parseNumber(row[2+ch])
		}
	}
	return out, nil
}

// ParseTimestamp returns nil when s matches none of TimestampLayouts
func ParseTimestamp(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range TimestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return &ts
		}
	}
	return nil
}

// parseNumber maps empty, non-numeric, NaN and infinite tokens to nil
func parseNumber(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
