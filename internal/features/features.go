// Package features builds model input vectors. Training and serving both go
// through these functions so the column order cannot drift between them.
package features

import (
	"errors"
	"fmt"
	"math"
	"time"

	"aqi-platform/internal/models"
	"aqi-platform/internal/pipeline"
)

// InstantFeatureNames is the column order of the instant model
var InstantFeatureNames = []string{
	"PM2.5", "PM10", "NO2", "CO", "SO2", "O3", "NH3",
	"hour", "day", "month", "weekday",
}

// ForecastFeatureNames is the column order of the forecast model
var ForecastFeatureNames = []string{"AQI_lag_1", "AQI_lag_2", "AQI_lag_3", "AQI_lag_6"}

// HistoryWindow is the number of stored predictions the forecast path needs
const HistoryWindow = 6

// ErrInsufficientHistory is returned when a sensor has fewer than HistoryWindow predictions.
var ErrInsufficientHistory = errors.New("insufficient prediction history")

// Calendar holds the calendar fields of the instant model.
// Weekday counts from Monday=0 to Sunday=6.
type Calendar struct {
	Hour    int `json:"hour"`
	Day     int `json:"day"`
	Month   int `json:"month"`
	Weekday int `json:"weekday"`
}

// CalendarFromTime derives calendar fields from a timestamp
func CalendarFromTime(t time.Time) Calendar {
	return Calendar{
		Hour:    t.Hour(),
		Day:     t.Day(),
		Month:   int(t.Month()),
		Weekday: (int(t.Weekday()) + 6) % 7,
	}
}

// Validate checks every field is inside its calendar range
func (c Calendar) Validate() error {
	switch {
	case c.Hour < 0 || c.Hour > 23:
		return &models.ValidationError{Field: "hour", Value: fmt.Sprint(c.Hour), Message: "hour must be between 0 and 23"}
	case c.Day < 1 || c.Day > 31:
		return &models.ValidationError{Field: "day", Value: fmt.Sprint(c.Day), Message: "day must be between 1 and 31"}
	case c.Month < 1 || c.Month > 12:
		return &models.ValidationError{Field: "month", Value: fmt.Sprint(c.Month), Message: "month must be between 1 and 12"}
	case c.Weekday < 0 || c.Weekday > 6:
		return &models.ValidationError{Field: "weekday", Value: fmt.Sprint(c.Weekday), Message: "weekday must be between 0 (Monday) and 6 (Sunday)"}
	}
	return nil
}

// InstantInput is one reading presented to the instant model
type InstantInput struct {
	Pollutants [7]float64 // PM2.5, PM10, NO2, CO, SO2, O3, NH3
	Calendar   Calendar
}

// Validate rejects non-finite channel values and out-of-range calendar fields
func (in InstantInput) Validate() error {
	for i, v := range in.Pollutants {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			col := models.Pollutants[i].Column()
			return &models.ValidationError{Field: col, Value: fmt.Sprint(v), Message: col + " must be a finite number"}
		}
	}
	return in.Calendar.Validate()
}

// InstantVector assembles the instant feature row in InstantFeatureNames order
func InstantVector(in InstantInput) []float64 {
	v := make([]float64, 0, len(InstantFeatureNames))
	v = append(v, in.Pollutants[:]...)
	return append(v,
		float64(in.Calendar.Hour),
		float64(in.Calendar.Day),
		float64(in.Calendar.Month),
		float64(in.Calendar.Weekday),
	)
}

// InstantInputFromReading builds the training-time input of a clean reading.
// Calendar fields come from the timestamp, hour from the derived Hour column.
func InstantInputFromReading(r *models.CleanReading) InstantInput {
	var in InstantInput
	for i, ch := range models.Pollutants {
		in.Pollutants[i] = r.Value(ch)
	}
	in.Calendar = CalendarFromTime(r.Timestamp)
	in.Calendar.Hour = r.Hour
	return in
}

// ForecastVector maps the last HistoryWindow predictions, oldest first, to
// [v[-1], v[-2], v[-3], v[-6]]. Only the trailing window is used when history is longer.
func ForecastVector(history []float64) ([]float64, error) {
	if len(history) < HistoryWindow {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientHistory, len(history), HistoryWindow)
	}
	n := len(history)
	out := make([]float64, len(pipeline.LagOffsets))
	for i, k := range pipeline.LagOffsets {
		out[i] = history[n-k]
	}
	return out, nil
}

// ForecastVectorFromSample builds the training-time forecast row of a lagged sample
func ForecastVectorFromSample(s *models.LaggedSample) []float64 {
	return s.Lags()
}
