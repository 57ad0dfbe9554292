package models

import (
	"time"
)

// Channel identifies one numeric column of a station-hour record.
// The seven pollutants come first, AQI (the target) last.
type Channel int

const (
	PM25 Channel = iota
	PM10
	NO2
	CO
	SO2
	O3
	NH3
	AQI

	NumChannels = int(AQI) + 1
)

// Pollutants lists the seven measured channels in feature order.
var Pollutants = []Channel{PM25, PM10, NO2, CO, SO2, O3, NH3}

// Channels lists every numeric channel, pollutants then AQI.
var Channels = []Channel{PM25, PM10, NO2, CO, SO2, O3, NH3, AQI}

var channelColumns = [NumChannels]string{"PM2.5", "PM10", "NO2", "CO", "SO2", "O3", "NH3", "AQI"}

// Column returns the raw/processed dataset column name for the channel
func (c Channel) Column() string {
	if c < 0 || int(c) >= NumChannels {
		return "UNKNOWN"
	}
	return channelColumns[c]
}

func (c Channel) String() string {
	return c.Column()
}

// RawReading represents one station-hour row as read from the raw dataset.
// Nil pointers mark values that were absent or could not be coerced.
type RawReading struct {
	StationID string
	Datetime  string     // Source token, kept for diagnostics
	Timestamp *time.Time // Nil when Datetime was unparseable
	Values    [NumChannels]*float64
}

// Value returns the channel value or nil when missing
func (r *RawReading) Value(c Channel) *float64 {
	return r.Values[c]
}

// ToClean converts a complete RawReading into a CleanReading.
// Returns a ValidationError naming the first missing field; range checks are
// not applied here.
func (r *RawReading) ToClean() (*CleanReading, error) {
	if r.Timestamp == nil {
		return nil, &ValidationError{
			Field:   "Datetime",
			Value:   r.Datetime,
			Message: "missing or unparseable timestamp",
		}
	}

	clean := &CleanReading{
		StationID: r.StationID,
		Timestamp: *r.Timestamp,
		Hour:      r.Timestamp.Hour(),
	}
	for _, ch := range Channels {
		v := r.Values[ch]
		if v == nil {
			return nil, &ValidationError{
				Field:   ch.Column(),
				Message: "missing value for " + ch.Column(),
			}
		}
		clean.Values[ch] = *v
	}
	return clean, nil
}

// CleanReading is a reading with a parsed timestamp and all eight numeric fields present.
type CleanReading struct {
	StationID string
	Timestamp time.Time
	Values    [NumChannels]float64
	Hour      int
}

// Value returns the channel value
func (c *CleanReading) Value(ch Channel) float64 {
	return c.Values[ch]
}

// LaggedSample is a CleanReading plus AQI values 1, 2, 3 and 6 positions
// earlier in the same station's timeline.
type LaggedSample struct {
	CleanReading
	AQILag1 float64
	AQILag2 float64
	AQILag3 float64
	AQILag6 float64
}

// Lags returns the lag features in model order
func (s *LaggedSample) Lags() []float64 {
	return []float64{s.AQILag1, s.AQILag2, s.AQILag3, s.AQILag6}
}

// ValidationError represents a data validation error
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsTransient returns false as validation errors are permanent
func (e *ValidationError) IsTransient() bool {
	return false
}
