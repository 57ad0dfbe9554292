package pipeline

import (
	"errors"

	"aqi-platform/internal/models"
)

// LagOffsets are the backward AQI offsets, in feature order.
var LagOffsets = []int{1, 2, 3, 6}

// Warmup is the number of leading readings per station that cannot carry every lag.
const Warmup = 6

// ErrUnsorted is returned when lag construction receives rows out of (station, time) order.
var ErrUnsorted = errors.New("readings are not sorted by station and timestamp")

// StationTimeline is one station's readings in ascending time order
type StationTimeline struct {
	StationID string
	Readings  []models.CleanReading
}

// GroupByStation splits sorted rows into one timeline per station. Timelines
// share the backing array of rows.
func GroupByStation(sorted []models.CleanReading) ([]StationTimeline, error) {
	if !IsSortedByStationTime(sorted) {
		return nil, ErrUnsorted
	}

	var timelines []StationTimeline
	start := 0
	for i := 1; i <= len(sorted); i++ {
		if i == len(sorted) || sorted[i].StationID != sorted[start].StationID {
			timelines = append(timelines, StationTimeline{
				StationID: sorted[start].StationID,
				Readings:  sorted[start:i:i],
			})
			start = i
		}
	}
	return timelines, nil
}

// Lagged returns the samples of one timeline. Positions below Warmup are skipped.
func (tl StationTimeline) Lagged() []models.LaggedSample {
	if len(tl.Readings) <= Warmup {
		return nil
	}

	out := make([]models.LaggedSample, 0, len(tl.Readings)-Warmup)
	for i := Warmup; i < len(tl.Readings); i++ {
		aqi := func(k int) float64 { return tl.Readings[i-k].Value(models.AQI) }
		out = append(out, models.LaggedSample{
			CleanReading: tl.Readings[i],
			AQILag1:      aqi(LagOffsets[0]),
			AQILag2:      aqi(LagOffsets[1]),
			AQILag3:      aqi(LagOffsets[2]),
			AQILag6:      aqi(LagOffsets[3]),
		})
	}
	return out
}

// BuildLagSamples derives lag features per station over (station, time) sorted rows.
// Output keeps the input order with each station's warm-up rows removed.
func BuildLagSamples(sorted []models.CleanReading) ([]models.LaggedSample, error) {
	timelines, err := GroupByStation(sorted)
	if err != nil {
		return nil, err
	}

	var out []models.LaggedSample
	for _, tl := range timelines {
		out = append(out, tl.Lagged()...)
	}
	return out, nil
}
