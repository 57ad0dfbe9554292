package pipeline

import (
	"aqi-platform/internal/models"
)

// Range is a half-open admissible interval [Min, Max) for one channel
type Range struct {
	Channel models.Channel
	Min     float64
	Max     float64
}

// Contains reports whether v lies in [Min, Max)
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v < r.Max
}

// ChannelRanges is the plausibility table applied by FilterQuality.
var ChannelRanges = []Range{
	{models.PM25, 0, 500},
	{models.PM10, 0, 800},
	{models.NO2, 0, 300},
	{models.CO, 0, 10},
	{models.SO2, 0, 200},
	{models.O3, 0, 300},
	{models.NH3, 0, 200},
	{models.AQI, 0, 600},
}

// Predicate accepts or rejects a reading
type Predicate func(r *models.CleanReading) bool

// InRange builds a predicate over a single channel range
func InRange(rg Range) Predicate {
	return func(r *models.CleanReading) bool {
		return rg.Contains(r.Value(rg.Channel))
	}
}

// All is the conjunction of preds. An empty conjunction accepts everything.
func All(preds ...Predicate) Predicate {
	return func(r *models.CleanReading) bool {
		for _, p := range preds {
			if !p(r) {
				return false
			}
		}
		return true
	}
}

// Plausible builds the conjunction of InRange over every entry of ranges
func Plausible(ranges []Range) Predicate {
	preds := make([]Predicate, len(ranges))
	for i, rg := range ranges {
		preds[i] = InRange(rg)
	}
	return All(preds...)
}

// FilterStats reports row counts through both gates.
type FilterStats struct {
	Input             int
	MissingDropped    int
	OutOfRangeDropped int
	Output            int

	// Violations counts out-of-range values per channel column; a row can
	// contribute to several channels.
	Violations map[string]int
}

// FilterQuality applies the completeness gate then the plausibility gate.
// A row failing any check is dropped whole; nothing is imputed.
func FilterQuality(rows []models.RawReading) ([]models.CleanReading, FilterStats) {
	stats := FilterStats{
		Input:      len(rows),
		Violations: make(map[string]int),
	}
	plausible := Plausible(ChannelRanges)

	out := make([]models.CleanReading, 0, len(rows))
	for i := range rows {
		clean, err := rows[i].ToClean()
		if err != nil {
			stats.MissingDropped++
			continue
		}
		if !plausible(clean) {
			stats.OutOfRangeDropped++
			for _, rg := range ChannelRanges {
				if !rg.Contains(clean.Value(rg.Channel)) {
					stats.Violations[rg.Channel.Column()]++
				}
			}
			continue
		}
		out = append(out, *clean)
	}
	stats.Output = len(out)
	return out, stats
}
