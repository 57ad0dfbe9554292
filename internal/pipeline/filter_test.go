package pipeline

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aqi-platform/internal/models"
)

func rawWith(values [models.NumChannels]float64) models.RawReading {
	ts := time.Date(2021, 6, 1, 8, 0, 0, 0, time.UTC)
	r := models.RawReading{StationID: "S1", Timestamp: &ts}
	for i := range values {
		v := values[i]
		r.Values[i] = &v
	}
	return r
}

var plausibleValues = [models.NumChannels]float64{40, 80, 20, 0.8, 10, 30, 8, 120}

func TestRange_HalfOpen(t *testing.T) {
	rg := Range{Channel: models.PM25, Min: 0, Max: 500}
	assert.True(t, rg.Contains(0))
	assert.True(t, rg.Contains(499.999))
	assert.False(t, rg.Contains(500))
	assert.False(t, rg.Contains(-0.0001))
}

func TestChannelRanges_CoverEveryChannel(t *testing.T) {
	seen := map[models.Channel]bool{}
	for _, rg := range ChannelRanges {
		assert.False(t, seen[rg.Channel], "duplicate range for %s", rg.Channel)
		seen[rg.Channel] = true
		assert.Less(t, rg.Min, rg.Max)
	}
	assert.Len(t, seen, models.NumChannels)
}

func TestAll_Conjunction(t *testing.T) {
	yes := func(*models.CleanReading) bool { return true }
	no := func(*models.CleanReading) bool { return false }
	r := &models.CleanReading{}

	assert.True(t, All()(r))
	assert.True(t, All(yes, yes)(r))
	assert.False(t, All(yes, no, yes)(r))
}

func TestFilterQuality_DropsWholeRowOnAnySingleViolation(t *testing.T) {
	for _, rg := range ChannelRanges {
		for _, bad := range []float64{rg.Max, rg.Min - 1} {
			t.Run(fmt.Sprintf("%s=%g", rg.Channel, bad), func(t *testing.T) {
				values := plausibleValues
				values[rg.Channel] = bad

				out, stats := FilterQuality([]models.RawReading{rawWith(values), rawWith(plausibleValues)})
				require.Len(t, out, 1)
				assert.Equal(t, FilterStats{
					Input:             2,
					MissingDropped:    0,
					OutOfRangeDropped: 1,
					Output:            1,
					Violations:        map[string]int{rg.Channel.Column(): 1},
				}, stats)
			})
		}
	}
}

func TestFilterQuality_MissingBeforeRange(t *testing.T) {
	missingTime := rawWith(plausibleValues)
	missingTime.Timestamp = nil

	missingAndBad := rawWith(plausibleValues)
	missingAndBad.Values[models.SO2] = nil
	bad := 900.0
	missingAndBad.Values[models.PM10] = &bad

	out, stats := FilterQuality([]models.RawReading{missingTime, missingAndBad, rawWith(plausibleValues)})
	assert.Len(t, out, 1)
	assert.Equal(t, 3, stats.Input)
	assert.Equal(t, 2, stats.MissingDropped)
	assert.Equal(t, 0, stats.OutOfRangeDropped)
	assert.Equal(t, 1, stats.Output)
	assert.Equal(t, 8, out[0].Hour)
}

// TestFilterQuality_SurvivorsSatisfyEveryRange checks random rows with values
// spread across and beyond each channel's range.
func TestFilterQuality_SurvivorsSatisfyEveryRange(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	rows := make([]models.RawReading, 2000)
	for i := range rows {
		var values [models.NumChannels]float64
		for _, rg := range ChannelRanges {
			span := rg.Max - rg.Min
			values[rg.Channel] = rg.Min - 0.1*span + rng.Float64()*1.2*span
		}
		rows[i] = rawWith(values)
		if rng.Intn(10) == 0 {
			rows[i].Values[models.Channel(rng.Intn(models.NumChannels))] = nil
		}
	}

	out, stats := FilterQuality(rows)
	assert.Equal(t, stats.Input, stats.MissingDropped+stats.OutOfRangeDropped+stats.Output)
	assert.Len(t, out, stats.Output)
	assert.NotZero(t, stats.Output)

	for _, r := range out {
		for _, rg := range ChannelRanges {
			v := r.Value(rg.Channel)
			assert.True(t, rg.Contains(v), "%s=%v outside [%v,%v)", rg.Channel, v, rg.Min, rg.Max)
		}
	}
}

func TestPipeline_BoundaryRowsEndToEnd(t *testing.T) {
	csv := rawCSV(rawHeader,
		"S1,2020-01-01 00:00:00,500,80,20,0.8,10,30,8,100",
		"S1,2020-01-01 01:00:00,499.999,80,20,0.8,10,30,8,100",
		"S1,2020-01-01 02:00:00,40,80,20,10,10,30,8,100",
		"S1,2020-01-01 03:00:00,40,80,20,9.99,10,30,8,599.9",
	)

	rows, _ := FilterQuality(mustNormalize(t, csv))
	SortByStationTime(rows)

	var buf strings.Builder
	require.NoError(t, WriteProcessed(&buf, rows))

	out := buf.String()
	assert.NotContains(t, out, ",500,")
	assert.Contains(t, out, "S1,2020-01-01 01:00:00,499.999,80,20,0.8,10,30,8,100,1")
	assert.Contains(t, out, "S1,2020-01-01 03:00:00,40,80,20,9.99,10,30,8,599.9,3")
	assert.Equal(t, 3, strings.Count(out, "\n"), "header plus two rows")

	back, stats, err := ReadProcessed(strings.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Output)
	require.Len(t, back, 2)
	assert.Equal(t, 499.999, back[0].Value(models.PM25))
	assert.Equal(t, 3, back[1].Hour)
}

func TestProcessed_KeepsUTCOffset(t *testing.T) {
	rows, _ := FilterQuality(mustNormalize(t, rawCSV(rawHeader,
		"S1,2020-01-01T05:00:00+05:30,40,80,20,0.8,10,30,8,100",
		"S1,2020-01-01T00:00:00Z,40,80,20,0.8,10,30,8,110",
	)))
	SortByStationTime(rows)
	require.Len(t, rows, 2)

	var buf strings.Builder
	require.NoError(t, WriteProcessed(&buf, rows))
	out := buf.String()
	assert.Contains(t, out, "S1,2020-01-01 05:00:00+05:30,")
	assert.Contains(t, out, "S1,2020-01-01 00:00:00,")

	back, _, err := ReadProcessed(strings.NewReader(out))
	require.NoError(t, err)
	require.Len(t, back, 2)
	for i := range rows {
		assert.True(t, back[i].Timestamp.Equal(rows[i].Timestamp), "row %d: %v != %v", i, back[i].Timestamp, rows[i].Timestamp)
		assert.Equal(t, rows[i].Hour, back[i].Hour)
	}
	assert.Equal(t, 5, back[0].Hour)
}
