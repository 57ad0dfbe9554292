package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aqi-platform/internal/models"
)

var t0 = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

// timeline builds n hourly readings for station whose AQI encodes station and position
func timeline(station string, base float64, n int) []models.CleanReading {
	rows := make([]models.CleanReading, n)
	for i := range rows {
		rows[i] = cleanAt(station, t0.Add(time.Duration(i)*time.Hour), base+float64(i))
	}
	return rows
}

func TestSortByStationTime_StableOnTies(t *testing.T) {
	rows := []models.CleanReading{
		cleanAt("B", t0.Add(time.Hour), 1),
		cleanAt("A", t0.Add(2*time.Hour), 2),
		cleanAt("A", t0, 3),
		cleanAt("A", t0, 4),
		cleanAt("B", t0, 5),
	}
	SortByStationTime(rows)

	var got []float64
	for _, r := range rows {
		got = append(got, r.Value(models.AQI))
	}
	assert.Equal(t, []float64{3, 4, 2, 5, 1}, got)
	assert.True(t, IsSortedByStationTime(rows))
}

func TestBuildLagSamples_WarmupCounts(t *testing.T) {
	tests := []struct {
		n    int
		want int
	}{
		{0, 0},
		{1, 0},
		{6, 0},
		{7, 1},
		{10, 4},
	}
	for _, tt := range tests {
		samples, err := BuildLagSamples(timeline("S", 0, tt.n))
		require.NoError(t, err)
		assert.Len(t, samples, tt.want, "n=%d", tt.n)
	}
}

func TestBuildLagSamples_OffsetsWithinStation(t *testing.T) {
	rows := append(timeline("A", 1000, 9), timeline("B", 2000, 8)...)
	rows = append(rows, timeline("C", 3000, 3)...)

	samples, err := BuildLagSamples(rows)
	require.NoError(t, err)
	require.Len(t, samples, 3+2)

	for _, s := range samples {
		base := map[string]float64{"A": 1000, "B": 2000}[s.StationID]
		pos := s.Value(models.AQI) - base
		require.GreaterOrEqual(t, pos, float64(Warmup))

		assert.Equal(t, base+pos-1, s.AQILag1, "%s lag1", s.StationID)
		assert.Equal(t, base+pos-2, s.AQILag2, "%s lag2", s.StationID)
		assert.Equal(t, base+pos-3, s.AQILag3, "%s lag3", s.StationID)
		assert.Equal(t, base+pos-6, s.AQILag6, "%s lag6", s.StationID)

		for _, lag := range s.Lags() {
			assert.GreaterOrEqual(t, lag, base, "lag from another station")
			assert.Less(t, lag, base+1000, "lag from another station")
		}
	}

	assert.Equal(t, "A", samples[0].StationID)
	assert.Equal(t, "B", samples[len(samples)-1].StationID)
}

func TestBuildLagSamples_RejectsUnsorted(t *testing.T) {
	rows := timeline("A", 0, 8)
	rows[3], rows[4] = rows[4], rows[3]

	_, err := BuildLagSamples(rows)
	assert.ErrorIs(t, err, ErrUnsorted)

	interleaved := []models.CleanReading{cleanAt("B", t0, 1), cleanAt("A", t0, 2)}
	_, err = BuildLagSamples(interleaved)
	assert.ErrorIs(t, err, ErrUnsorted)
}

func TestGroupByStation(t *testing.T) {
	rows := append(timeline("A", 0, 2), timeline("B", 0, 3)...)
	groups, err := GroupByStation(rows)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "A", groups[0].StationID)
	assert.Len(t, groups[0].Readings, 2)
	assert.Equal(t, "B", groups[1].StationID)
	assert.Len(t, groups[1].Readings, 3)

	empty, err := GroupByStation(nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
