package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildReport(t *testing.T) {
	csv := strings.Join([]string{
		"StationId,Datetime,PM2.5,PM10,NO2,CO,SO2,O3,NH3,AQI,hour",
		"S1,2020-01-01 05:00:00,40.5,80,20,0.8,10,30,8,100,5",
		"S1,2020-01-01 06:00:00,20.5,60,20,0.8,10,30,8,90,6",
		"S1,2020-01-01 06:00:00,20.5,60,20,0.8,10,30,8,90,6",
		"S2,2019-12-31 23:00:00,60.5,100,20,0.8,10,30,8,110,23",
	}, "\n") + "\n"

	report, err := BuildReport(strings.NewReader(csv))
	require.NoError(t, err)

	assert.Equal(t, 4, report.Rows)
	assert.Len(t, report.Columns, 11)
	assert.Equal(t, 1, report.DuplicateRows)
	assert.Equal(t, []int{5, 6, 23}, report.Hours)

	require.NotNil(t, report.Start)
	require.NotNil(t, report.End)
	assert.Equal(t, "2019-12-31 23:00:00", report.Start.Format(ProcessedTimeLayout))
	assert.Equal(t, "2020-01-01 06:00:00", report.End.Format(ProcessedTimeLayout))

	byName := map[string]ColumnSummary{}
	for _, c := range report.Columns {
		byName[c.Name] = c
	}
	pm := byName["PM2.5"]
	assert.True(t, pm.Numeric)
	assert.Equal(t, 20.5, pm.Min)
	assert.Equal(t, 60.5, pm.Max)
	assert.InDelta(t, 35.5, pm.Mean, 1e-9)
	assert.False(t, byName["StationId"].Numeric)

	var out strings.Builder
	report.Print(&out)
	assert.Contains(t, out.String(), "Duplicate rows: 1")
	assert.Contains(t, out.String(), "Shape: (4, 11)")
}

func TestCountDuplicates(t *testing.T) {
	assert.Equal(t, 0, countDuplicates(nil))
	assert.Equal(t, 0, countDuplicates([][]string{{"a"}}))
	assert.Equal(t, 2, countDuplicates([][]string{{"h"}, {"x"}, {"x"}, {"y"}, {"x"}}))
}
