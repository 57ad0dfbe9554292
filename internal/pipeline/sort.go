package pipeline

import (
	"sort"

	"aqi-platform/internal/models"
)

// stationTimeLess orders by station id, then timestamp
func stationTimeLess(a, b *models.CleanReading) bool {
	if a.StationID != b.StationID {
		return a.StationID < b.StationID
	}
	return a.Timestamp.Before(b.Timestamp)
}

// SortByStationTime sorts rows in place by (station, timestamp). Ties keep input order.
func SortByStationTime(rows []models.CleanReading) {
	sort.SliceStable(rows, func(i, j int) bool {
		return stationTimeLess(&rows[i], &rows[j])
	})
}

// IsSortedByStationTime reports whether rows are already in (station, timestamp) order
func IsSortedByStationTime(rows []models.CleanReading) bool {
	for i := 1; i < len(rows); i++ {
		if stationTimeLess(&rows[i], &rows[i-1]) {
			return false
		}
	}
	return true
}
