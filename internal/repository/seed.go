package repository

import (
	"fmt"
	"strings"

	"aqi-platform/internal/models"
)

type seedRegion struct {
	name      string
	latitude  float64
	longitude float64
}

// Ten Maharashtra regions with two sensors each, matching migrations/001.
var seedRegions = []seedRegion{
	{"Mumbai", 19.0760, 72.8777},
	{"Pune", 18.5204, 73.8567},
	{"Nagpur", 21.1458, 79.0882},
	{"Nashik", 19.9975, 73.7898},
	{"Aurangabad", 19.8762, 75.3433},
	{"Kolhapur", 16.7050, 74.2433},
	{"Solapur", 17.6599, 75.9064},
	{"Chandrapur", 19.9615, 79.2961},
	{"Ratnagiri", 16.9902, 73.3120},
	{"Navi Mumbai", 19.0330, 73.0297},
}

const (
	sensorsPerRegion = 2
	seedRadius       = 2000
)

// SeedCatalog returns the seeded regions and sensors. Region i (1-based)
// owns sensors 2i-1 and 2i; every seeded sensor starts active.
func SeedCatalog() ([]models.Region, []*models.Sensor) {
	regions := make([]models.Region, 0, len(seedRegions))
	sensors := make([]*models.Sensor, 0, len(seedRegions)*sensorsPerRegion)

	for i, r := range seedRegions {
		regionID := int64(i + 1)
		regions = append(regions, models.Region{ID: regionID, Name: r.name})

		code := strings.ToUpper(strings.ReplaceAll(r.name, " ", "_"))
		for j := 0; j < sensorsPerRegion; j++ {
			sensors = append(sensors, &models.Sensor{
				ID:         int64(len(sensors) + 1),
				SensorCode: fmt.Sprintf("MH_%s_%02d", code, j+1),
				RegionID:   regionID,
				Latitude:   r.latitude + 0.01*float64(j),
				Longitude:  r.longitude + 0.01*float64(j),
				Radius:     seedRadius,
				IsActive:   true,
			})
		}
	}
	return regions, sensors
}
