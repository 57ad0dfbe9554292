// Package simulator drives the prediction API with synthetic readings from
// the sensor network, one POST per active sensor per cycle.
package simulator

import (
	"math/rand"
	"strings"
)

// Level is a pollution profile assigned to a region
type Level string

const (
	LevelLow      Level = "low"
	LevelGood     Level = "good"
	LevelModerate Level = "moderate"
	LevelHigh     Level = "high"
	LevelVeryHigh Level = "very_high"
	LevelSevere   Level = "severe"
)

type span struct{ min, max float64 }

// profiles holds uniform channel ranges in PM2.5, PM10, NO2, CO, SO2, O3, NH3 order
var profiles = map[Level][7]span{
	LevelLow:      {{5, 15}, {15, 40}, {5, 15}, {0.1, 0.4}, {2, 8}, {10, 25}, {2, 8}},
	LevelGood:     {{15, 40}, {40, 80}, {10, 25}, {0.3, 0.8}, {5, 15}, {20, 50}, {5, 15}},
	LevelModerate: {{40, 100}, {80, 200}, {25, 60}, {0.7, 1.8}, {10, 30}, {40, 80}, {10, 30}},
	LevelHigh:     {{100, 220}, {200, 400}, {60, 120}, {1.5, 3}, {20, 60}, {60, 120}, {20, 60}},
	LevelVeryHigh: {{180, 300}, {350, 550}, {90, 180}, {2.5, 5}, {40, 100}, {80, 160}, {40, 100}},
	LevelSevere:   {{300, 500}, {500, 800}, {150, 300}, {5, 10}, {80, 200}, {150, 250}, {80, 150}},
}

var regionLevels = map[string]Level{
	"mumbai":      LevelHigh,
	"pune":        LevelModerate,
	"nagpur":      LevelModerate,
	"nashik":      LevelGood,
	"aurangabad":  LevelHigh,
	"kolhapur":    LevelGood,
	"solapur":     LevelVeryHigh,
	"chandrapur":  LevelSevere,
	"ratnagiri":   LevelLow,
	"navi mumbai": LevelModerate,
}

// LevelForRegion returns the region's profile. Unknown regions are moderate.
func LevelForRegion(name string) Level {
	if l, ok := regionLevels[strings.ToLower(strings.TrimSpace(name))]; ok {
		return l
	}
	return LevelModerate
}

// Generate draws one reading for the level. Unknown levels fall back to moderate.
func Generate(level Level, rng *rand.Rand) [7]float64 {
	p, ok := profiles[level]
	if !ok {
		p = profiles[LevelModerate]
	}
	var out [7]float64
	for i, s := range p {
		out[i] = s.min + rng.Float64()*(s.max-s.min)
	}
	return out
}
