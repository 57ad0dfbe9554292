// Package aqi holds the AQI category buckets shared by training evaluation,
// both serving paths and region aggregation.
package aqi

// Category names, ordered from cleanest to worst.
const (
	Good         = "Good"
	Satisfactory = "Satisfactory"
	Moderate     = "Moderate"
	Poor         = "Poor"
	VeryPoor     = "Very Poor"
	Severe       = "Severe"
)

type bucket struct {
	upper    float64 // inclusive
	category string
	advisory string
}

var buckets = []bucket{
	{50, Good, "Air quality is good. Safe for outdoor activities"},
	{100, Satisfactory, "Sensitive individuals should take precautions"},
	{200, Moderate, "Limit prolonged outdoor activity"},
	{300, Poor, "Wear mask and avoid outdoor exercise"},
	{400, VeryPoor, "Stay indoors, keep windows closed"},
}

const severeAdvisory = "Health emergency. Avoid going outside"

// Category maps an AQI value to its bucket. Upper bounds are inclusive.
// NaN falls through every comparison and maps to Severe.
func Category(value float64) string {
	for _, b := range buckets {
		if value <= b.upper {
			return b.category
		}
	}
	return Severe
}

// Advisory returns the public health advice for an AQI value
func Advisory(value float64) string {
	for _, b := range buckets {
		if value <= b.upper {
			return b.advisory
		}
	}
	return severeAdvisory
}

// Categories returns every category name in ascending severity
func Categories() []string {
	out := make([]string, 0, len(buckets)+1)
	for _, b := range buckets {
		out = append(out, b.category)
	}
	return append(out, Severe)
}
