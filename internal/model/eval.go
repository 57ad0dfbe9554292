package model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"aqi-platform/internal/aqi"
)

// Metrics is the held-out evaluation of a fitted model
type Metrics struct {
	RMSE             float64 `json:"rmse"`
	R2               float64 `json:"r2"`
	CategoryAccuracy float64 `json:"category_accuracy"`
	TrainSize        int     `json:"train_size"`
	TestSize         int     `json:"test_size"`
}

// Evaluate scores predictions against actual AQI values. R2 is reported as 0
// when it is undefined (fewer than two points or constant actuals).
func Evaluate(predicted, actual []float64) (Metrics, error) {
	if len(predicted) != len(actual) {
		return Metrics{}, fmt.Errorf("%d predictions for %d actual values", len(predicted), len(actual))
	}
	if len(actual) == 0 {
		return Metrics{}, nil
	}

	var sq float64
	hits := 0
	for i := range actual {
		d := predicted[i] - actual[i]
		sq += d * d
		if aqi.Category(predicted[i]) == aqi.Category(actual[i]) {
			hits++
		}
	}

	r2 := stat.RSquaredFrom(predicted, actual, nil)
	if math.IsNaN(r2) || math.IsInf(r2, 0) {
		r2 = 0
	}

	return Metrics{
		RMSE:             math.Sqrt(sq / float64(len(actual))),
		R2:               r2,
		CategoryAccuracy: float64(hits) / float64(len(actual)),
		TestSize:         len(actual),
	}, nil
}
