package model

import (
	"fmt"

	"aqi-platform/internal/features"
)

// Handle is the pair of models a server runs with. It is built once at
// startup and never mutated, so it is safe to share between requests.
type Handle struct {
	instant  *Artifact
	forecast *Artifact
}

// NewHandle checks both artifacts against the feature contract
func NewHandle(instant, forecast *Artifact) (*Handle, error) {
	if err := checkArtifact(instant, KindInstant, features.InstantFeatureNames); err != nil {
		return nil, err
	}
	if err := checkArtifact(forecast, KindForecast, features.ForecastFeatureNames); err != nil {
		return nil, err
	}
	return &Handle{instant: instant, forecast: forecast}, nil
}

// LoadHandle loads the latest instant and forecast artifacts from store
func LoadHandle(store *Store) (*Handle, error) {
	instant, err := store.LoadLatest(KindInstant)
	if err != nil {
		return nil, err
	}
	forecast, err := store.LoadLatest(KindForecast)
	if err != nil {
		return nil, err
	}
	return NewHandle(instant, forecast)
}

func checkArtifact(a *Artifact, kind Kind, names []string) error {
	if a == nil || a.Model == nil {
		return fmt.Errorf("%w: %s", ErrNoArtifact, kind)
	}
	if a.Kind != kind {
		return fmt.Errorf("artifact %s has kind %q, want %q", a.Version, a.Kind, kind)
	}
	if len(a.FeatureNames) != len(names) {
		return fmt.Errorf("%s model %s: %w: has %d features, want %d", kind, a.Version, ErrFeatureCount, len(a.FeatureNames), len(names))
	}
	for i := range names {
		if a.FeatureNames[i] != names[i] {
			return fmt.Errorf("%s model %s: feature %d is %q, want %q", kind, a.Version, i, a.FeatureNames[i], names[i])
		}
	}
	if a.Model.NumFeatures != len(names) {
		return fmt.Errorf("%s model %s: %w: fitted on %d features", kind, a.Version, ErrFeatureCount, a.Model.NumFeatures)
	}
	return nil
}

// PredictInstant runs the instant model on a vector from features.InstantVector
func (h *Handle) PredictInstant(x []float64) (float64, error) {
	return h.instant.Model.Predict(x)
}

// PredictForecast runs the forecast model on a vector from features.ForecastVector
func (h *Handle) PredictForecast(x []float64) (float64, error) {
	return h.forecast.Model.Predict(x)
}

// Instant returns the instant artifact metadata
func (h *Handle) Instant() *Artifact { return h.instant }

// Forecast returns the forecast artifact metadata
func (h *Handle) Forecast() *Artifact { return h.forecast }
