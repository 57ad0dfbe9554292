package services

import (
	"context"
	"fmt"
	"time"

	"aqi-platform/internal/features"
	"aqi-platform/internal/model"
	"aqi-platform/internal/models"
	"aqi-platform/internal/pipeline"
	"aqi-platform/pkg/logging"
	"aqi-platform/pkg/metrics"
)

// TrainingConfig holds the split and boosting settings for one training run
type TrainingConfig struct {
	TestFraction float64
	Seed         int64
	Params       model.Params
}

// TrainingService fits both AQI models on the processed dataset
type TrainingService struct {
	store   *model.Store
	config  TrainingConfig
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
	now     func() time.Time
}

// TrainedModel summarizes one saved artifact
type TrainedModel struct {
	Artifact *model.Artifact
	Path     string
}

// TrainingResult contains both trained models of a run
type TrainingResult struct {
	InputFile string
	Rows      int
	Instant   TrainedModel
	Forecast  TrainedModel
	Duration  time.Duration
}

// NewTrainingService creates a new training service
func NewTrainingService(store *model.Store, cfg TrainingConfig, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *TrainingService {
	return &TrainingService{
		store:   store,
		config:  cfg,
		logger:  logger,
		metrics: metricsCollector,
		now:     time.Now,
	}
}

// Run trains the instant and forecast models from the processed file at path
// and saves both artifacts. Nothing is saved if either model fails to fit.
func (s *TrainingService) Run(ctx context.Context, path string) (*TrainingResult, error) {
	startTime := time.Now()

	s.logger.Info(ctx, "[TRAINING_START] Loading processed dataset", logging.Fields{
		"input":         path,
		"test_fraction": s.config.TestFraction,
		"seed":          s.config.Seed,
		"stage":         "INITIALIZATION",
	})

	rows, stats, err := pipeline.ReadProcessedFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load processed dataset: %w", err)
	}
	if dropped := stats.Input - stats.Output; dropped > 0 {
		s.logger.Warn(ctx, "[TRAINING_DATA] Processed dataset contained implausible rows", logging.Fields{
			"dropped": dropped,
			"stage":   "LOAD",
		})
	}

	instant, err := s.TrainInstant(ctx, rows)
	if err != nil {
		return nil, err
	}
	forecast, err := s.TrainForecast(ctx, rows)
	if err != nil {
		return nil, err
	}

	instantPath, err := s.store.Save(instant)
	if err != nil {
		return nil, fmt.Errorf("failed to save instant model: %w", err)
	}
	forecastPath, err := s.store.Save(forecast)
	if err != nil {
		return nil, fmt.Errorf("failed to save forecast model: %w", err)
	}

	result := &TrainingResult{
		InputFile: path,
		Rows:      len(rows),
		Instant:   TrainedModel{Artifact: instant, Path: instantPath},
		Forecast:  TrainedModel{Artifact: forecast, Path: forecastPath},
		Duration:  time.Since(startTime),
	}

	s.logger.Info(ctx, "[TRAINING_COMPLETE] Models saved", logging.Fields{
		"instant_version":  result.Instant.Artifact.Version,
		"forecast_version": result.Forecast.Artifact.Version,
		"model_dir":        s.store.Dir(),
		"duration_seconds": result.Duration.Seconds(),
		"stage":            "COMPLETE",
	})
	return result, nil
}

// TrainInstant fits the same-hour model on a seeded random split of rows
func (s *TrainingService) TrainInstant(ctx context.Context, rows []models.CleanReading) (*model.Artifact, error) {
	X := make([][]float64, len(rows))
	y := make([]float64, len(rows))
	for i := range rows {
		X[i] = features.InstantVector(features.InstantInputFromReading(&rows[i]))
		y[i] = rows[i].Value(models.AQI)
	}

	split := pipeline.SplitRandom(len(rows), s.config.TestFraction, s.config.Seed)
	return s.fit(ctx, model.KindInstant, features.InstantFeatureNames, X, y, split)
}

// TrainForecast fits the next-period model on lagged samples. The split is
// positional so the test rows are the trailing samples of the sorted sequence.
func (s *TrainingService) TrainForecast(ctx context.Context, rows []models.CleanReading) (*model.Artifact, error) {
	samples, err := pipeline.BuildLagSamples(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to build lag samples: %w", err)
	}

	X := make([][]float64, len(samples))
	y := make([]float64, len(samples))
	for i := range samples {
		X[i] = features.ForecastVectorFromSample(&samples[i])
		y[i] = samples[i].Value(models.AQI)
	}

	split := pipeline.SplitPositional(len(samples), s.config.TestFraction)
	return s.fit(ctx, model.KindForecast, features.ForecastFeatureNames, X, y, split)
}

func (s *TrainingService) fit(ctx context.Context, kind model.Kind, names []string, X [][]float64, y []float64, split pipeline.Split) (*model.Artifact, error) {
	label := string(kind)
	if len(split.Train) == 0 {
		return nil, fmt.Errorf("%s model: %w", kind, model.ErrEmptyTrainingSet)
	}

	trainX, trainY := gather(X, y, split.Train)
	testX, testY := gather(X, y, split.Test)
	s.metrics.TrainingSamplesTotal.WithLabelValues(label, "train").Set(float64(len(trainX)))
	s.metrics.TrainingSamplesTotal.WithLabelValues(label, "test").Set(float64(len(testX)))

	s.logger.Info(ctx, "[TRAINING_FIT] Fitting model", logging.Fields{
		"model":      label,
		"train_rows": len(trainX),
		"test_rows":  len(testX),
		"stage":      "FIT",
	})

	timer := s.metrics.NewTimer(s.metrics.TrainingDuration.WithLabelValues(label))
	reg := model.NewRegressor(s.config.Params)
	if err := reg.Fit(trainX, trainY); err != nil {
		return nil, fmt.Errorf("%s model: %w", kind, err)
	}
	elapsed := timer.ObserveDuration()

	pred, err := reg.PredictBatch(testX)
	if err != nil {
		return nil, fmt.Errorf("%s model evaluation: %w", kind, err)
	}
	evaluation, err := model.Evaluate(pred, testY)
	if err != nil {
		return nil, fmt.Errorf("%s model evaluation: %w", kind, err)
	}
	evaluation.TrainSize = len(trainX)

	s.metrics.RecordModelEvaluation(label, evaluation.RMSE, evaluation.R2)

	importance := make(logging.Fields, len(names))
	for i, name := range names {
		importance[name] = reg.Importance[i]
	}
	s.logger.Info(ctx, "[TRAINING_EVAL] Model evaluated on held-out rows", logging.Fields{
		"model":             label,
		"rmse":              evaluation.RMSE,
		"r2":                evaluation.R2,
		"category_accuracy": evaluation.CategoryAccuracy,
		"trees":             len(reg.Trees),
		"fit_seconds":       elapsed.Seconds(),
		"importance":        importance,
		"stage":             "EVALUATE",
	})

	return model.NewArtifact(kind, names, reg, evaluation, s.now()), nil
}

func gather(X [][]float64, y []float64, idx []int) ([][]float64, []float64) {
	gx := make([][]float64, len(idx))
	gy := make([]float64, len(idx))
	for i, j := range idx {
		gx[i] = X[j]
		gy[i] = y[j]
	}
	return gx, gy
}
