package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"aqi-platform/internal/aqi"
	"aqi-platform/internal/features"
	"aqi-platform/internal/model"
	"aqi-platform/internal/models"
	"aqi-platform/internal/repository"
	"aqi-platform/pkg/logging"
	"aqi-platform/pkg/metrics"
)

// InstantRequest is one live sensor reading to score. When Timestamp is set
// the calendar fields are derived from it and Input.Calendar is ignored.
type InstantRequest struct {
	SensorID  int64
	Input     features.InstantInput
	Timestamp *time.Time
}

// Prediction is the instant model output for one reading
type Prediction struct {
	PredictedAQI float64 `json:"predicted_AQI"`
	Category     string  `json:"category"`
	Seq          int64   `json:"-"`
}

// Forecast is the next-period estimate for one sensor
type Forecast struct {
	SensorID    int64   `json:"sensor_id"`
	NextHourAQI float64 `json:"next_hour_AQI"`
	Category    string  `json:"category"`
}

// PredictionService runs both models against live sensor data
type PredictionService struct {
	repo    repository.Repository
	models  *model.Handle
	logger  *logging.StructuredLogger
	metrics *metrics.Collector

	locks sync.Map // sensor id -> *sync.Mutex
}

// NewPredictionService creates a new prediction service
func NewPredictionService(repo repository.Repository, handle *model.Handle, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *PredictionService {
	return &PredictionService{
		repo:    repo,
		models:  handle,
		logger:  logger,
		metrics: metricsCollector,
	}
}

func (s *PredictionService) sensorLock(sensorID int64) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(sensorID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// PredictInstant scores a reading with the instant model and appends it to
// the sensor's history. Inserts for one sensor are serialized.
func (s *PredictionService) PredictInstant(ctx context.Context, req InstantRequest) (*Prediction, error) {
	timer := s.metrics.NewTimer(s.metrics.PredictionDuration.WithLabelValues(string(model.KindInstant)))
	defer timer.ObserveDuration()

	in := req.Input
	if req.Timestamp != nil {
		in.Calendar = features.CalendarFromTime(*req.Timestamp)
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	value, err := s.models.PredictInstant(features.InstantVector(in))
	if err != nil {
		return nil, fmt.Errorf("instant prediction failed: %w", err)
	}
	category := aqi.Category(value)

	reading := &models.SensorReading{
		SensorID:     req.SensorID,
		PM25:         in.Pollutants[0],
		PM10:         in.Pollutants[1],
		NO2:          in.Pollutants[2],
		CO:           in.Pollutants[3],
		SO2:          in.Pollutants[4],
		O3:           in.Pollutants[5],
		NH3:          in.Pollutants[6],
		Hour:         in.Calendar.Hour,
		Day:          in.Calendar.Day,
		Month:        in.Calendar.Month,
		Weekday:      in.Calendar.Weekday,
		PredictedAQI: value,
		Category:     category,
	}
	if req.Timestamp != nil {
		reading.Timestamp = *req.Timestamp
	}

	mu := s.sensorLock(req.SensorID)
	mu.Lock()
	err = s.repo.InsertReading(ctx, reading)
	mu.Unlock()
	if err != nil {
		return nil, err
	}

	s.metrics.RecordPrediction(string(model.KindInstant), category)
	s.logger.Debug(ctx, "[PREDICT_INSTANT] Reading scored", logging.Fields{
		"sensor_id":     req.SensorID,
		"seq":           reading.Seq,
		"predicted_aqi": value,
		"category":      category,
	})

	return &Prediction{PredictedAQI: value, Category: category, Seq: reading.Seq}, nil
}

// PredictForecast estimates the sensor's next AQI from its last six
// predictions. Fewer than six returns features.ErrInsufficientHistory.
func (s *PredictionService) PredictForecast(ctx context.Context, sensorID int64) (*Forecast, error) {
	timer := s.metrics.NewTimer(s.metrics.PredictionDuration.WithLabelValues(string(model.KindForecast)))
	defer timer.ObserveDuration()

	if _, err := s.repo.GetSensor(ctx, sensorID); err != nil {
		return nil, err
	}

	history, err := s.repo.LastPredictions(ctx, sensorID, features.HistoryWindow)
	if err != nil {
		return nil, err
	}

	vector, err := features.ForecastVector(history)
	if err != nil {
		if errors.Is(err, features.ErrInsufficientHistory) {
			s.metrics.InsufficientHistoryTotal.Inc()
			s.logger.Debug(ctx, "[PREDICT_FORECAST] Not enough history", logging.Fields{
				"sensor_id": sensorID,
				"have":      len(history),
			})
		}
		return nil, err
	}

	value, err := s.models.PredictForecast(vector)
	if err != nil {
		return nil, fmt.Errorf("forecast failed: %w", err)
	}
	category := aqi.Category(value)
	s.metrics.RecordPrediction(string(model.KindForecast), category)

	return &Forecast{
		SensorID:    sensorID,
		NextHourAQI: math.Round(value*100) / 100,
		Category:    category,
	}, nil
}
