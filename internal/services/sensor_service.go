package services

import (
	"context"
	"fmt"
	"math"
	"strings"

	"aqi-platform/internal/models"
	"aqi-platform/internal/repository"
	"aqi-platform/pkg/logging"
	"aqi-platform/pkg/metrics"
)

// CreateSensorRequest holds the fields an admin supplies for a new sensor
type CreateSensorRequest struct {
	SensorCode string  `json:"sensor_code"`
	RegionID   int64   `json:"region_id"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	Radius     int     `json:"radius"`
}

// Validate checks the request fields
func (r *CreateSensorRequest) Validate() error {
	r.SensorCode = strings.TrimSpace(r.SensorCode)
	switch {
	case r.SensorCode == "":
		return &models.ValidationError{Field: "sensor_code", Message: "sensor_code is required"}
	case r.RegionID <= 0:
		return &models.ValidationError{Field: "region_id", Value: fmt.Sprint(r.RegionID), Message: "region_id must be positive"}
	case math.IsNaN(r.Latitude) || r.Latitude < -90 || r.Latitude > 90:
		return &models.ValidationError{Field: "latitude", Value: fmt.Sprint(r.Latitude), Message: "latitude must be between -90 and 90"}
	case math.IsNaN(r.Longitude) || r.Longitude < -180 || r.Longitude > 180:
		return &models.ValidationError{Field: "longitude", Value: fmt.Sprint(r.Longitude), Message: "longitude must be between -180 and 180"}
	case r.Radius <= 0:
		return &models.ValidationError{Field: "radius", Value: fmt.Sprint(r.Radius), Message: "radius must be positive"}
	}
	return nil
}

// SensorService manages the sensor registry on behalf of admins
type SensorService struct {
	repo    repository.Repository
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewSensorService creates a new sensor service
func NewSensorService(repo repository.Repository, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *SensorService {
	return &SensorService{
		repo:    repo,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// List returns every sensor ordered by id
func (s *SensorService) List(ctx context.Context) ([]*models.Sensor, error) {
	sensors, err := s.repo.ListSensors(ctx)
	if err != nil {
		return nil, err
	}
	if sensors == nil {
		sensors = []*models.Sensor{}
	}
	return sensors, nil
}

// Create registers a new sensor. New sensors start active.
func (s *SensorService) Create(ctx context.Context, req CreateSensorRequest) (*models.Sensor, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	sensor := &models.Sensor{
		SensorCode: req.SensorCode,
		RegionID:   req.RegionID,
		Latitude:   req.Latitude,
		Longitude:  req.Longitude,
		Radius:     req.Radius,
		IsActive:   true,
	}
	if err := s.repo.CreateSensor(ctx, sensor); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "[SENSOR_CREATED] Sensor registered", logging.Fields{
		"sensor_id":   sensor.ID,
		"sensor_code": sensor.SensorCode,
		"region_id":   sensor.RegionID,
	})
	return sensor, nil
}

// SetActive switches a sensor on or off
func (s *SensorService) SetActive(ctx context.Context, sensorID int64, active bool) error {
	if err := s.repo.SetSensorActive(ctx, sensorID, active); err != nil {
		return err
	}
	s.logger.Info(ctx, "[SENSOR_STATUS] Sensor status updated", logging.Fields{
		"sensor_id": sensorID,
		"is_active": active,
	})
	return nil
}

// Delete removes a sensor and its readings
func (s *SensorService) Delete(ctx context.Context, sensorID int64) error {
	if err := s.repo.DeleteSensor(ctx, sensorID); err != nil {
		return err
	}
	s.logger.Info(ctx, "[SENSOR_DELETED] Sensor removed", logging.Fields{
		"sensor_id": sensorID,
	})
	return nil
}
