package repository

import (
	"context"
	"fmt"

	"aqi-platform/internal/models"
)

// Repository provides data access for the serving tier.
// Readings are append-only and "last N" queries order by insertion sequence.
type Repository interface {
	// Admin operations
	CreateAdmin(ctx context.Context, admin *models.Admin) error
	GetAdminByUsername(ctx context.Context, username string) (*models.Admin, error)

	// Region and sensor operations
	ListRegions(ctx context.Context) ([]models.Region, error)
	ListSensors(ctx context.Context) ([]*models.Sensor, error)
	ListActiveSensors(ctx context.Context) ([]*models.Sensor, error)
	GetSensor(ctx context.Context, sensorID int64) (*models.Sensor, error)
	CreateSensor(ctx context.Context, sensor *models.Sensor) error
	SetSensorActive(ctx context.Context, sensorID int64, active bool) error
	DeleteSensor(ctx context.Context, sensorID int64) error

	// Reading operations
	InsertReading(ctx context.Context, reading *models.SensorReading) error
	LastPredictions(ctx context.Context, sensorID int64, n int) ([]float64, error)

	// Region queries
	LatestPerSensor(ctx context.Context) ([]models.LatestReading, error)
	RegionHistory(ctx context.Context, regionID int64, limit int) ([]models.HistoryPoint, error)
	TopPolluted(ctx context.Context, limit int) ([]models.RegionSummary, error)

	// Utility operations
	HealthCheck(ctx context.Context) error
}

// NotFoundError represents a resource not found error
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *NotFoundError) IsTransient() bool {
	return false
}

// ConflictError is returned when a unique field is already taken
type ConflictError struct {
	Resource string
	Field    string
	Value    string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s with %s %q already exists", e.Resource, e.Field, e.Value)
}

func (e *ConflictError) IsTransient() bool {
	return false
}

func notFound(resource string, id int64) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: fmt.Sprint(id)}
}
