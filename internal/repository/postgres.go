package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"aqi-platform/internal/models"
	"aqi-platform/pkg/database"
	"aqi-platform/pkg/logging"
	"aqi-platform/pkg/metrics"
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// postgresRepository implements Repository on PostgreSQL
type postgresRepository struct {
	db      *database.PostgresDB
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(db *database.PostgresDB, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) Repository {
	return &postgresRepository{
		db:      db,
		logger:  logger,
		metrics: metricsCollector,
	}
}

func pqCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

// CreateAdmin inserts an admin and fills in its id and creation time
func (r *postgresRepository) CreateAdmin(ctx context.Context, admin *models.Admin) error {
	query := `
		INSERT INTO admins (username, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	err := r.db.DB().QueryRowxContext(ctx, query,
		admin.Username,
		admin.Email,
		admin.PasswordHash,
	).Scan(&admin.ID, &admin.CreatedAt)

	if pqCode(err) == pqUniqueViolation {
		field, value := "username", admin.Username
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && strings.Contains(pqErr.Constraint, "email") {
			field, value = "email", admin.Email
		}
		return &ConflictError{Resource: "admin", Field: field, Value: value}
	}
	if err != nil {
		return fmt.Errorf("failed to create admin: %w", err)
	}

	r.logger.Info(ctx, "[REPO_CREATE_ADMIN] Admin created", logging.Fields{
		"admin_id": admin.ID,
		"username": admin.Username,
	})
	return nil
}

// GetAdminByUsername retrieves an admin by login name
func (r *postgresRepository) GetAdminByUsername(ctx context.Context, username string) (*models.Admin, error) {
	query := `
		SELECT id, username, email, password_hash, created_at
		FROM admins
		WHERE username = $1
	`

	var admin models.Admin
	err := r.db.GetContext(ctx, "get_admin", &admin, query, username)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{Resource: "admin", ID: username}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get admin: %w", err)
	}
	return &admin, nil
}

// ListRegions retrieves every region ordered by id
func (r *postgresRepository) ListRegions(ctx context.Context) ([]models.Region, error) {
	var regions []models.Region
	err := r.db.SelectContext(ctx, "list_regions", &regions, `SELECT id, name FROM regions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list regions: %w", err)
	}
	return regions, nil
}

const sensorColumns = `id, sensor_code, region_id, latitude, longitude, radius, is_active`

// ListSensors retrieves all sensors ordered by id
func (r *postgresRepository) ListSensors(ctx context.Context) ([]*models.Sensor, error) {
	var sensors []*models.Sensor
	err := r.db.SelectContext(ctx, "list_sensors", &sensors,
		`SELECT `+sensorColumns+` FROM sensors ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sensors: %w", err)
	}
	return sensors, nil
}

// ListActiveSensors retrieves the sensors currently reporting
func (r *postgresRepository) ListActiveSensors(ctx context.Context) ([]*models.Sensor, error) {
	var sensors []*models.Sensor
	err := r.db.SelectContext(ctx, "list_active_sensors", &sensors,
		`SELECT `+sensorColumns+` FROM sensors WHERE is_active = TRUE ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list active sensors: %w", err)
	}
	return sensors, nil
}

// GetSensor retrieves a sensor by id
func (r *postgresRepository) GetSensor(ctx context.Context, sensorID int64) (*models.Sensor, error) {
	var sensor models.Sensor
	err := r.db.GetContext(ctx, "get_sensor", &sensor,
		`SELECT `+sensorColumns+` FROM sensors WHERE id = $1`, sensorID)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("sensor", sensorID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sensor: %w", err)
	}
	return &sensor, nil
}

// CreateSensor inserts a sensor and fills in its id
func (r *postgresRepository) CreateSensor(ctx context.Context, sensor *models.Sensor) error {
	query := `
		INSERT INTO sensors (sensor_code, region_id, latitude, longitude, radius, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err := r.db.DB().QueryRowxContext(ctx, query,
		sensor.SensorCode,
		sensor.RegionID,
		sensor.Latitude,
		sensor.Longitude,
		sensor.Radius,
		sensor.IsActive,
	).Scan(&sensor.ID)

	switch pqCode(err) {
	case pqForeignKeyViolation:
		return notFound("region", sensor.RegionID)
	case pqUniqueViolation:
		return &ConflictError{Resource: "sensor", Field: "sensor_code", Value: sensor.SensorCode}
	}
	if err != nil {
		return fmt.Errorf("failed to create sensor: %w", err)
	}

	r.logger.Info(ctx, "[REPO_CREATE_SENSOR] Sensor created", logging.Fields{
		"sensor_id":   sensor.ID,
		"sensor_code": sensor.SensorCode,
		"region_id":   sensor.RegionID,
	})
	return nil
}

// SetSensorActive switches a sensor on or off
func (r *postgresRepository) SetSensorActive(ctx context.Context, sensorID int64, active bool) error {
	result, err := r.db.ExecContext(ctx, "update_sensor_status",
		`UPDATE sensors SET is_active = $1 WHERE id = $2`, active, sensorID)
	if err != nil {
		return fmt.Errorf("failed to update sensor status: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return notFound("sensor", sensorID)
	}
	return nil
}

// DeleteSensor removes a sensor and its readings in one transaction
func (r *postgresRepository) DeleteSensor(ctx context.Context, sensorID int64) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM sensor_readings WHERE sensor_id = $1`, sensorID); err != nil {
			return fmt.Errorf("failed to delete sensor readings: %w", err)
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM sensors WHERE id = $1`, sensorID)
		if err != nil {
			return fmt.Errorf("failed to delete sensor: %w", err)
		}
		if n, err := result.RowsAffected(); err == nil && n == 0 {
			return notFound("sensor", sensorID)
		}
		return nil
	})
}

// InsertReading appends a reading and fills in its sequence number and timestamp
func (r *postgresRepository) InsertReading(ctx context.Context, reading *models.SensorReading) error {
	query := `
		INSERT INTO sensor_readings (
			sensor_id, pm25, pm10, no2, co, so2, o3, nh3,
			hour, day, month, weekday,
			predicted_aqi, category, timestamp
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, COALESCE($15::timestamptz, NOW()))
		RETURNING seq, timestamp
	`

	var ts sql.NullTime
	if !reading.Timestamp.IsZero() {
		ts = sql.NullTime{Time: reading.Timestamp, Valid: true}
	}

	timer := r.metrics.NewTimer(r.metrics.DBQueryDuration.WithLabelValues("insert_reading"))
	err := r.db.DB().QueryRowxContext(ctx, query,
		reading.SensorID,
		reading.PM25, reading.PM10, reading.NO2, reading.CO, reading.SO2, reading.O3, reading.NH3,
		reading.Hour, reading.Day, reading.Month, reading.Weekday,
		reading.PredictedAQI,
		reading.Category,
		ts,
	).Scan(&reading.Seq, &reading.Timestamp)
	timer.ObserveDuration()

	if pqCode(err) == pqForeignKeyViolation {
		return notFound("sensor", reading.SensorID)
	}
	if err != nil {
		r.metrics.RecordDBError("insert_error")
		return fmt.Errorf("failed to insert reading: %w", err)
	}
	return nil
}

// LastPredictions returns up to n of the sensor's most recent predicted AQI
// values, oldest first
func (r *postgresRepository) LastPredictions(ctx context.Context, sensorID int64, n int) ([]float64, error) {
	query := `
		SELECT predicted_aqi
		FROM sensor_readings
		WHERE sensor_id = $1
		ORDER BY seq DESC
		LIMIT $2
	`

	var values []float64
	if err := r.db.SelectContext(ctx, "last_predictions", &values, query, sensorID, n); err != nil {
		return nil, fmt.Errorf("failed to get last predictions: %w", err)
	}
	for i, j := 0, len(values)-1; i < j; i, j = i+1, j-1 {
		values[i], values[j] = values[j], values[i]
	}
	return values, nil
}

// latestPerSensor selects each sensor's newest reading with its region name
const latestPerSensor = `
	SELECT r.name AS region, s.id AS sensor_id, sr.predicted_aqi AS aqi, sr.category, sr.timestamp
	FROM sensors s
	JOIN regions r ON r.id = s.region_id
	JOIN LATERAL (
		SELECT predicted_aqi, category, timestamp
		FROM sensor_readings
		WHERE sensor_id = s.id
		ORDER BY seq DESC
		LIMIT 1
	) sr ON TRUE
`

// LatestPerSensor returns the newest reading of every sensor, highest AQI first
func (r *postgresRepository) LatestPerSensor(ctx context.Context) ([]models.LatestReading, error) {
	var rows []models.LatestReading
	err := r.db.SelectContext(ctx, "latest_per_sensor", &rows, latestPerSensor+` ORDER BY aqi DESC, sensor_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest readings: %w", err)
	}
	return rows, nil
}

// RegionHistory returns the region's most recent readings, newest first
func (r *postgresRepository) RegionHistory(ctx context.Context, regionID int64, limit int) ([]models.HistoryPoint, error) {
	var exists bool
	if err := r.db.GetContext(ctx, "region_exists", &exists,
		`SELECT EXISTS (SELECT 1 FROM regions WHERE id = $1)`, regionID); err != nil {
		return nil, fmt.Errorf("failed to check region: %w", err)
	}
	if !exists {
		return nil, notFound("region", regionID)
	}

	query := `
		SELECT sr.timestamp, sr.predicted_aqi AS aqi
		FROM sensor_readings sr
		JOIN sensors s ON s.id = sr.sensor_id
		WHERE s.region_id = $1
		ORDER BY sr.seq DESC
		LIMIT $2
	`

	var points []models.HistoryPoint
	if err := r.db.SelectContext(ctx, "region_history", &points, query, regionID, limit); err != nil {
		return nil, fmt.Errorf("failed to get region history: %w", err)
	}
	return points, nil
}

// TopPolluted averages each region's latest per-sensor AQI, highest first
func (r *postgresRepository) TopPolluted(ctx context.Context, limit int) ([]models.RegionSummary, error) {
	query := `
		WITH latest AS (` + latestPerSensor + `)
		SELECT region, AVG(aqi) AS aqi
		FROM latest
		GROUP BY region
		ORDER BY aqi DESC, region
		LIMIT $1
	`

	var summaries []models.RegionSummary
	if err := r.db.SelectContext(ctx, "top_polluted", &summaries, query, limit); err != nil {
		return nil, fmt.Errorf("failed to get top polluted regions: %w", err)
	}
	return summaries, nil
}

// HealthCheck performs a repository health check
func (r *postgresRepository) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}
