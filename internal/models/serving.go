package models

import (
	"time"
)

// Region is a named area grouping sensors
type Region struct {
	ID   int64  `json:"region_id" db:"id"`
	Name string `json:"name" db:"name"`
}

// Sensor represents a deployed monitoring device
type Sensor struct {
	ID         int64   `json:"sensor_id" db:"id"`
	SensorCode string  `json:"sensor_code" db:"sensor_code"`
	RegionID   int64   `json:"region_id" db:"region_id"`
	Latitude   float64 `json:"latitude" db:"latitude"`
	Longitude  float64 `json:"longitude" db:"longitude"`
	Radius     int     `json:"radius" db:"radius"`
	IsActive   bool    `json:"is_active" db:"is_active"`
}

// SensorReading is one persisted prediction with the inputs that produced it.
// Seq is assigned by the store and is the only ordering key for history queries.
type SensorReading struct {
	Seq          int64     `json:"seq" db:"seq"`
	SensorID     int64     `json:"sensor_id" db:"sensor_id"`
	PM25         float64   `json:"pm25" db:"pm25"`
	PM10         float64   `json:"pm10" db:"pm10"`
	NO2          float64   `json:"no2" db:"no2"`
	CO           float64   `json:"co" db:"co"`
	SO2          float64   `json:"so2" db:"so2"`
	O3           float64   `json:"o3" db:"o3"`
	NH3          float64   `json:"nh3" db:"nh3"`
	Hour         int       `json:"hour" db:"hour"`
	Day          int       `json:"day" db:"day"`
	Month        int       `json:"month" db:"month"`
	Weekday      int       `json:"weekday" db:"weekday"`
	PredictedAQI float64   `json:"predicted_aqi" db:"predicted_aqi"`
	Category     string    `json:"category" db:"category"`
	Timestamp    time.Time `json:"timestamp" db:"timestamp"`
}

// Admin is an operator allowed to manage sensors
type Admin struct {
	ID           int64     `json:"admin_id" db:"id"`
	Username     string    `json:"username" db:"username"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// LatestReading is the most recent prediction of one sensor with its region
type LatestReading struct {
	Region    string    `json:"region" db:"region"`
	SensorID  int64     `json:"sensor_id" db:"sensor_id"`
	AQI       float64   `json:"aqi" db:"aqi"`
	Category  string    `json:"category" db:"category"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
}

// HistoryPoint is one entry of a region's prediction history
type HistoryPoint struct {
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
	AQI       float64   `json:"aqi" db:"aqi"`
}

// RegionSummary is the average latest AQI across a region's sensors
type RegionSummary struct {
	Region   string  `json:"region" db:"region"`
	AQI      float64 `json:"aqi" db:"aqi"`
	Category string  `json:"category" db:"-"`
}
