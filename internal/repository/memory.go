package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"aqi-platform/internal/models"
)

// memoryRepository keeps everything in process memory. It backs tests and
// single-process demos; contents are lost on restart.
type memoryRepository struct {
	mu sync.RWMutex

	regions  map[int64]models.Region
	sensors  map[int64]*models.Sensor
	readings map[int64][]models.SensorReading // per sensor, ascending seq
	admins   map[string]*models.Admin

	seq      atomic.Int64
	sensorID int64
	adminID  int64
	now      func() time.Time
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() Repository {
	return newMemoryRepository()
}

// NewSeededMemoryRepository creates an in-memory repository holding SeedCatalog
func NewSeededMemoryRepository() Repository {
	r := newMemoryRepository()
	regions, sensors := SeedCatalog()
	for _, region := range regions {
		r.regions[region.ID] = region
	}
	for _, s := range sensors {
		r.sensors[s.ID] = s
		if s.ID > r.sensorID {
			r.sensorID = s.ID
		}
	}
	return r
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{
		regions:  make(map[int64]models.Region),
		sensors:  make(map[int64]*models.Sensor),
		readings: make(map[int64][]models.SensorReading),
		admins:   make(map[string]*models.Admin),
		now:      time.Now,
	}
}

func (r *memoryRepository) CreateAdmin(ctx context.Context, admin *models.Admin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.admins[admin.Username]; ok {
		return &ConflictError{Resource: "admin", Field: "username", Value: admin.Username}
	}
	for _, a := range r.admins {
		if strings.EqualFold(a.Email, admin.Email) {
			return &ConflictError{Resource: "admin", Field: "email", Value: admin.Email}
		}
	}

	r.adminID++
	admin.ID = r.adminID
	admin.CreatedAt = r.now().UTC()
	stored := *admin
	r.admins[admin.Username] = &stored
	return nil
}

func (r *memoryRepository) GetAdminByUsername(ctx context.Context, username string) (*models.Admin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.admins[username]
	if !ok {
		return nil, &NotFoundError{Resource: "admin", ID: username}
	}
	out := *a
	return &out, nil
}

func (r *memoryRepository) ListRegions(ctx context.Context) ([]models.Region, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Region, 0, len(r.regions))
	for _, region := range r.regions {
		out = append(out, region)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memoryRepository) ListSensors(ctx context.Context) ([]*models.Sensor, error) {
	return r.listSensors(func(*models.Sensor) bool { return true }), nil
}

func (r *memoryRepository) ListActiveSensors(ctx context.Context) ([]*models.Sensor, error) {
	return r.listSensors(func(s *models.Sensor) bool { return s.IsActive }), nil
}

func (r *memoryRepository) listSensors(keep func(*models.Sensor) bool) []*models.Sensor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.Sensor, 0, len(r.sensors))
	for _, s := range r.sensors {
		if keep(s) {
			c := *s
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *memoryRepository) GetSensor(ctx context.Context, sensorID int64) (*models.Sensor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sensors[sensorID]
	if !ok {
		return nil, notFound("sensor", sensorID)
	}
	c := *s
	return &c, nil
}

func (r *memoryRepository) CreateSensor(ctx context.Context, sensor *models.Sensor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.regions[sensor.RegionID]; !ok {
		return notFound("region", sensor.RegionID)
	}
	for _, s := range r.sensors {
		if s.SensorCode == sensor.SensorCode {
			return &ConflictError{Resource: "sensor", Field: "sensor_code", Value: sensor.SensorCode}
		}
	}

	r.sensorID++
	sensor.ID = r.sensorID
	c := *sensor
	r.sensors[sensor.ID] = &c
	return nil
}

func (r *memoryRepository) SetSensorActive(ctx context.Context, sensorID int64, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sensors[sensorID]
	if !ok {
		return notFound("sensor", sensorID)
	}
	s.IsActive = active
	return nil
}

// DeleteSensor removes the sensor and its readings
func (r *memoryRepository) DeleteSensor(ctx context.Context, sensorID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sensors[sensorID]; !ok {
		return notFound("sensor", sensorID)
	}
	delete(r.sensors, sensorID)
	delete(r.readings, sensorID)
	return nil
}

func (r *memoryRepository) InsertReading(ctx context.Context, reading *models.SensorReading) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sensors[reading.SensorID]; !ok {
		return notFound("sensor", reading.SensorID)
	}
	reading.Seq = r.seq.Add(1)
	if reading.Timestamp.IsZero() {
		reading.Timestamp = r.now().UTC()
	}
	r.readings[reading.SensorID] = append(r.readings[reading.SensorID], *reading)
	return nil
}

func (r *memoryRepository) LastPredictions(ctx context.Context, sensorID int64, n int) ([]float64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rs := r.readings[sensorID]
	if n < 0 {
		n = 0
	}
	if n > len(rs) {
		n = len(rs)
	}
	out := make([]float64, 0, n)
	for _, reading := range rs[len(rs)-n:] {
		out = append(out, reading.PredictedAQI)
	}
	return out, nil
}

func (r *memoryRepository) LatestPerSensor(ctx context.Context) ([]models.LatestReading, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.LatestReading, 0, len(r.readings))
	for sensorID, rs := range r.readings {
		if len(rs) == 0 {
			continue
		}
		s := r.sensors[sensorID]
		last := rs[len(rs)-1]
		out = append(out, models.LatestReading{
			Region:    r.regions[s.RegionID].Name,
			SensorID:  sensorID,
			AQI:       last.PredictedAQI,
			Category:  last.Category,
			Timestamp: last.Timestamp,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AQI != out[j].AQI {
			return out[i].AQI > out[j].AQI
		}
		return out[i].SensorID < out[j].SensorID
	})
	return out, nil
}

func (r *memoryRepository) RegionHistory(ctx context.Context, regionID int64, limit int) ([]models.HistoryPoint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.regions[regionID]; !ok {
		return nil, notFound("region", regionID)
	}

	var merged []models.SensorReading
	for sensorID, s := range r.sensors {
		if s.RegionID != regionID {
			continue
		}
		rs := r.readings[sensorID]
		if len(rs) > limit {
			rs = rs[len(rs)-limit:]
		}
		merged = append(merged, rs...)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Seq > merged[j].Seq })
	if len(merged) > limit {
		merged = merged[:limit]
	}

	out := make([]models.HistoryPoint, len(merged))
	for i, reading := range merged {
		out[i] = models.HistoryPoint{Timestamp: reading.Timestamp, AQI: reading.PredictedAQI}
	}
	return out, nil
}

// TopPolluted averages each region's latest per-sensor AQI. Category is left
// for the caller.
func (r *memoryRepository) TopPolluted(ctx context.Context, limit int) ([]models.RegionSummary, error) {
	latest, err := r.LatestPerSensor(ctx)
	if err != nil {
		return nil, err
	}

	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, l := range latest {
		sums[l.Region] += l.AQI
		counts[l.Region]++
	}

	out := make([]models.RegionSummary, 0, len(sums))
	for region, sum := range sums {
		out = append(out, models.RegionSummary{Region: region, AQI: sum / float64(counts[region])})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AQI != out[j].AQI {
			return out[i].AQI > out[j].AQI
		}
		return out[i].Region < out[j].Region
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memoryRepository) HealthCheck(ctx context.Context) error {
	return ctx.Err()
}
