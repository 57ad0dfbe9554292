package simulator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"aqi-platform/internal/features"
	"aqi-platform/internal/models"
	"aqi-platform/pkg/logging"
)

// Catalog supplies the sensors to simulate and their region names.
// repository.Repository satisfies it.
type Catalog interface {
	ListRegions(ctx context.Context) ([]models.Region, error)
	ListActiveSensors(ctx context.Context) ([]*models.Sensor, error)
}

// Config holds the runner settings
type Config struct {
	APIURL   string
	Interval time.Duration
	Timeout  time.Duration
	Seed     int64
}

// Payload is the body posted to /predict
type Payload struct {
	SensorID int64   `json:"sensor_id"`
	PM25     float64 `json:"PM2_5"`
	PM10     float64 `json:"PM10"`
	NO2      float64 `json:"NO2"`
	CO       float64 `json:"CO"`
	SO2      float64 `json:"SO2"`
	O3       float64 `json:"O3"`
	NH3      float64 `json:"NH3"`
	Hour     int     `json:"hour"`
	Day      int     `json:"day"`
	Month    int     `json:"month"`
	Weekday  int     `json:"weekday"`
}

type predictResponse struct {
	PredictedAQI float64 `json:"predicted_AQI"`
	Category     string  `json:"category"`
}

// CycleResult counts the outcome of one pass over the active sensors
type CycleResult struct {
	Sensors int
	Sent    int
	Failed  int
}

// Runner posts one synthetic reading per active sensor every interval
type Runner struct {
	catalog Catalog
	config  Config
	client  *http.Client
	rng     *rand.Rand
	now     func() time.Time
	logger  *logging.StructuredLogger
}

// NewRunner creates a new simulator runner. A zero seed uses the clock.
func NewRunner(catalog Catalog, cfg Config, logger *logging.StructuredLogger) *Runner {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Runner{
		catalog: catalog,
		config:  cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		rng:     rand.New(rand.NewSource(seed)),
		now:     time.Now,
		logger:  logger,
	}
}

// Run executes cycles until ctx is cancelled. A failed cycle is logged and
// retried on the next tick.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	for {
		if _, err := r.RunOnce(ctx); err != nil {
			r.logger.Error(ctx, "[SIMULATOR_CYCLE_ERROR] Cycle failed", logging.Fields{}, err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// RunOnce posts one reading for every active sensor. Per-sensor API failures
// are counted, not returned; only a catalog failure aborts the cycle.
func (r *Runner) RunOnce(ctx context.Context) (CycleResult, error) {
	var result CycleResult

	regions, err := r.catalog.ListRegions(ctx)
	if err != nil {
		return result, fmt.Errorf("list regions: %w", err)
	}
	regionNames := make(map[int64]string, len(regions))
	for _, reg := range regions {
		regionNames[reg.ID] = reg.Name
	}

	sensors, err := r.catalog.ListActiveSensors(ctx)
	if err != nil {
		return result, fmt.Errorf("list active sensors: %w", err)
	}
	result.Sensors = len(sensors)

	for _, s := range sensors {
		if ctx.Err() != nil {
			break
		}
		region := regionNames[s.RegionID]
		level := LevelForRegion(region)
		payload := r.payload(s.ID, level)

		resp, err := r.post(ctx, payload)
		if err != nil {
			result.Failed++
			r.logger.Warn(ctx, "[SIMULATOR_POST_ERROR] Prediction request failed", logging.Fields{
				"sensor_id": s.ID,
				"error":     err.Error(),
			})
			continue
		}
		result.Sent++
		r.logger.Info(ctx, "[SIMULATOR_READING] Reading scored", logging.Fields{
			"sensor_id": s.ID,
			"region":    region,
			"level":     string(level),
			"aqi":       resp.PredictedAQI,
			"category":  resp.Category,
		})
	}

	r.logger.Info(ctx, "[SIMULATOR_CYCLE] Cycle complete", logging.Fields{
		"sensors": result.Sensors,
		"sent":    result.Sent,
		"failed":  result.Failed,
	})
	return result, nil
}

func (r *Runner) payload(sensorID int64, level Level) Payload {
	v := Generate(level, r.rng)
	cal := features.CalendarFromTime(r.now())
	return Payload{
		SensorID: sensorID,
		PM25:     v[0],
		PM10:     v[1],
		NO2:      v[2],
		CO:       v[3],
		SO2:      v[4],
		O3:       v[5],
		NH3:      v[6],
		Hour:     cal.Hour,
		Day:      cal.Day,
		Month:    cal.Month,
		Weekday:  cal.Weekday,
	}
}

func (r *Runner) post(ctx context.Context, payload Payload) (*predictResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.config.APIURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var out predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}
