package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"aqi-platform/internal/models"
	"aqi-platform/internal/services"
	"aqi-platform/pkg/logging"
)

const maxBodyBytes = 1 << 16

// PredictRequest is the body of POST /predict. Calendar fields may be
// omitted when timestamp is given.
type PredictRequest struct {
	SensorID  *int64     `json:"sensor_id"`
	PM25      *float64   `json:"PM2_5"`
	PM10      *float64   `json:"PM10"`
	NO2       *float64   `json:"NO2"`
	CO        *float64   `json:"CO"`
	SO2       *float64   `json:"SO2"`
	O3        *float64   `json:"O3"`
	NH3       *float64   `json:"NH3"`
	Hour      *int       `json:"hour"`
	Day       *int       `json:"day"`
	Month     *int       `json:"month"`
	Weekday   *int       `json:"weekday"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// toInstantRequest checks presence of every required field
func (p *PredictRequest) toInstantRequest() (services.InstantRequest, error) {
	var req services.InstantRequest

	if p.SensorID == nil || *p.SensorID <= 0 {
		return req, &models.ValidationError{Field: "sensor_id", Message: "sensor_id is required and must be positive"}
	}
	req.SensorID = *p.SensorID

	channels := []struct {
		name  string
		value *float64
	}{
		{"PM2_5", p.PM25}, {"PM10", p.PM10}, {"NO2", p.NO2}, {"CO", p.CO},
		{"SO2", p.SO2}, {"O3", p.O3}, {"NH3", p.NH3},
	}
	for i, ch := range channels {
		if ch.value == nil {
			return req, &models.ValidationError{Field: ch.name, Message: ch.name + " is required"}
		}
		req.Input.Pollutants[i] = *ch.value
	}

	if p.Timestamp != nil {
		ts := p.Timestamp.UTC()
		req.Timestamp = &ts
		return req, nil
	}

	calendar := []struct {
		name  string
		value *int
		dest  *int
	}{
		{"hour", p.Hour, &req.Input.Calendar.Hour},
		{"day", p.Day, &req.Input.Calendar.Day},
		{"month", p.Month, &req.Input.Calendar.Month},
		{"weekday", p.Weekday, &req.Input.Calendar.Weekday},
	}
	for _, f := range calendar {
		if f.value == nil {
			return req, &models.ValidationError{Field: f.name, Message: f.name + " is required unless timestamp is set"}
		}
		*f.dest = *f.value
	}
	return req, nil
}

// Predict handles POST /predict
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body PredictRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
		h.metrics.RecordAPIError("bad_request", "/predict")
		h.sendError(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return
	}

	req, err := body.toInstantRequest()
	if err != nil {
		h.sendServiceError(w, r, "[API_PREDICT_ERROR]", err)
		return
	}

	prediction, err := h.predictions.PredictInstant(ctx, req)
	if err != nil {
		h.sendServiceError(w, r, "[API_PREDICT_ERROR]", err)
		return
	}

	h.sendJSON(w, prediction, http.StatusOK)
}

// Forecast handles GET /forecast/{sensor_id}
func (h *Handler) Forecast(w http.ResponseWriter, r *http.Request) {
	sensorID, err := pathID(r, "sensor_id")
	if err != nil {
		h.sendServiceError(w, r, "[API_FORECAST_ERROR]", err)
		return
	}

	forecast, err := h.predictions.PredictForecast(r.Context(), sensorID)
	if err != nil {
		h.sendServiceError(w, r, "[API_FORECAST_ERROR]", err)
		return
	}

	h.sendJSON(w, forecast, http.StatusOK)
}

// Latest handles GET /latest
func (h *Handler) Latest(w http.ResponseWriter, r *http.Request) {
	latest, err := h.regions.Latest(r.Context())
	if err != nil {
		h.sendServiceError(w, r, "[API_LATEST_ERROR]", err)
		return
	}
	h.sendJSON(w, latest, http.StatusOK)
}

// History handles GET /history/{region_id}
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	regionID, err := pathID(r, "region_id")
	if err != nil {
		h.sendServiceError(w, r, "[API_HISTORY_ERROR]", err)
		return
	}

	history, err := h.regions.History(r.Context(), regionID)
	if err != nil {
		h.sendServiceError(w, r, "[API_HISTORY_ERROR]", err)
		return
	}

	h.logger.Debug(r.Context(), "[API_HISTORY] Region history served", logging.Fields{
		"region_id": regionID,
		"points":    len(history),
	})
	h.sendJSON(w, history, http.StatusOK)
}

// TopPolluted handles GET /top-polluted
func (h *Handler) TopPolluted(w http.ResponseWriter, r *http.Request) {
	top, err := h.regions.TopPolluted(r.Context())
	if err != nil {
		h.sendServiceError(w, r, "[API_TOP_POLLUTED_ERROR]", err)
		return
	}
	h.sendJSON(w, top, http.StatusOK)
}

// Regions handles GET /regions
func (h *Handler) Regions(w http.ResponseWriter, r *http.Request) {
	regions, err := h.regions.Regions(r.Context())
	if err != nil {
		h.sendServiceError(w, r, "[API_REGIONS_ERROR]", err)
		return
	}
	if regions == nil {
		regions = []models.Region{}
	}
	h.sendJSON(w, regions, http.StatusOK)
}
