package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	"aqi-platform/internal/models"
	"aqi-platform/internal/services"
)

type credentials struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type statusRequest struct {
	IsActive *bool `json:"is_active"`
}

func isJSON(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/json"
}

// decodeBody reads a JSON body into dest. Non-JSON requests, and JSON
// requests with an empty body, are parsed as form or query values and handed
// to fromForm.
func decodeBody(w http.ResponseWriter, r *http.Request, dest interface{}, fromForm func(get func(string) string) error) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if isJSON(r) && r.ContentLength != 0 {
		err := json.NewDecoder(r.Body).Decode(dest)
		if err == nil {
			return nil
		}
		if !errors.Is(err, io.EOF) {
			return &models.ValidationError{Field: "body", Message: "invalid JSON body: " + err.Error()}
		}
	}
	if err := r.ParseForm(); err != nil {
		return &models.ValidationError{Field: "body", Message: "invalid form body: " + err.Error()}
	}
	return fromForm(r.FormValue)
}

// Register handles POST /admin/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var c credentials
	err := decodeBody(w, r, &c, func(get func(string) string) error {
		c = credentials{Username: get("username"), Email: get("email"), Password: get("password")}
		return nil
	})
	if err != nil {
		h.sendServiceError(w, r, "[API_REGISTER_ERROR]", err)
		return
	}

	admin, err := h.auth.Register(r.Context(), c.Username, c.Email, c.Password)
	if err != nil {
		h.sendServiceError(w, r, "[API_REGISTER_ERROR]", err)
		return
	}

	h.sendJSON(w, MessageResponse{Message: "Admin registered", AdminID: admin.ID}, http.StatusCreated)
}

// Login handles POST /admin/login. Accepts an OAuth2 password form or JSON.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var c credentials
	err := decodeBody(w, r, &c, func(get func(string) string) error {
		c = credentials{Username: get("username"), Password: get("password")}
		return nil
	})
	if err != nil {
		h.sendServiceError(w, r, "[API_LOGIN_ERROR]", err)
		return
	}

	token, err := h.auth.Login(r.Context(), c.Username, c.Password)
	if err != nil {
		h.sendServiceError(w, r, "[API_LOGIN_ERROR]", err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	h.sendJSON(w, token, http.StatusOK)
}

// ListSensors handles GET /admin/sensors
func (h *Handler) ListSensors(w http.ResponseWriter, r *http.Request) {
	sensors, err := h.sensors.List(r.Context())
	if err != nil {
		h.sendServiceError(w, r, "[API_SENSORS_ERROR]", err)
		return
	}
	h.sendJSON(w, sensors, http.StatusOK)
}

// CreateSensor handles POST /admin/sensor
func (h *Handler) CreateSensor(w http.ResponseWriter, r *http.Request) {
	var req services.CreateSensorRequest
	err := decodeBody(w, r, &req, func(get func(string) string) error {
		return sensorFromForm(get, &req)
	})
	if err != nil {
		h.sendServiceError(w, r, "[API_SENSOR_CREATE_ERROR]", err)
		return
	}

	sensor, err := h.sensors.Create(r.Context(), req)
	if err != nil {
		h.sendServiceError(w, r, "[API_SENSOR_CREATE_ERROR]", err)
		return
	}

	h.sendJSON(w, MessageResponse{Message: "Sensor added", SensorID: sensor.ID}, http.StatusCreated)
}

func sensorFromForm(get func(string) string, req *services.CreateSensorRequest) error {
	var err error
	req.SensorCode = get("sensor_code")
	if req.RegionID, err = strconv.ParseInt(get("region_id"), 10, 64); err != nil {
		return &models.ValidationError{Field: "region_id", Value: get("region_id"), Message: "region_id must be an integer"}
	}
	if req.Latitude, err = strconv.ParseFloat(get("latitude"), 64); err != nil {
		return &models.ValidationError{Field: "latitude", Value: get("latitude"), Message: "latitude must be a number"}
	}
	if req.Longitude, err = strconv.ParseFloat(get("longitude"), 64); err != nil {
		return &models.ValidationError{Field: "longitude", Value: get("longitude"), Message: "longitude must be a number"}
	}
	if req.Radius, err = strconv.Atoi(get("radius")); err != nil {
		return &models.ValidationError{Field: "radius", Value: get("radius"), Message: "radius must be an integer"}
	}
	return nil
}

// UpdateSensorStatus handles PUT /admin/sensor/{sensor_id}/status
func (h *Handler) UpdateSensorStatus(w http.ResponseWriter, r *http.Request) {
	sensorID, err := pathID(r, "sensor_id")
	if err != nil {
		h.sendServiceError(w, r, "[API_SENSOR_STATUS_ERROR]", err)
		return
	}

	var req statusRequest
	err = decodeBody(w, r, &req, func(get func(string) string) error {
		raw := get("is_active")
		if raw == "" {
			return nil
		}
		active, err := strconv.ParseBool(raw)
		if err != nil {
			return &models.ValidationError{Field: "is_active", Value: raw, Message: "is_active must be true or false"}
		}
		req.IsActive = &active
		return nil
	})
	if err == nil && req.IsActive == nil {
		err = &models.ValidationError{Field: "is_active", Message: "is_active is required"}
	}
	if err != nil {
		h.sendServiceError(w, r, "[API_SENSOR_STATUS_ERROR]", err)
		return
	}

	if err := h.sensors.SetActive(r.Context(), sensorID, *req.IsActive); err != nil {
		h.sendServiceError(w, r, "[API_SENSOR_STATUS_ERROR]", err)
		return
	}

	h.sendJSON(w, MessageResponse{Message: "Status updated", SensorID: sensorID}, http.StatusOK)
}

// DeleteSensor handles DELETE /admin/sensor/{sensor_id}
func (h *Handler) DeleteSensor(w http.ResponseWriter, r *http.Request) {
	sensorID, err := pathID(r, "sensor_id")
	if err != nil {
		h.sendServiceError(w, r, "[API_SENSOR_DELETE_ERROR]", err)
		return
	}

	if err := h.sensors.Delete(r.Context(), sensorID); err != nil {
		h.sendServiceError(w, r, "[API_SENSOR_DELETE_ERROR]", err)
		return
	}

	h.sendJSON(w, MessageResponse{Message: "Sensor deleted", SensorID: sensorID}, http.StatusOK)
}
