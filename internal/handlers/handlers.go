package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"aqi-platform/internal/auth"
	"aqi-platform/internal/features"
	"aqi-platform/internal/models"
	"aqi-platform/internal/repository"
	"aqi-platform/internal/services"
	"aqi-platform/pkg/logging"
	"aqi-platform/pkg/metrics"
)

// HealthChecker reports whether the backing store is reachable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Services bundles the service layer the API depends on
type Services struct {
	Predictions *services.PredictionService
	Regions     *services.RegionService
	Sensors     *services.SensorService
	Auth        *services.AuthService
	Health      HealthChecker
}

// Handler serves the AQI API
type Handler struct {
	predictions *services.PredictionService
	regions     *services.RegionService
	sensors     *services.SensorService
	auth        *services.AuthService
	health      HealthChecker
	limiter     *rate.Limiter
	logger      *logging.StructuredLogger
	metrics     *metrics.Collector
}

// NewHandler creates a new API handler. A nil limiter disables rate limiting on /predict.
func NewHandler(svc Services, limiter *rate.Limiter, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *Handler {
	return &Handler{
		predictions: svc.Predictions,
		regions:     svc.Regions,
		sensors:     svc.Sensors,
		auth:        svc.Auth,
		health:      svc.Health,
		limiter:     limiter,
		logger:      logger,
		metrics:     metricsCollector,
	}
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
	Reason  string `json:"reason,omitempty"`
}

// MessageResponse is the body of admin mutations
type MessageResponse struct {
	Message  string `json:"message"`
	AdminID  int64  `json:"admin_id,omitempty"`
	SensorID int64  `json:"sensor_id,omitempty"`
}

// RegisterRoutes registers all API routes
func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.Use(RequestIDMiddleware, h.MetricsMiddleware)

	router.HandleFunc("/", h.Root).Methods("GET")
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
	router.Handle("/metrics", h.metrics.Handler()).Methods("GET")

	router.Handle("/predict", h.RateLimitMiddleware(http.HandlerFunc(h.Predict))).Methods("POST")
	router.HandleFunc("/forecast/{sensor_id:[0-9]+}", h.Forecast).Methods("GET")
	router.HandleFunc("/latest", h.Latest).Methods("GET")
	router.HandleFunc("/history/{region_id:[0-9]+}", h.History).Methods("GET")
	router.HandleFunc("/top-polluted", h.TopPolluted).Methods("GET")
	router.HandleFunc("/regions", h.Regions).Methods("GET")

	admin := router.PathPrefix("/admin").Subrouter()
	admin.HandleFunc("/register", h.Register).Methods("POST")
	admin.HandleFunc("/login", h.Login).Methods("POST")

	protected := admin.NewRoute().Subrouter()
	protected.Use(h.RequireAdmin)
	protected.HandleFunc("/sensors", h.ListSensors).Methods("GET")
	protected.HandleFunc("/sensor", h.CreateSensor).Methods("POST")
	protected.HandleFunc("/sensor/{sensor_id:[0-9]+}/status", h.UpdateSensorStatus).Methods("PUT")
	protected.HandleFunc("/sensor/{sensor_id:[0-9]+}", h.DeleteSensor).Methods("DELETE")

	router.HandleFunc("/api/docs/openapi.json", OpenAPISpec).Methods("GET")
	router.HandleFunc("/api/docs", SwaggerUI).Methods("GET")
}

// Root handles GET /
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	h.sendJSON(w, MessageResponse{Message: "AQI API Running"}, http.StatusOK)
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if h.health != nil {
		if err := h.health.HealthCheck(ctx); err != nil {
			h.logger.Error(ctx, "[HEALTH_CHECK] Store unreachable", logging.Fields{}, err)
			status["status"] = "unhealthy"
			h.sendJSON(w, status, http.StatusServiceUnavailable)
			return
		}
	}

	h.logger.Debug(ctx, "[HEALTH_CHECK] Health check requested", logging.Fields{})
	h.sendJSON(w, status, http.StatusOK)
}

// sendJSON sends a JSON response
func (h *Handler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// sendError sends an error response
func (h *Handler) sendError(w http.ResponseWriter, message string, statusCode int) {
	h.sendJSON(w, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}, statusCode)
}

// sendServiceError maps a service error onto a status code and error body.
// Anything unrecognized is logged and reported as a 500.
func (h *Handler) sendServiceError(w http.ResponseWriter, r *http.Request, tag string, err error) {
	ctx := r.Context()
	endpoint := routeTemplate(r)

	var (
		validation *models.ValidationError
		notFound   *repository.NotFoundError
		conflict   *repository.ConflictError
	)

	switch {
	case errors.As(err, &validation):
		h.metrics.RecordAPIError("validation", endpoint)
		h.sendError(w, validation.Error(), http.StatusBadRequest)
	case errors.As(err, &notFound):
		h.metrics.RecordAPIError("not_found", endpoint)
		h.sendError(w, notFound.Error(), http.StatusNotFound)
	case errors.As(err, &conflict):
		h.metrics.RecordAPIError("conflict", endpoint)
		h.sendError(w, conflict.Error(), http.StatusConflict)
	case errors.Is(err, features.ErrInsufficientHistory):
		h.metrics.RecordAPIError("insufficient_history", endpoint)
		h.sendJSON(w, ErrorResponse{
			Error:   http.StatusText(http.StatusUnprocessableEntity),
			Message: "Not enough data",
			Code:    http.StatusUnprocessableEntity,
			Reason:  "INSUFFICIENT_HISTORY",
		}, http.StatusUnprocessableEntity)
	case errors.Is(err, auth.ErrInvalidCredentials):
		h.metrics.RecordAPIError("invalid_credentials", endpoint)
		h.sendError(w, "invalid username or password", http.StatusUnauthorized)
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrMissingToken):
		h.metrics.RecordAPIError("unauthorized", endpoint)
		w.Header().Set("WWW-Authenticate", "Bearer")
		h.sendError(w, "invalid or missing bearer token", http.StatusUnauthorized)
	case errors.Is(err, services.ErrRegistrationDisabled):
		h.metrics.RecordAPIError("forbidden", endpoint)
		h.sendError(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, context.DeadlineExceeded):
		h.metrics.RecordAPIError("timeout", endpoint)
		h.logger.Warn(ctx, tag+" Request timed out", logging.Fields{"endpoint": endpoint})
		h.sendError(w, "request timed out", http.StatusGatewayTimeout)
	default:
		h.metrics.RecordAPIError("internal_error", endpoint)
		h.logger.Error(ctx, tag+" Request failed", logging.Fields{"endpoint": endpoint}, err)
		h.sendError(w, "internal server error", http.StatusInternalServerError)
	}
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return r.URL.Path
}

func pathID(r *http.Request, name string) (int64, error) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, &models.ValidationError{Field: name, Value: raw, Message: name + " must be a positive integer"}
	}
	return id, nil
}
