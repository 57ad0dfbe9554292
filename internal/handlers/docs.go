package handlers

import (
	"encoding/json"
	"net/http"
)

type object = map[string]interface{}

func ref(name string) object {
	return object{"$ref": "#/components/schemas/" + name}
}

func arrayOf(name string) object {
	return object{"type": "array", "items": ref(name)}
}

func jsonContent(schema object) object {
	return object{"application/json": object{"schema": schema}}
}

func response(description string, schema object) object {
	if schema == nil {
		return object{"description": description}
	}
	return object{"description": description, "content": jsonContent(schema)}
}

func pathParam(name, description string) object {
	return object{
		"name":        name,
		"in":          "path",
		"description": description,
		"required":    true,
		"schema":      object{"type": "integer", "minimum": 1},
	}
}

func props(fields map[string]string) object {
	out := object{}
	for name, typ := range fields {
		switch typ {
		case "date-time":
			out[name] = object{"type": "string", "format": "date-time"}
		default:
			out[name] = object{"type": typ}
		}
	}
	return out
}

var errorResponses = object{
	"400": response("Invalid request", ref("Error")),
	"404": response("Resource not found", ref("Error")),
	"500": response("Internal error", ref("Error")),
}

func withErrors(ok object, extra ...string) object {
	out := object{"200": ok}
	for code, resp := range errorResponses {
		out[code] = resp
	}
	for i := 0; i+1 < len(extra); i += 2 {
		out[extra[i]] = response(extra[i+1], ref("Error"))
	}
	return out
}

var bearer = []object{{"bearerAuth": []string{}}}

// OpenAPISpec returns the OpenAPI 3.0 specification for the AQI API
func OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	spec := object{
		"openapi": "3.0.0",
		"info": object{
			"title":       "AQI Platform API",
			"description": "Air quality prediction and forecasting for a network of monitoring sensors",
			"version":     "1.0.0",
		},
		"servers": []map[string]string{
			{"url": "http://localhost:8000", "description": "Local development server"},
		},
		"paths": object{
			"/predict": object{
				"post": object{
					"summary":     "Predict AQI for a live reading",
					"description": "Scores the reading with the instant model and stores it in the sensor's history. Calendar fields are derived from timestamp when it is set.",
					"requestBody": object{"required": true, "content": jsonContent(ref("PredictRequest"))},
					"responses":   withErrors(response("Predicted AQI", ref("Prediction")), "429", "Rate limited"),
				},
			},
			"/forecast/{sensor_id}": object{
				"get": object{
					"summary":     "Forecast the next hour's AQI",
					"description": "Uses the sensor's last six stored predictions",
					"parameters":  []object{pathParam("sensor_id", "Sensor ID")},
					"responses":   withErrors(response("Forecast", ref("Forecast")), "422", "Not enough data"),
				},
			},
			"/latest": object{
				"get": object{
					"summary":   "Latest reading per sensor",
					"responses": withErrors(response("Latest readings, highest AQI first", arrayOf("LatestReading"))),
				},
			},
			"/history/{region_id}": object{
				"get": object{
					"summary":    "Region history",
					"parameters": []object{pathParam("region_id", "Region ID")},
					"responses":  withErrors(response("Last 50 readings, newest first", arrayOf("HistoryPoint"))),
				},
			},
			"/top-polluted": object{
				"get": object{
					"summary":   "Most polluted regions",
					"responses": withErrors(response("Top 5 regions by mean latest AQI", arrayOf("RegionSummary"))),
				},
			},
			"/regions": object{
				"get": object{
					"summary":   "List regions",
					"responses": withErrors(response("Regions", arrayOf("Region"))),
				},
			},
			"/admin/register": object{
				"post": object{
					"summary":     "Register an admin",
					"requestBody": object{"required": true, "content": jsonContent(ref("Credentials"))},
					"responses":   withErrors(response("Admin registered", ref("Message")), "403", "Registration disabled", "409", "Username or email taken"),
				},
			},
			"/admin/login": object{
				"post": object{
					"summary": "Exchange credentials for a bearer token",
					"requestBody": object{"required": true, "content": object{
						"application/x-www-form-urlencoded": object{"schema": ref("Credentials")},
						"application/json":                  object{"schema": ref("Credentials")},
					}},
					"responses": withErrors(response("Bearer token", ref("Token")), "401", "Invalid credentials"),
				},
			},
			"/admin/sensors": object{
				"get": object{
					"summary":   "List sensors",
					"security":  bearer,
					"responses": withErrors(response("Sensors", arrayOf("Sensor")), "401", "Unauthorized"),
				},
			},
			"/admin/sensor": object{
				"post": object{
					"summary":     "Add a sensor",
					"security":    bearer,
					"requestBody": object{"required": true, "content": jsonContent(ref("CreateSensor"))},
					"responses":   withErrors(response("Sensor added", ref("Message")), "401", "Unauthorized", "409", "Sensor code taken"),
				},
			},
			"/admin/sensor/{sensor_id}/status": object{
				"put": object{
					"summary":  "Activate or deactivate a sensor",
					"security": bearer,
					"parameters": []object{
						pathParam("sensor_id", "Sensor ID"),
						{"name": "is_active", "in": "query", "required": false, "schema": object{"type": "boolean"}},
					},
					"responses": withErrors(response("Status updated", ref("Message")), "401", "Unauthorized"),
				},
			},
			"/admin/sensor/{sensor_id}": object{
				"delete": object{
					"summary":    "Delete a sensor and its readings",
					"security":   bearer,
					"parameters": []object{pathParam("sensor_id", "Sensor ID")},
					"responses":  withErrors(response("Sensor deleted", ref("Message")), "401", "Unauthorized"),
				},
			},
			"/health": object{
				"get": object{
					"summary":   "Health check",
					"responses": object{"200": response("API is healthy", nil), "503": response("Store unreachable", nil)},
				},
			},
			"/metrics": object{
				"get": object{
					"summary": "Prometheus metrics",
					"responses": object{"200": object{
						"description": "Prometheus metrics in text format",
						"content":     object{"text/plain": object{"schema": object{"type": "string"}}},
					}},
				},
			},
		},
		"components": object{
			"securitySchemes": object{
				"bearerAuth": object{"type": "http", "scheme": "bearer", "bearerFormat": "JWT"},
			},
			"schemas": object{
				"PredictRequest": object{"type": "object", "required": []string{"sensor_id", "PM2_5", "PM10", "NO2", "CO", "SO2", "O3", "NH3"}, "properties": props(map[string]string{
					"sensor_id": "integer", "PM2_5": "number", "PM10": "number", "NO2": "number", "CO": "number",
					"SO2": "number", "O3": "number", "NH3": "number", "hour": "integer", "day": "integer",
					"month": "integer", "weekday": "integer", "timestamp": "date-time",
				})},
				"Prediction":    object{"type": "object", "properties": props(map[string]string{"predicted_AQI": "number", "category": "string"})},
				"Forecast":      object{"type": "object", "properties": props(map[string]string{"sensor_id": "integer", "next_hour_AQI": "number", "category": "string"})},
				"LatestReading": object{"type": "object", "properties": props(map[string]string{"region": "string", "sensor_id": "integer", "aqi": "number", "category": "string", "timestamp": "date-time"})},
				"HistoryPoint":  object{"type": "object", "properties": props(map[string]string{"timestamp": "date-time", "aqi": "number"})},
				"RegionSummary": object{"type": "object", "properties": props(map[string]string{"region": "string", "aqi": "number", "category": "string"})},
				"Region":        object{"type": "object", "properties": props(map[string]string{"region_id": "integer", "name": "string"})},
				"Sensor": object{"type": "object", "properties": props(map[string]string{
					"sensor_id": "integer", "sensor_code": "string", "region_id": "integer", "latitude": "number",
					"longitude": "number", "radius": "integer", "is_active": "boolean",
				})},
				"CreateSensor": object{"type": "object", "properties": props(map[string]string{
					"sensor_code": "string", "region_id": "integer", "latitude": "number", "longitude": "number", "radius": "integer",
				})},
				"Credentials": object{"type": "object", "properties": props(map[string]string{"username": "string", "email": "string", "password": "string"})},
				"Token":       object{"type": "object", "properties": props(map[string]string{"access_token": "string", "token_type": "string", "expires_at": "date-time"})},
				"Message":     object{"type": "object", "properties": props(map[string]string{"message": "string", "admin_id": "integer", "sensor_id": "integer"})},
				"Error":       object{"type": "object", "properties": props(map[string]string{"error": "string", "message": "string", "code": "integer", "reason": "string"})},
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(spec)
}
