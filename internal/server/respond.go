// internal/server/respond.go
package server

import (
	"encoding/json"
	"net/http"

	apperrors "medclaim-portal/internal/common/errors"
)

// envelope is the 2xx response shape shared by every endpoint.
type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{
		Success: true,
		Data:    data,
		Message: message,
	})
}

// decodeBody reads the request body into a map for schema validation.
func decodeBody(r *http.Request) (map[string]interface{}, error) {
	var payload map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		return nil, apperrors.NewValidationError("request body must be a JSON object")
	}
	return payload, nil
}

func strField(payload map[string]interface{}, key string) string {
	if v, ok := payload[key].(string); ok {
		return v
	}
	return ""
}

func boolField(payload map[string]interface{}, key string) bool {
	if v, ok := payload[key].(bool); ok {
		return v
	}
	return false
}

func floatField(payload map[string]interface{}, key string) *float64 {
	if v, ok := payload[key].(float64); ok {
		return &v
	}
	return nil
}
