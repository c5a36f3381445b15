package errors

import (
	"encoding/json"
	"net/http"
	"time"
)

// ErrorHandler writes errors to HTTP responses in the API envelope.
type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// errorBody is the non-2xx response envelope.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode"`
	Timestamp  string `json:"timestamp"`
	Path       string `json:"path"`
}

// WriteError normalizes err to a StandardError and writes the envelope.
func (h *ErrorHandler) WriteError(w http.ResponseWriter, r *http.Request, err error) {
	stdErr := h.normalizeError(err)
	status := HTTPStatus(stdErr.Code)

	h.logError(r, stdErr, status)

	body := errorBody{
		Error: errorDetail{
			Message:    stdErr.Message,
			StatusCode: status,
			Timestamp:  stdErr.Timestamp.Format(time.RFC3339),
			Path:       r.URL.Path,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// WritePublicError collapses token/not-found distinctions before writing.
// The public endpoints must not leak whether the token was unknown or
// merely expired, so both become the same generic message and status.
func (h *ErrorHandler) WritePublicError(w http.ResponseWriter, r *http.Request, err error) {
	stdErr := h.normalizeError(err)
	if stdErr.Code == ErrCodeResourceNotFound || stdErr.Code == ErrCodeTokenExpired {
		generic := NewTokenExpiredError()
		generic.Code = ErrCodeResourceNotFound
		generic.Message = "This link is invalid or has expired"
		h.WriteError(w, r, generic)
		return
	}
	h.WriteError(w, r, stdErr)
}

// normalizeError ensures we always have a StandardError
func (h *ErrorHandler) normalizeError(err error) *StandardError {
	if stdErr, ok := err.(*StandardError); ok {
		return stdErr
	}
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func (h *ErrorHandler) logError(r *http.Request, stdErr *StandardError, status int) {
	h.logger.Error("request failed", map[string]interface{}{
		"method":        r.Method,
		"path":          r.URL.Path,
		"errorCode":     string(stdErr.Code),
		"message":       stdErr.Message,
		"details":       stdErr.Details,
		"retryable":     stdErr.Retryable,
		"statusCode":    status,
		"errorCategory": GetErrorCategory(stdErr.Code),
	})
}
