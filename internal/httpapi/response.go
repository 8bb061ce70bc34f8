package httpapi

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/godilite/staff-perf/internal/service"
)

type Error struct {
	Code    string               `json:"code"`
	Message string               `json:"message"`
	Issues  []service.FieldIssue `json:"issues,omitempty"`
}

type Envelope struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Error     *Error `json:"error,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, payload Envelope) {
	payload.RequestID = RequestIDFrom(r.Context())
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		loggerFrom(r.Context()).Warn("write json failed", zap.Error(err))
	}
}

func success(w http.ResponseWriter, r *http.Request, data any) {
	writeJSON(w, r, http.StatusOK, Envelope{Success: true, Data: data})
}

func created(w http.ResponseWriter, r *http.Request, data any) {
	writeJSON(w, r, http.StatusCreated, Envelope{Success: true, Data: data})
}

func fail(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, r, status, Envelope{Success: false, Error: &Error{Code: code, Message: message}})
}

func failIssues(w http.ResponseWriter, r *http.Request, issues []service.FieldIssue) {
	writeJSON(w, r, http.StatusBadRequest, Envelope{
		Success: false,
		Error:   &Error{Code: "validation_error", Message: "payload validation failed", Issues: issues},
	})
}

// decode reads a JSON body, rejecting unknown fields.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		fail(w, r, http.StatusBadRequest, "invalid_payload", "invalid request payload")
		return false
	}
	return true
}
