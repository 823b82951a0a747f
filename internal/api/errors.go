package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/gray-logic-nodeconfig/internal/nodeconfig"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest = "bad_request"
	ErrCodeNotFound   = "not_found"
	ErrCodeConflict   = "conflict"
	ErrCodeInternal   = "internal_error"
	ErrCodeValidation = "validation_error"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeConfigError maps a nodeconfig error onto a response. Unknown errors
// become a 500 without leaking their text.
func (s *Server) writeConfigError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, nodeconfig.ErrInstanceNotFound),
		errors.Is(err, nodeconfig.ErrRevisionNotFound):
		writeNotFound(w, err.Error())
	case errors.Is(err, nodeconfig.ErrNoIRBlaster):
		writeError(w, http.StatusConflict, ErrCodeConflict, err.Error())
	case errors.Is(err, nodeconfig.ErrInvalidID),
		errors.Is(err, nodeconfig.ErrInvalidCategory),
		errors.Is(err, nodeconfig.ErrCategoryMismatch),
		errors.Is(err, nodeconfig.ErrUnknownType),
		errors.Is(err, nodeconfig.ErrReservedParam),
		errors.Is(err, nodeconfig.ErrNotSensor),
		errors.Is(err, nodeconfig.ErrNotDevice),
		errors.Is(err, nodeconfig.ErrNotThermostat),
		errors.Is(err, nodeconfig.ErrInvalidUnits),
		errors.Is(err, nodeconfig.ErrUnknownTarget),
		errors.Is(err, nodeconfig.ErrInvalidConfig):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
	default:
		s.logger.Error("config operation failed", "error", err)
		writeInternalError(w, "internal server error")
	}
}
