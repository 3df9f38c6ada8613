package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/goatboynz/pro-irrigation-addon/internal/grow"
	"github.com/goatboynz/pro-irrigation-addon/internal/hass"
	"github.com/goatboynz/pro-irrigation-addon/internal/schedule"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest  = "bad_request"
	ErrCodeNotFound    = "not_found"
	ErrCodeConflict    = "conflict"
	ErrCodeInternal    = "internal_error"
	ErrCodeValidation  = "validation_error"
	ErrCodeUnavailable = "upstream_unavailable"
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

// writeRepoError maps repository and validation errors onto HTTP status
// codes. fallback is the message for unrecognised errors.
func writeRepoError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, grow.ErrValidation), errors.Is(err, schedule.ErrManualFormat):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
	case errors.Is(err, grow.ErrRoomNotFound),
		errors.Is(err, grow.ErrPumpNotFound),
		errors.Is(err, grow.ErrZoneNotFound),
		errors.Is(err, grow.ErrEventNotFound),
		errors.Is(err, grow.ErrLegacyZoneNotFound):
		writeNotFound(w, err.Error())
	case errors.Is(err, grow.ErrDuplicateName):
		writeError(w, http.StatusConflict, ErrCodeConflict, err.Error())
	case errors.Is(err, hass.ErrServiceUnavailable):
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "home assistant unavailable")
	default:
		writeInternalError(w, fallback)
	}
}
