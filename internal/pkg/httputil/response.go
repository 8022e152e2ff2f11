package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/ignite/bulk-dispatch/internal/pkg/logger"
)

// ErrorResponse is the standard error envelope for all API errors.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// JSON writes a JSON response with the given status code. The data is
// serialized and Content-Type is set automatically.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("response encode failed", "error", err.Error())
	}
}

// OK writes a 200 response with the given data.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}

// Fail writes a JSON error envelope with success=false.
func Fail(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorResponse{Success: false, Error: message})
}

// BadRequest writes a 400 error.
func BadRequest(w http.ResponseWriter, message string) {
	Fail(w, http.StatusBadRequest, message)
}

// Unauthorized writes a 401 error.
func Unauthorized(w http.ResponseWriter, message string) {
	Fail(w, http.StatusUnauthorized, message)
}

// InternalError writes a 500 error. Logs the real error but returns the
// sanitized message to the client.
func InternalError(w http.ResponseWriter, message string, err error) {
	if err != nil {
		logger.Error("internal error", "error", err.Error())
	}
	Fail(w, http.StatusInternalServerError, message)
}

// Decode reads JSON from the request body into dst.
// Returns false and writes a 400 response if parsing fails.
func Decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		BadRequest(w, "invalid JSON: "+err.Error())
		return false
	}
	return true
}
