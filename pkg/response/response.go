// Package response writes the JSON envelope shared by every endpoint:
//
//	{"success": false, "status": 404, "message": "Order not found"}
//
// Handlers normally go through pkg/ctx; middleware that runs before a
// Context exists uses these functions directly.
package response

import (
	"encoding/json"
	"net/http"
)

// Envelope is the body of every JSON response.
type Envelope struct {
	Success bool   `json:"success"`
	Status  int    `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Errors  any    `json:"errors,omitempty"`
}

// New builds an envelope; Success is derived from the status code.
func New(status int, message string, data, errs any) Envelope {
	return Envelope{
		Success: status >= 200 && status < 300,
		Status:  status,
		Message: message,
		Data:    data,
		Errors:  errs,
	}
}

// Write encodes body with the given status.
func Write(w http.ResponseWriter, status int, body Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body) //nolint:errcheck
}

func Success(w http.ResponseWriter, data any) {
	Write(w, http.StatusOK, New(http.StatusOK, "", data, nil))
}

func Error(w http.ResponseWriter, status int, message string) {
	Write(w, status, New(status, message, nil, nil))
}

func Unauthorized(w http.ResponseWriter, message string) {
	if message == "" {
		message = "Not authorized, no token"
	}
	Error(w, http.StatusUnauthorized, message)
}

func Forbidden(w http.ResponseWriter) {
	Error(w, http.StatusForbidden, "Not authorized as an admin")
}

func TooManyRequests(w http.ResponseWriter) {
	Error(w, http.StatusTooManyRequests, "Too Many Requests")
}
