// Package httpserver exposes the authentication service over HTTP.
package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/and161185/authgate/internal/errs"
)

// response is the single envelope every endpoint answers with.
type response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, resp response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func writeOK(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, response{Success: true, Message: message, Data: data})
}

func writeErr(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, response{Success: false, Message: message})
}

// writeError maps a service error to an HTTP status and a stable message.
// Internal details never leak to the caller.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errs.ErrValidation):
		writeErr(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, errs.ErrAlreadyExists):
		writeErr(w, http.StatusConflict, "User already exists")
	case errors.Is(err, errs.ErrInvalidCredentials):
		writeErr(w, http.StatusUnauthorized, "Invalid email or password")
	case errors.Is(err, errs.ErrInvalidToken):
		writeErr(w, http.StatusUnauthorized, "Invalid or expired token")
	case errors.Is(err, errs.ErrInvalidRefreshToken):
		writeErr(w, http.StatusUnauthorized, "Invalid or expired refresh token")
	case errors.Is(err, errs.ErrNotLoggedIn):
		writeErr(w, http.StatusUnauthorized, "No active session")
	case errors.Is(err, errs.ErrRateLimited):
		writeErr(w, http.StatusTooManyRequests, "Too many requests")
	case errors.Is(err, errs.ErrOAuthExchange):
		writeErr(w, http.StatusBadGateway, "Identity provider request failed")
	default:
		writeErr(w, http.StatusInternalServerError, "Internal server error")
	}
}
