package http

import (
	"encoding/json"
	"net/http"
)

// Error codes surfaced to clients
const (
	CodeValidationError    = "VALIDATION_ERROR"
	CodeUserExists         = "USER_EXISTS"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeInvalidToken       = "INVALID_TOKEN"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeUserNotFound       = "USER_NOT_FOUND"
	CodeNotFound           = "NOT_FOUND"
	CodeRateLimited        = "RATE_LIMITED"
	CodeInternalError      = "INTERNAL_ERROR"
)

// APIError is the error half of the response envelope
type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

// Envelope is the uniform response shape across all JSON endpoints
type Envelope struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
}

// WriteSuccess writes a success envelope with the given status and payload
func WriteSuccess(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	// Log encoding errors but don't expose them to client
	_ = json.NewEncoder(w).Encode(Envelope{Success: true, Data: data})
}

// WriteError writes an error envelope with the given status, code and message
func WriteError(w http.ResponseWriter, statusCode int, code, message string) {
	WriteErrorWithDetails(w, statusCode, code, message, "")
}

// WriteErrorWithDetails writes an error envelope with additional details
func WriteErrorWithDetails(w http.ResponseWriter, statusCode int, code, message, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	_ = json.NewEncoder(w).Encode(Envelope{
		Success: false,
		Error:   &APIError{Message: message, Code: code, Details: details},
	})
}

// Common error writers for consistency
func WriteValidationError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, CodeValidationError, message)
}

func WriteUserExists(w http.ResponseWriter) {
	WriteError(w, http.StatusBadRequest, CodeUserExists, "An account with this email already exists")
}

func WriteInvalidCredentials(w http.ResponseWriter) {
	WriteError(w, http.StatusUnauthorized, CodeInvalidCredentials, "Invalid email or password")
}

func WriteInvalidToken(w http.ResponseWriter) {
	WriteError(w, http.StatusBadRequest, CodeInvalidToken, "Token is invalid, expired, or already used")
}

func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, CodeUnauthorized, message)
}

func WriteForbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, CodeForbidden, message)
}

func WriteUserNotFound(w http.ResponseWriter) {
	WriteError(w, http.StatusNotFound, CodeUserNotFound, "User not found")
}

func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, CodeNotFound, message)
}

func WriteTooManyRequests(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusTooManyRequests, CodeRateLimited, message)
}

func WriteInternalError(w http.ResponseWriter) {
	WriteError(w, http.StatusInternalServerError, CodeInternalError, "Internal server error")
}
