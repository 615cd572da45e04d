package errors

import "net/http"

// AppError is a custom error type that includes an HTTP status code.
// StateConflict errors additionally carry the authoritative entity state
// that caused the rejection, so clients can resync without a refetch.
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	State   string `json:"state,omitempty"`
}

func (e *AppError) Error() string {
	return e.Message
}

// NewAppError creates a new AppError
func NewAppError(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Common errors
var (
	ErrInvalidRequest = NewAppError(http.StatusBadRequest, "Invalid request parameters")
	ErrUnauthorized   = NewAppError(http.StatusUnauthorized, "Unauthorized access")
	ErrForbidden      = NewAppError(http.StatusForbidden, "Access denied")
	ErrNotFound       = NewAppError(http.StatusNotFound, "Resource not found")
	ErrInternalServer = NewAppError(http.StatusInternalServerError, "Internal server error")
	ErrRateLimit      = NewAppError(http.StatusTooManyRequests, "Rate limit exceeded")
)

// Validation rejects bad input before any remote call is made
func Validation(msg string) *AppError {
	return NewAppError(http.StatusBadRequest, msg)
}

// StateConflict rejects an operation that is invalid for the entity's
// current lifecycle state. The state is attached to the response.
func StateConflict(msg string, state string) *AppError {
	return &AppError{
		Code:    http.StatusConflict,
		Message: msg,
		State:   state,
	}
}

// StoreUnavailable wraps a backend/transport failure. Not retried here;
// the caller's next reconciliation tick retries naturally.
func StoreUnavailable(msg string) *AppError {
	return NewAppError(http.StatusServiceUnavailable, msg)
}

func BadRequest(msg string) *AppError {
	return NewAppError(http.StatusBadRequest, msg)
}

func NotFound(msg string) *AppError {
	return NewAppError(http.StatusNotFound, msg)
}

func Unauthorized(msg string) *AppError {
	return NewAppError(http.StatusUnauthorized, msg)
}

func Forbidden(msg string) *AppError {
	return NewAppError(http.StatusForbidden, msg)
}

func Internal(msg string) *AppError {
	return NewAppError(http.StatusInternalServerError, msg)
}
