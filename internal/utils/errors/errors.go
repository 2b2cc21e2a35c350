package errors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Error codes carried by AppError.
const (
	CodeValidation    = "VALIDATION_ERROR"
	CodeForbidden     = "FORBIDDEN"
	CodeQuotaExceeded = "QUOTA_EXCEEDED"
	CodeServerError   = "SERVER_ERROR"
)

// Kind is the coarse error class exposed to HTTP-layer callers.
type Kind string

const (
	KindValidation    Kind = "validation_error"
	KindForbidden     Kind = "forbidden"
	KindQuotaExceeded Kind = "quota_exceeded"
	KindServerError   Kind = "server_error"
)

// Common error types.
var (
	ErrBadRequest    = errors.New("bad request")
	ErrForbidden     = errors.New("forbidden")
	ErrQuotaExceeded = errors.New("quota exceeded")
	ErrInternal      = errors.New("internal error")
)

// AppError represents an application error with HTTP status and error code.
type AppError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details,omitempty"`
	StatusCode int            `json:"-"`
	Err        error          `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports whether target matches this error.
func (e *AppError) Is(target error) bool {
	if t, ok := target.(*AppError); ok {
		return e.Code == t.Code
	}
	return false
}

// ErrorResponse represents the JSON error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error details.
type ErrorDetail struct {
	Code    string         `json:"code"`
	Kind    Kind           `json:"kind"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// ToResponse converts an AppError to ErrorResponse. The wrapped error is
// never included.
func (e *AppError) ToResponse() ErrorResponse {
	return ErrorResponse{
		Error: ErrorDetail{
			Code:    e.Code,
			Kind:    kindForCode(e.Code),
			Message: e.Message,
			Details: e.Details,
		},
	}
}

// WithDetails adds details to the error.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	e.Details = details
	return e
}

// WithError wraps an underlying error.
func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

// ValidationError creates a validation error.
func ValidationError(message string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		StatusCode: http.StatusUnprocessableEntity,
		Err:        ErrBadRequest,
	}
}

// Forbidden creates a forbidden error.
func Forbidden(message string) *AppError {
	if message == "" {
		message = "access denied"
	}
	return &AppError{
		Code:       CodeForbidden,
		Message:    message,
		StatusCode: http.StatusForbidden,
		Err:        ErrForbidden,
	}
}

// QuotaExceeded creates a quota exceeded error.
func QuotaExceeded(message string) *AppError {
	return &AppError{
		Code:       CodeQuotaExceeded,
		Message:    message,
		StatusCode: http.StatusPaymentRequired,
		Err:        ErrQuotaExceeded,
	}
}

// QuotaExceededError describes which quota rejected a request.
type QuotaExceededError struct {
	Scope   string
	Used    float64
	Limit   float64
	ResetAt *time.Time
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("%s quota exceeded: used %g of %g", e.Scope, e.Used, e.Limit)
}

// Unwrap returns ErrQuotaExceeded.
func (e *QuotaExceededError) Unwrap() error {
	return ErrQuotaExceeded
}

// QuotaExceededFor builds a quota error whose details carry scope, usage and
// the reset time when known.
func QuotaExceededFor(q *QuotaExceededError) *AppError {
	details := map[string]any{
		"scope": q.Scope,
		"used":  q.Used,
		"limit": q.Limit,
	}
	if q.ResetAt != nil {
		details["reset_at"] = q.ResetAt.UTC().Format(time.RFC3339)
	}
	err := QuotaExceeded(q.Scope + " limit reached")
	err.Err = q
	return err.WithDetails(details)
}

// ServerError creates a server error. err is kept for logs only.
func ServerError(message string, err error) *AppError {
	if message == "" {
		message = "internal server error"
	}
	if err == nil {
		err = ErrInternal
	}
	return &AppError{
		Code:       CodeServerError,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Err:        err,
	}
}

// KindOf classifies any error. Errors that are not AppErrors are server errors.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return kindForCode(appErr.Code)
	}
	return KindServerError
}

func kindForCode(code string) Kind {
	switch code {
	case CodeValidation:
		return KindValidation
	case CodeForbidden:
		return KindForbidden
	case CodeQuotaExceeded:
		return KindQuotaExceeded
	default:
		return KindServerError
	}
}

// GetStatusCode returns the appropriate HTTP status code for an error.
func GetStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return KindOf(err) == KindValidation
}

// IsForbidden checks if the error is a forbidden error.
func IsForbidden(err error) bool {
	return KindOf(err) == KindForbidden
}

// IsQuotaExceeded checks if the error is a quota exceeded error.
func IsQuotaExceeded(err error) bool {
	return KindOf(err) == KindQuotaExceeded
}
