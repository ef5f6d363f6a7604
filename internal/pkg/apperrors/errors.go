package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorType string

// Venue-level error tags. The cache gate keys its backoff decisions off
// these, so adapters must classify every failure into one of them.
const (
	ErrCredentials ErrorType = "CREDENTIAL_ERROR"
	ErrAuthReject  ErrorType = "AUTH_REJECTED"
	ErrRateLimited ErrorType = "RATE_LIMITED"
	ErrNonce       ErrorType = "NONCE_CONFLICT"
	ErrUpstream    ErrorType = "UPSTREAM_ERROR"
	ErrSchema      ErrorType = "SCHEMA_ERROR"
)

// Request-level error tags.
const (
	ErrAuthFailed     ErrorType = "AUTH_FAILED"
	ErrInvalidRequest ErrorType = "INVALID_REQUEST"
	ErrInternal       ErrorType = "INTERNAL_ERROR"
	ErrNotFound       ErrorType = "NOT_FOUND"
)

// AppError is the standard error struct for the application
type AppError struct {
	Type       ErrorType `json:"code"`
	Message    string    `json:"message"`
	Suggestion string    `json:"suggestion,omitempty"`
	HTTPStatus int       `json:"-"`
	Cause      error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(errType ErrorType, msg string, cause error) *AppError {
	return &AppError{
		Type:       errType,
		Message:    msg,
		Cause:      cause,
		HTTPStatus: mapTypeToStatus(errType),
		Suggestion: mapTypeToSuggestion(errType),
	}
}

func NewInvalidRequest(msg string) *AppError {
	return New(ErrInvalidRequest, msg, nil)
}

func Wrap(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return New(ErrInternal, err.Error(), err)
}

// TypeOf returns the tag of err, or ErrUpstream for untagged errors.
// Untagged failures out of an adapter are by definition upstream trouble.
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrUpstream
}

func mapTypeToStatus(t ErrorType) int {
	switch t {
	case ErrInvalidRequest:
		return http.StatusBadRequest
	case ErrAuthFailed, ErrAuthReject, ErrCredentials:
		return http.StatusUnauthorized
	case ErrNonce:
		return http.StatusConflict
	case ErrRateLimited:
		return http.StatusTooManyRequests
	case ErrNotFound:
		return http.StatusNotFound
	case ErrUpstream, ErrSchema:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func mapTypeToSuggestion(t ErrorType) string {
	switch t {
	case ErrRateLimited:
		return "Wait for the venue rate-limit window to pass."
	case ErrNonce:
		return "Retry the request."
	case ErrAuthReject, ErrCredentials:
		return "Check venue API keys."
	case ErrAuthFailed:
		return "Check the bearer token."
	default:
		return ""
	}
}
