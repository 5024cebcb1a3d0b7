// Package apperr defines the error taxonomy shared by the core and the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeInvalidInput        = "INVALID_INPUT"
	CodeCodeTaken           = "CODE_TAKEN"
	CodeSpaceExhausted      = "SPACE_EXHAUSTED"
	CodeLinkNotFound        = "LINK_NOT_FOUND"
	CodeLinkExpired         = "LINK_EXPIRED"
	CodeForbidden           = "FORBIDDEN"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeRateLimited         = "RATE_LIMITED"
	CodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
	CodeInternal            = "INTERNAL"
)

// AppError carries a taxonomy code, a caller-safe message and an optional cause.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"error"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches any AppError with the same code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates an AppError.
func New(code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap creates an AppError around a cause.
func Wrap(err error, code, message string) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

var (
	ErrInvalidInput   = New(CodeInvalidInput, "Invalid input.")
	ErrURLRequired    = New(CodeInvalidInput, "URL is required.")
	ErrInvalidURL     = New(CodeInvalidInput, "Invalid URL format. Must be http or https URL.")
	ErrInvalidCode    = New(CodeInvalidInput, "Custom code must be 3-20 alphanumeric characters.")
	ErrInvalidExpiry  = New(CodeInvalidInput, "expiresInDays must be a non-negative number.")
	ErrCodeTaken      = New(CodeCodeTaken, "Custom code already taken. Please choose another.")
	ErrSpaceExhausted = New(CodeSpaceExhausted, "Could not allocate a unique short code.")
	ErrLinkNotFound   = New(CodeLinkNotFound, "Short URL not found.")
	ErrLinkExpired    = New(CodeLinkExpired, "This short URL has expired.")
	ErrForbidden      = New(CodeForbidden, "You do not have permission to delete this URL.")
	ErrUnauthorized   = New(CodeUnauthorized, "Access token required.")
	ErrRateLimited    = New(CodeRateLimited, "Too many requests. Please try again later.")
	ErrUpstream       = New(CodeUpstreamUnavailable, "Service temporarily unavailable.")
	ErrInternal       = New(CodeInternal, "Internal server error.")
)

// Upstream wraps a store or cache failure.
func Upstream(err error) *AppError {
	return Wrap(err, CodeUpstreamUnavailable, ErrUpstream.Message)
}

// CodeOf returns the taxonomy code of err, or CodeInternal when err is not an AppError.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// Public returns the caller-safe view of err. Unknown errors collapse to ErrInternal.
func Public(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Code != CodeInternal {
		return &AppError{Code: appErr.Code, Message: appErr.Message}
	}
	return ErrInternal
}

// HTTPStatus maps err to a response status.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeInvalidInput:
		return http.StatusBadRequest
	case CodeCodeTaken:
		return http.StatusConflict
	case CodeLinkNotFound:
		return http.StatusNotFound
	case CodeLinkExpired:
		return http.StatusGone
	case CodeForbidden:
		return http.StatusForbidden
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeSpaceExhausted, CodeUpstreamUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
