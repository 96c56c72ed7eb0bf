package common

import "errors"

// Canonical error codes surfaced to terminal clients. These are user-input
// validation failures, never retried.
const (
	CodeInvalidAmount       = "INVALID_AMOUNT"
	CodeInvalidDiscount     = "INVALID_DISCOUNT"
	CodeInsufficientPayment = "INSUFFICIENT_PAYMENT"
	CodeForbidden           = "FORBIDDEN"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeNotFound            = "NOT_FOUND"
	CodeBadRequest          = "BAD_REQUEST"
	CodeInternal            = "INTERNAL"
	CodeUpstream            = "UPSTREAM_UNAVAILABLE"
)

// AppError carries a client-facing code and HTTP status alongside the cause.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
	Details    any
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap lets errors.Is/As reach the underlying cause.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// AsAppError extracts an AppError from an error chain.
func AsAppError(err error) (*AppError, bool) {
	var target *AppError
	ok := errors.As(err, &target)
	return target, ok
}
