// Package apperror carries the error kinds every domain service reports.
// Handlers branch on Kind instead of on concrete domain error types.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindValidation
	KindConflict
	KindForbidden
	KindPaymentDeclined
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindForbidden:
		return "forbidden"
	case KindPaymentDeclined:
		return "payment_declined"
	default:
		return "internal"
	}
}

// HTTPStatus maps the kind to the status code handlers respond with.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindConflict:
		return http.StatusConflict
	case KindForbidden:
		return http.StatusForbidden
	case KindPaymentDeclined:
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}

// AppError is a classified error with a stable domain code (e.g. RSV003).
type AppError struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
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

func New(kind Kind, code, message string, err error) *AppError {
	return &AppError{Kind: kind, Code: code, Message: message, Err: err}
}

func NotFound(code, message string, err error) *AppError {
	return New(KindNotFound, code, message, err)
}

func Validation(code, message string, err error) *AppError {
	return New(KindValidation, code, message, err)
}

func Conflict(code, message string, err error) *AppError {
	return New(KindConflict, code, message, err)
}

func Forbidden(code, message string, err error) *AppError {
	return New(KindForbidden, code, message, err)
}

func PaymentDeclined(code, message string, err error) *AppError {
	return New(KindPaymentDeclined, code, message, err)
}

// Internal wraps an unexpected failure. The message shown to callers is generic.
func Internal(code string, err error) *AppError {
	return New(KindInternal, code, "internal server error", err)
}

// KindOf returns the kind of the first AppError in err's chain.
// Unclassified errors are internal.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// As extracts the AppError from err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	ok := errors.As(err, &appErr)
	return appErr, ok
}
