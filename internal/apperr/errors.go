package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies an error independently of the transport.
type Code string

const (
	CodeNotFound     Code = "NOT_FOUND"
	CodeInvalid      Code = "INVALID"
	CodeConflict     Code = "CONFLICT"
	CodeForbidden    Code = "FORBIDDEN"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeInternal     Code = "INTERNAL"
)

// Error is a domain error carrying a user-facing message.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

func Invalid(message string) *Error      { return New(CodeInvalid, message) }
func NotFound(message string) *Error     { return New(CodeNotFound, message) }
func Conflict(message string) *Error     { return New(CodeConflict, message) }
func Forbidden(message string) *Error    { return New(CodeForbidden, message) }
func Unauthorized(message string) *Error { return New(CodeUnauthorized, message) }

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// HTTPStatus maps err to a response status and the message safe to show a client.
// Errors without a domain code are internal and their text is not exposed.
func HTTPStatus(err error) (int, string) {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError, "Internal server error"
	}
	switch e.Code {
	case CodeNotFound:
		return http.StatusNotFound, e.Message
	case CodeInvalid:
		return http.StatusBadRequest, e.Message
	case CodeConflict:
		return http.StatusConflict, e.Message
	case CodeForbidden:
		return http.StatusForbidden, e.Message
	case CodeUnauthorized:
		return http.StatusUnauthorized, e.Message
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}
