// Package apierr defines the platform error taxonomy and the echo error
// handler that renders every failure as the standard
// {"success":false,"error":...,"message":...} envelope.
package apierr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Code is a stable, machine-readable error code carried in API responses.
type Code string

const (
	CodeValidation        Code = "validation_error"
	CodeNotFound          Code = "not_found"
	CodeAccessDenied      Code = "access_denied"
	CodeInvalidTransition Code = "invalid_transition"
	CodeConflict          Code = "conflict"
	CodeUnauthorized      Code = "unauthorized"
	CodeUpstream          Code = "upstream_unavailable"
	CodeInternal          Code = "internal_error"
)

// Error is the canonical application error. It carries an HTTP status, a
// stable code, and a human-readable message safe to return to callers.
type Error struct {
	Status  int
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// WithCause attaches an underlying error for logging; the cause is never
// rendered in the API response.
func (e *Error) WithCause(err error) *Error {
	return &Error{Status: e.Status, Code: e.Code, Message: e.Message, cause: err}
}

func Validation(format string, args ...interface{}) *Error {
	return &Error{Status: http.StatusBadRequest, Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) *Error {
	return &Error{Status: http.StatusNotFound, Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

func AccessDenied(format string, args ...interface{}) *Error {
	return &Error{Status: http.StatusForbidden, Code: CodeAccessDenied, Message: fmt.Sprintf(format, args...)}
}

// InvalidTransition names both statuses, as required for progress updates.
func InvalidTransition(from, to string) *Error {
	if from == "" {
		from = "none"
	}
	return &Error{
		Status:  http.StatusBadRequest,
		Code:    CodeInvalidTransition,
		Message: fmt.Sprintf("invalid progress transition from %q to %q", from, to),
	}
}

func Conflict(format string, args ...interface{}) *Error {
	return &Error{Status: http.StatusConflict, Code: CodeConflict, Message: fmt.Sprintf(format, args...)}
}

func Unauthorized(format string, args ...interface{}) *Error {
	return &Error{Status: http.StatusUnauthorized, Code: CodeUnauthorized, Message: fmt.Sprintf(format, args...)}
}

func Upstream(format string, args ...interface{}) *Error {
	return &Error{Status: http.StatusServiceUnavailable, Code: CodeUpstream, Message: fmt.Sprintf(format, args...)}
}

// IsCode reports whether err is an *Error with the given code.
func IsCode(err error, code Code) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Code == code
}

// failure is the wire shape of an error response.
type failure struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// OK wraps data in the standard success envelope.
func OK(data interface{}) map[string]interface{} {
	return map[string]interface{}{"success": true, "data": data}
}

// HTTPErrorHandler returns an echo error handler that maps application and
// framework errors onto the failure envelope. Unknown errors become opaque
// 500s; the cause goes to the log, never to the caller.
func HTTPErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		body := failure{Error: string(CodeInternal), Message: "internal server error"}

		var ae *Error
		var he *echo.HTTPError
		switch {
		case errors.As(err, &ae):
			status = ae.Status
			body.Error = string(ae.Code)
			body.Message = ae.Message
		case errors.As(err, &he):
			status = he.Code
			body.Error = string(codeForStatus(he.Code))
			body.Message = fmt.Sprintf("%v", he.Message)
		}

		if status >= http.StatusInternalServerError {
			rid, _ := c.Get("request_id").(string)
			logger.Error().Err(err).
				Str("request_id", rid).
				Str("path", c.Request().URL.Path).
				Msg("request failed")
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}
		_ = c.JSON(status, body)
	}
}

func codeForStatus(status int) Code {
	switch status {
	case http.StatusBadRequest:
		return CodeValidation
	case http.StatusUnauthorized:
		return CodeUnauthorized
	case http.StatusForbidden:
		return CodeAccessDenied
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusConflict:
		return CodeConflict
	case http.StatusServiceUnavailable:
		return CodeUpstream
	default:
		return CodeInternal
	}
}
