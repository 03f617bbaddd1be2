// Package envelope defines the API error taxonomy and writes the uniform
// response envelope.
package envelope

import (
	"net/http"
	"time"

	"github.com/bhandras/avatarctl/pkg/types"
	"github.com/gin-gonic/gin"
)

// Code is a stable, machine-readable error code.
type Code string

const (
	CodeInvalidRequest Code = "invalid-request"
	CodeUnauthorized   Code = "unauthorized"
	CodeNotFound       Code = "not-found"
	CodeConflict       Code = "conflict"
	CodeUnsupported    Code = "unsupported"
	CodeInternal       Code = "internal"
)

// Status maps the code to its HTTP status.
func (c Code) Status() int {
	switch c {
	case CodeInvalidRequest:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeUnsupported:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Error is an API-facing error.
type Error struct {
	Code    Code
	Message string
	Details string
}

// Error implements error.
func (e *Error) Error() string {
	if e.Details == "" {
		return string(e.Code) + ": " + e.Message
	}
	return string(e.Code) + ": " + e.Message + ": " + e.Details
}

// New creates an API error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithDetails returns a copy of e carrying details.
func (e *Error) WithDetails(details string) *Error {
	cp := *e
	cp.Details = details
	return &cp
}

func InvalidRequest(details string) *Error {
	return &Error{Code: CodeInvalidRequest, Message: "invalid request", Details: details}
}

func Unauthorized() *Error { return New(CodeUnauthorized, "unauthorized") }

func NotFound(message string) *Error { return New(CodeNotFound, message) }

func Conflict(message string) *Error { return New(CodeConflict, message) }

func Unsupported(message string) *Error { return New(CodeUnsupported, message) }

func Internal(details string) *Error {
	return &Error{Code: CodeInternal, Message: "internal error", Details: details}
}

const requestIDKey = "requestID"

// SetRequestID stores the correlation id of the current request.
func SetRequestID(c *gin.Context, id string) {
	c.Set(requestIDKey, id)
}

// RequestID returns the correlation id of the current request.
func RequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

func timestamp() string {
	return time.Now().Format(time.RFC3339Nano)
}

// OK writes a success envelope.
func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, types.OKResponse{
		OK:        true,
		RequestID: RequestID(c),
		Timestamp: timestamp(),
		Data:      data,
	})
}

// Fail writes an error envelope and aborts the handler chain.
func Fail(c *gin.Context, err *Error) {
	c.AbortWithStatusJSON(err.Code.Status(), ErrorBody(c, err))
}

// ErrorBody builds the error envelope for err without writing it.
func ErrorBody(c *gin.Context, err *Error) types.ErrorResponse {
	return types.ErrorResponse{
		OK:        false,
		RequestID: RequestID(c),
		Timestamp: timestamp(),
		Error: types.ErrorBody{
			Code:    string(err.Code),
			Message: err.Message,
			Details: err.Details,
		},
	}
}
