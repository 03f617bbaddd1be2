// Package types holds the wire envelopes returned by the control API.
package types

// OKResponse wraps every successful reply.
type OKResponse struct {
	OK        bool   `json:"ok"`
	RequestID string `json:"request_id"`
	Timestamp string `json:"timestamp"`
	Data      any    `json:"data"`
}

// ErrorResponse wraps every failed reply.
type ErrorResponse struct {
	OK        bool      `json:"ok"`
	RequestID string    `json:"request_id"`
	Timestamp string    `json:"timestamp"`
	Error     ErrorBody `json:"error"`
}

// ErrorBody is the structured error of an ErrorResponse.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
}

// APIKeyHeader carries the shared secret when authentication is enabled.
const APIKeyHeader = "X-Api-Key"

// RequestIDHeader echoes the correlation id of every request.
const RequestIDHeader = "X-Request-Id"
