package client

import (
	"fmt"
	"strings"
)

// TransportError is returned when no response reached the client
type TransportError struct {
	Err error
}

// Error returns the string representation of the error
func (e *TransportError) Error() string {
	return "network error: " + e.Err.Error()
}

// Unwrap returns the underlying error
func (e *TransportError) Unwrap() error {
	return e.Err
}

// HTTPError is returned when the query service responded with a non-2xx status
type HTTPError struct {
	Status int
	Detail string
}

// Error returns the detail sent by the server, verbatim, or a generic message
func (e *HTTPError) Error() string {
	if len(strings.TrimSpace(e.Detail)) > 0 {
		return e.Detail
	}

	return fmt.Sprintf("HTTP error %d", e.Status)
}

// MalformedResponseError is returned when the payload does not have the expected shape
type MalformedResponseError struct {
	Reason string
}

// Error returns the string representation of the error
func (e *MalformedResponseError) Error() string {
	return "malformed response: " + e.Reason
}

// UpstreamError is returned when a 2xx payload carries an explicit error field
type UpstreamError struct {
	Message string
}

// Error returns the string representation of the error
func (e *UpstreamError) Error() string {
	return e.Message
}
