package swapi

import (
	"errors"
	"fmt"
	"time"
)

// Sentinels for matching a failure kind with errors.Is.
var (
	ErrTransport = errors.New("transport error")
	ErrStatus    = errors.New("http status error")
	ErrParse     = errors.New("parse error")
	ErrTimeout   = errors.New("request timeout")
)

// TransportError is a connection-level failure: DNS, refused or reset
// connections, TLS failures, a broken body stream, or caller cancellation.
type TransportError struct {
	Key string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Key, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// StatusError means the API answered with a status code of 400 or above.
type StatusError struct {
	Key  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: request failed with status code %d", e.Key, e.Code)
}

func (e *StatusError) Is(target error) bool { return target == ErrStatus }

// ParseError means the response body was not valid JSON.
type ParseError struct {
	Key string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("fetch %s: parse body: %v", e.Key, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrParse }

// TimeoutError means the request did not complete within the configured
// window and was aborted.
type TimeoutError struct {
	Key     string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("request timeout for %s after %dms", e.Key, e.Timeout.Milliseconds())
}

func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

// Kind returns a short label for err suitable for logs and audit records.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrStatus):
		return "status"
	case errors.Is(err, ErrParse):
		return "parse"
	case errors.Is(err, ErrTransport):
		return "transport"
	default:
		return "unknown"
	}
}
