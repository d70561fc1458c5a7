package amino

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions.
var (
	ErrSocketClosed = errors.New("amino: socket closed")
	ErrNotLoggedIn  = errors.New("amino: not logged in")
)

// ConnectionError represents a transport-level error on the event stream.
type ConnectionError struct {
	Op  string
	URL string
	Err error
}

func (e *ConnectionError) Error() string {
	if e.URL != "" {
		return fmt.Sprintf("amino: %s %s: %v", e.Op, e.URL, e.Err)
	}
	return fmt.Sprintf("amino: %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// RequestError represents a failure sending or decoding an HTTP request.
// Service-level errors carried inside a well-formed JSON body are not
// RequestErrors; see APIError.
type RequestError struct {
	Op   string
	Path string
	Err  error
}

func (e *RequestError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("amino: %s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("amino: %s: %v", e.Op, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// TokenError represents a malformed session token.
type TokenError struct {
	Err error
}

func (e *TokenError) Error() string {
	return fmt.Sprintf("amino: decode session token: %v", e.Err)
}

func (e *TokenError) Unwrap() error {
	return e.Err
}

// APIError represents a service-level error code embedded in an otherwise
// well-formed JSON response body.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("amino: api error %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("amino: api error %d", e.StatusCode)
}
