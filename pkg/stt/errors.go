package stt

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions.
var (
	// ErrNoURL is returned when the endpoint URL is missing.
	ErrNoURL = errors.New("stt: endpoint URL required")

	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("stt: already started")

	// ErrClosed is returned when operating on a closed source.
	ErrClosed = errors.New("stt: closed")
)

// ConnectionError wraps a transport failure with endpoint context.
type ConnectionError struct {
	URL string
	Err error
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	return fmt.Sprintf("stt: connection to %s failed: %v", e.URL, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConnectionError) Unwrap() error {
	return e.Err
}
