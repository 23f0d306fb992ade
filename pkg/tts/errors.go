package tts

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions.
var (
	// ErrNoURL is returned when the endpoint URL is missing.
	ErrNoURL = errors.New("tts: endpoint URL required")

	// ErrSynthesisFailed is returned when the service reports an error.
	ErrSynthesisFailed = errors.New("tts: synthesis failed")

	// ErrNoAudio is returned when the service completes without audio.
	ErrNoAudio = errors.New("tts: no audio returned")
)

// ConnectionError wraps a transport failure with endpoint context.
type ConnectionError struct {
	URL string
	Err error
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	return fmt.Sprintf("tts: connection to %s failed: %v", e.URL, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConnectionError) Unwrap() error {
	return e.Err
}
