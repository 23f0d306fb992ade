package audioio

import (
	"context"
	"io"
)

// Sink plays audio to a speaker or other output device.
type Sink interface {
	// Start prepares the output device for playback.
	Start(ctx context.Context) error

	// Stop halts playback. Safe to call multiple times.
	Stop() error

	// Write sends a frame to the output device.
	// Frames at a different sample rate than the sink's are resampled.
	// This may block while the device buffer is full.
	Write(ctx context.Context, f Frame) error

	// Flush blocks until all buffered audio has been played.
	Flush(ctx context.Context) error

	// Config returns the current audio configuration.
	Config() Config

	// Name returns the backend name (e.g. "portaudio", "mock").
	Name() string

	// Close releases all resources. The sink cannot be restarted after Close.
	io.Closer
}
