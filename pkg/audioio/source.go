package audioio

import (
	"context"
	"io"
)

// Frame is a chunk of PCM16 audio.
type Frame struct {
	// Samples contains PCM16 audio samples (little-endian when serialized).
	Samples []int16

	// SampleRate is the sample rate of this frame.
	SampleRate int

	// Channels is the number of channels in this frame.
	Channels int
}

// Bytes returns the frame as raw little-endian PCM16 bytes.
func (f *Frame) Bytes() []byte {
	return SamplesToBytes(f.Samples)
}

// FromBytes populates the frame from raw PCM16 bytes.
func (f *Frame) FromBytes(data []byte, sampleRate, channels int) {
	f.SampleRate = sampleRate
	f.Channels = channels
	f.Samples = BytesToSamples(data)
}

// Duration returns the playback duration of this frame in seconds.
func (f *Frame) Duration() float64 {
	if f.SampleRate == 0 || f.Channels == 0 {
		return 0
	}
	return float64(len(f.Samples)) / float64(f.SampleRate*f.Channels)
}

// Source captures audio from a microphone or other input device.
type Source interface {
	// Start begins audio capture. After Start, frames arrive on Frames.
	Start(ctx context.Context) error

	// Stop halts audio capture. Safe to call multiple times.
	Stop() error

	// Frames returns the channel carrying captured audio.
	// The channel is closed when the source is stopped.
	Frames() <-chan Frame

	// Config returns the current audio configuration.
	Config() Config

	// Name returns the backend name (e.g. "portaudio", "mock").
	Name() string

	// Close releases all resources. The source cannot be restarted after Close.
	io.Closer
}
