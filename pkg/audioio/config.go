// Package audioio provides microphone capture and speaker playback.
//
// Two backends are supported:
//   - PortAudio - production capture/playback on the local machine
//   - Mock - CI/testing without hardware
//
// The backend is selected via configuration; BackendAuto picks PortAudio.
package audioio

import (
	"fmt"
	"time"
)

// Backend represents the audio backend type.
type Backend string

const (
	// BackendAuto selects the best available backend.
	BackendAuto Backend = "auto"
	// BackendPortAudio uses PortAudio for capture and playback.
	BackendPortAudio Backend = "portaudio"
	// BackendMock uses a mock implementation for testing.
	BackendMock Backend = "mock"
)

// Config holds audio configuration shared by sources and sinks.
type Config struct {
	// Backend specifies which audio backend to use.
	Backend Backend `json:"backend"`

	// SampleRate is the audio sample rate in Hz.
	// Default: 16000 (what the transcription server expects).
	SampleRate int `json:"sample_rate"`

	// Channels is the number of audio channels. Default: 1 (mono).
	Channels int `json:"channels"`

	// FrameDuration is the size of one capture/playback buffer.
	// Default: 20ms (320 samples at 16kHz).
	FrameDuration time.Duration `json:"frame_duration"`
}

// DefaultConfig returns a Config with defaults for speech capture.
func DefaultConfig() Config {
	return Config{
		Backend:       BackendAuto,
		SampleRate:    16000,
		Channels:      1,
		FrameDuration: 20 * time.Millisecond,
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %d", c.SampleRate)
	}
	if c.Channels <= 0 {
		return fmt.Errorf("channels must be positive, got %d", c.Channels)
	}
	if c.FrameDuration <= 0 {
		return fmt.Errorf("frame_duration must be positive, got %v", c.FrameDuration)
	}
	return nil
}

// FrameSize returns the number of samples per frame per channel.
func (c *Config) FrameSize() int {
	return int(float64(c.SampleRate) * c.FrameDuration.Seconds())
}

// FrameBytes returns the size of one frame in bytes (PCM16).
func (c *Config) FrameBytes() int {
	return c.FrameSize() * c.Channels * 2
}
