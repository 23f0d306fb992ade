// Package tts converts agent replies to speech via a remote synthesis
// service and plays them through an audio sink.
//
// The Client implements the WebSocket synthesis protocol: one text
// request per utterance, answered by a format header, a stream of PCM16
// chunks, and a completion marker. The Speaker combines a Synthesizer
// with an audio sink into the blocking speech operation the agent loop
// calls between turns.
package tts

import (
	"context"
	"time"
)

// Synthesizer converts text to audio.
type Synthesizer interface {
	// Synthesize converts text to audio, returning the complete buffer.
	Synthesize(ctx context.Context, text string) (*AudioResult, error)

	// Close releases any resources held by the synthesizer.
	Close() error
}

// AudioResult represents a complete synthesis result.
type AudioResult struct {
	// Audio contains raw little-endian PCM16 samples.
	Audio []byte

	// SampleRate in Hz, as reported by the service.
	SampleRate int

	// Channels is 1 for mono.
	Channels int

	// CharCount is the number of characters synthesized.
	CharCount int

	// LatencyMs is the time to first audio byte in milliseconds.
	LatencyMs int64
}

// Duration returns the playback duration of the audio.
func (r *AudioResult) Duration() time.Duration {
	if r.SampleRate <= 0 || r.Channels <= 0 {
		return 0
	}
	samples := len(r.Audio) / 2 / r.Channels
	return time.Duration(samples) * time.Second / time.Duration(r.SampleRate)
}
