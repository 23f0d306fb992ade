// Package stt streams microphone audio to a remote speech-to-text
// service and delivers finalized transcripts to the agent.
//
// The Client maintains a WebSocket connection to the STT endpoint,
// writing raw PCM16 frames as they are captured and reading recognition
// segments back. Only segments the service marks final surface on the
// Transcripts channel; interim hypotheses are discarded. The connection
// is supervised: on failure the client reconnects with exponential
// backoff while sequence numbering continues uninterrupted, so a
// transcript's Seq is a reliable total order across the whole session.
package stt

import (
	"context"
	"time"
)

// Transcript is one finalized utterance from the recognizer.
type Transcript struct {
	// Seq orders transcripts over the lifetime of the source.
	// Strictly increasing, including across reconnects.
	Seq uint64

	// Text is the recognized utterance.
	Text string

	// CapturedAt is when the transcript was received.
	CapturedAt time.Time
}

// Source produces an ordered stream of finalized transcripts.
type Source interface {
	// Start begins capture and recognition. The source runs until the
	// context is cancelled or Close is called.
	Start(ctx context.Context) error

	// Transcripts returns the channel of finalized transcripts.
	// The channel is closed when the source shuts down.
	Transcripts() <-chan Transcript

	// Close releases resources and closes the transcript channel.
	Close() error
}
