package stt

import (
	"context"
	"sync"
	"time"
)

// MockSource implements Source for testing. Tests feed transcripts in
// with Push; sequence numbers are assigned automatically.
type MockSource struct {
	// StartFunc overrides Start behavior. If nil, Start succeeds.
	StartFunc func(ctx context.Context) error

	mu          sync.Mutex
	seq         uint64
	closed      bool
	transcripts chan Transcript
}

// NewMockSource creates a mock transcript source.
func NewMockSource() *MockSource {
	return &MockSource{
		transcripts: make(chan Transcript, 32),
	}
}

// Start begins the mock source.
func (m *MockSource) Start(ctx context.Context) error {
	if m.StartFunc != nil {
		return m.StartFunc(ctx)
	}
	return nil
}

// Transcripts returns the transcript channel.
func (m *MockSource) Transcripts() <-chan Transcript {
	return m.transcripts
}

// Push delivers an utterance with the next sequence number.
// Blocks if the channel buffer is full.
func (m *MockSource) Push(text string) Transcript {
	m.mu.Lock()
	m.seq++
	t := Transcript{Seq: m.seq, Text: text, CapturedAt: time.Now()}
	m.mu.Unlock()

	m.transcripts <- t
	return t
}

// Close closes the transcript channel.
func (m *MockSource) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	close(m.transcripts)
	return nil
}

// Verify MockSource implements Source at compile time.
var _ Source = (*MockSource)(nil)
