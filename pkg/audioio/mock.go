package audioio

import (
	"context"
	"io"
	"log/slog"
	"math"
	"sync"
	"time"
)

// MockSource is an audio source for testing.
// It generates synthetic frames (silence or a sine wave) on a timer,
// and also accepts frames pushed directly by tests.
type MockSource struct {
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	running bool
	closed  bool
	frames  chan Frame
	stopCh  chan struct{}

	phase     float64
	frequency float64 // Hz, 0 = silence
	amplitude float64
}

// MockSourceOption configures a MockSource.
type MockSourceOption func(*MockSource)

// WithSineWave configures the mock to generate a sine wave.
func WithSineWave(frequency, amplitude float64) MockSourceOption {
	return func(m *MockSource) {
		m.frequency = frequency
		m.amplitude = amplitude
	}
}

// NewMockSource creates a new mock audio source.
func NewMockSource(cfg Config, logger *slog.Logger, opts ...MockSourceOption) *MockSource {
	if logger == nil {
		logger = slog.Default()
	}
	m := &MockSource{
		cfg:       cfg,
		logger:    logger,
		frames:    make(chan Frame, 16),
		stopCh:    make(chan struct{}),
		amplitude: 0.5,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start begins generating frames.
func (m *MockSource) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return io.ErrClosedPipe
	}
	if m.running {
		return nil
	}
	m.running = true
	m.stopCh = make(chan struct{})

	go m.generateLoop(ctx)
	return nil
}

func (m *MockSource) generateLoop(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.FrameDuration)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case <-ticker.C:
			select {
			case m.frames <- m.generateFrame():
			default:
				m.logger.Debug("mock source: buffer full, dropping frame")
			}
		}
	}
}

func (m *MockSource) generateFrame() Frame {
	n := m.cfg.FrameSize()
	samples := make([]int16, n*m.cfg.Channels)

	if m.frequency > 0 {
		for i := 0; i < n; i++ {
			v := m.amplitude * math.Sin(2*math.Pi*m.frequency*m.phase/float64(m.cfg.SampleRate))
			s := int16(v * 32767)
			for ch := 0; ch < m.cfg.Channels; ch++ {
				samples[i*m.cfg.Channels+ch] = s
			}
			m.phase++
			if m.phase >= float64(m.cfg.SampleRate) {
				m.phase = 0
			}
		}
	}

	return Frame{Samples: samples, SampleRate: m.cfg.SampleRate, Channels: m.cfg.Channels}
}

// Push injects a frame directly, bypassing the generator.
func (m *MockSource) Push(f Frame) {
	m.frames <- f
}

// Frames returns the frame channel.
func (m *MockSource) Frames() <-chan Frame { return m.frames }

// Stop halts generation.
func (m *MockSource) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return nil
	}
	m.running = false
	close(m.stopCh)
	return nil
}

// Config returns the source configuration.
func (m *MockSource) Config() Config { return m.cfg }

// Name returns the backend name.
func (m *MockSource) Name() string { return string(BackendMock) }

// Close stops the source and closes the frame channel.
func (m *MockSource) Close() error {
	m.Stop()
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.frames)
	}
	return nil
}

// MockSink is an audio sink for testing. It records everything written.
type MockSink struct {
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	running bool
	closed  bool
	written []Frame

	// WriteDelay simulates playback time per frame when non-zero.
	WriteDelay time.Duration
}

// NewMockSink creates a new mock audio sink.
func NewMockSink(cfg Config, logger *slog.Logger) *MockSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &MockSink{cfg: cfg, logger: logger}
}

// Start marks the sink as running.
func (m *MockSink) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return io.ErrClosedPipe
	}
	m.running = true
	return nil
}

// Write records the frame.
func (m *MockSink) Write(ctx context.Context, f Frame) error {
	if m.WriteDelay > 0 {
		select {
		case <-time.After(m.WriteDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return io.ErrClosedPipe
	}
	m.written = append(m.written, f)
	return nil
}

// Flush is a no-op for the mock.
func (m *MockSink) Flush(ctx context.Context) error { return nil }

// Stop marks the sink as stopped.
func (m *MockSink) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = false
	return nil
}

// Config returns the sink configuration.
func (m *MockSink) Config() Config { return m.cfg }

// Name returns the backend name.
func (m *MockSink) Name() string { return string(BackendMock) }

// Close stops the sink.
func (m *MockSink) Close() error {
	m.Stop()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Written returns a copy of all frames written so far.
func (m *MockSink) Written() []Frame {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Frame, len(m.written))
	copy(out, m.written)
	return out
}

// WrittenSamples returns the total sample count written.
func (m *MockSink) WrittenSamples() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, f := range m.written {
		n += len(f.Samples)
	}
	return n
}

var (
	_ Source = (*MockSource)(nil)
	_ Sink   = (*MockSink)(nil)
)
