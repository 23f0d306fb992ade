package audioio

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"
)

// PortAudioSource captures microphone audio through PortAudio.
type PortAudioSource struct {
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	stream  *portaudio.Stream
	frames  chan Frame
	stopCh  chan struct{}
	running bool
	closed  bool
}

// NewPortAudioSource creates a PortAudio-backed source.
// PortAudio is initialized lazily on Start.
func NewPortAudioSource(cfg Config, logger *slog.Logger) (*PortAudioSource, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PortAudioSource{
		cfg:    cfg,
		logger: logger.With("component", "audioio.source"),
	}, nil
}

// Start opens the default input device and begins capture.
func (s *PortAudioSource) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return io.ErrClosedPipe
	}
	if s.running {
		return nil
	}

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("portaudio init: %w", err)
	}

	buf := make([]int16, s.cfg.FrameSize()*s.cfg.Channels)
	stream, err := portaudio.OpenDefaultStream(
		s.cfg.Channels, 0, float64(s.cfg.SampleRate), len(buf), buf)
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("open input stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return fmt.Errorf("start input stream: %w", err)
	}

	s.stream = stream
	s.frames = make(chan Frame, 16)
	s.stopCh = make(chan struct{})
	s.running = true

	go s.captureLoop(ctx, buf)

	s.logger.Info("capture started",
		"sample_rate", s.cfg.SampleRate,
		"frame_ms", s.cfg.FrameDuration.Milliseconds(),
	)
	return nil
}

func (s *PortAudioSource) captureLoop(ctx context.Context, buf []int16) {
	defer close(s.frames)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		default:
		}

		if err := s.stream.Read(); err != nil {
			s.logger.Warn("capture read failed", "err", err)
			return
		}

		samples := make([]int16, len(buf))
		copy(samples, buf)
		frame := Frame{Samples: samples, SampleRate: s.cfg.SampleRate, Channels: s.cfg.Channels}

		select {
		case s.frames <- frame:
		default:
			// Consumer is behind; drop the frame rather than stall capture.
			s.logger.Debug("capture overrun, dropping frame")
		}
	}
}

// Frames returns the captured audio channel.
func (s *PortAudioSource) Frames() <-chan Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// Stop halts capture.
func (s *PortAudioSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false
	close(s.stopCh)

	if err := s.stream.Stop(); err != nil {
		s.logger.Warn("stop input stream", "err", err)
	}
	return nil
}

// Config returns the source configuration.
func (s *PortAudioSource) Config() Config { return s.cfg }

// Name returns the backend name.
func (s *PortAudioSource) Name() string { return string(BackendPortAudio) }

// Close stops capture and releases the device.
func (s *PortAudioSource) Close() error {
	s.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	if s.stream != nil {
		s.stream.Close()
		s.stream = nil
	}
	return portaudio.Terminate()
}

// PortAudioSink plays audio through the default PortAudio output device.
type PortAudioSink struct {
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	stream  *portaudio.Stream
	buf     []int16
	pending []int16
	running bool
	closed  bool
}

// NewPortAudioSink creates a PortAudio-backed sink.
func NewPortAudioSink(cfg Config, logger *slog.Logger) (*PortAudioSink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PortAudioSink{
		cfg:    cfg,
		logger: logger.With("component", "audioio.sink"),
	}, nil
}

// Start opens the default output device.
func (s *PortAudioSink) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return io.ErrClosedPipe
	}
	if s.running {
		return nil
	}

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("portaudio init: %w", err)
	}

	s.buf = make([]int16, s.cfg.FrameSize()*s.cfg.Channels)
	stream, err := portaudio.OpenDefaultStream(
		0, s.cfg.Channels, float64(s.cfg.SampleRate), len(s.buf), s.buf)
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("open output stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return fmt.Errorf("start output stream: %w", err)
	}

	s.stream = stream
	s.running = true

	s.logger.Info("playback started", "sample_rate", s.cfg.SampleRate)
	return nil
}

// Write plays a frame, resampling to the sink rate when necessary.
// Blocks while the device buffer is full.
func (s *PortAudioSink) Write(ctx context.Context, f Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return fmt.Errorf("sink not started")
	}

	samples := f.Samples
	if f.SampleRate != 0 && f.SampleRate != s.cfg.SampleRate {
		samples = Resample(samples, f.SampleRate, s.cfg.SampleRate)
	}
	s.pending = append(s.pending, samples...)

	for len(s.pending) >= len(s.buf) {
		if err := ctx.Err(); err != nil {
			return err
		}
		copy(s.buf, s.pending[:len(s.buf)])
		s.pending = s.pending[len(s.buf):]
		if err := s.stream.Write(); err != nil {
			return fmt.Errorf("write output stream: %w", err)
		}
	}
	return nil
}

// Flush pads and writes any partial frame, then waits for the device to drain.
func (s *PortAudioSink) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	if len(s.pending) > 0 {
		for i := range s.buf {
			if i < len(s.pending) {
				s.buf[i] = s.pending[i]
			} else {
				s.buf[i] = 0
			}
		}
		s.pending = s.pending[:0]
		if err := s.stream.Write(); err != nil {
			return fmt.Errorf("write output stream: %w", err)
		}
	}

	// One frame of device latency remains after the last write returns.
	select {
	case <-time.After(s.cfg.FrameDuration):
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// Stop halts playback.
func (s *PortAudioSink) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false
	s.pending = nil

	if err := s.stream.Stop(); err != nil {
		s.logger.Warn("stop output stream", "err", err)
	}
	return nil
}

// Config returns the sink configuration.
func (s *PortAudioSink) Config() Config { return s.cfg }

// Name returns the backend name.
func (s *PortAudioSink) Name() string { return string(BackendPortAudio) }

// Close stops playback and releases the device.
func (s *PortAudioSink) Close() error {
	s.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	if s.stream != nil {
		s.stream.Close()
		s.stream = nil
	}
	return portaudio.Terminate()
}

var (
	_ Source = (*PortAudioSource)(nil)
	_ Sink   = (*PortAudioSink)(nil)
)
