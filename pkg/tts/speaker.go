package tts

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/voxhollow/holo/pkg/audioio"
)

// Speaker turns agent replies into audible speech. Speak blocks until
// playback has finished, which is what keeps the agent from listening
// to itself or starting the next turn mid-sentence.
type Speaker struct {
	synth  Synthesizer
	sink   audioio.Sink
	logger *slog.Logger
}

// NewSpeaker combines a synthesizer and an audio sink.
func NewSpeaker(synth Synthesizer, sink audioio.Sink, logger *slog.Logger) *Speaker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Speaker{
		synth:  synth,
		sink:   sink,
		logger: logger.With("component", "tts.speaker"),
	}
}

// Speak synthesizes text and plays it to completion. Empty or
// whitespace-only text is a no-op.
func (s *Speaker) Speak(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	result, err := s.synth.Synthesize(ctx, text)
	if err != nil {
		return fmt.Errorf("synthesize: %w", err)
	}

	s.logger.Debug("speaking",
		"chars", result.CharCount,
		"duration", result.Duration(),
	)

	samples := audioio.BytesToSamples(result.Audio)
	sinkCfg := s.sink.Config()
	frameSize := sinkCfg.FrameSize()

	for off := 0; off < len(samples); off += frameSize {
		end := off + frameSize
		if end > len(samples) {
			end = len(samples)
		}
		frame := audioio.Frame{
			Samples:    samples[off:end],
			SampleRate: result.SampleRate,
			Channels:   result.Channels,
		}
		if err := s.sink.Write(ctx, frame); err != nil {
			return fmt.Errorf("play: %w", err)
		}
	}

	if err := s.sink.Flush(ctx); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}

// Close releases the synthesizer. The sink is owned by the caller.
func (s *Speaker) Close() error {
	return s.synth.Close()
}
