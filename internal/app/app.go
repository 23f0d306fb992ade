// Package app wires the holo pipeline together: microphone capture,
// remote transcription, the agent loop, and speech playback.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/voxhollow/holo/internal/web"
	"github.com/voxhollow/holo/pkg/agent"
	"github.com/voxhollow/holo/pkg/audioio"
	"github.com/voxhollow/holo/pkg/inference"
	"github.com/voxhollow/holo/pkg/stt"
	"github.com/voxhollow/holo/pkg/tool"
	"github.com/voxhollow/holo/pkg/tts"
)

// DefaultSystemPrompt is the assistant persona.
const DefaultSystemPrompt = `You are Holo, a helpful voice assistant.
Keep replies short and conversational, they will be spoken aloud.
Use your tools when asked to act; do not invent results.
If you did something, confirm it in a few words.`

// Config holds everything needed to assemble the pipeline.
type Config struct {
	// Remote services
	STTURL     string
	TTSURL     string
	TTSVoice   string
	LLMBaseURL string
	LLMKey     string
	LLMModel   string

	// Backup chat completion endpoint tried when the primary fails.
	// Empty means single-provider.
	LLMFallbackURL string

	// Behavior
	SystemPrompt string

	// Dashboard listen address. Empty disables the dashboard.
	WebAddr string

	// Audio device backend.
	AudioBackend audioio.Backend
}

// App is the assembled pipeline.
type App struct {
	cfg    Config
	logger *slog.Logger

	source    audioio.Source
	sink      audioio.Sink
	sttClient *stt.Client
	synth     *tts.Client
	provider  inference.Provider
	registry  *tool.Registry
	agent     *agent.Agent
	web       *web.Server

	memory *memoryStore
	timers *timerStore
}

// New assembles the pipeline. Nothing is started yet.
func New(cfg Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}

	audioCfg := audioio.DefaultConfig()
	if cfg.AudioBackend != "" {
		audioCfg.Backend = cfg.AudioBackend
	}

	source, err := audioio.NewSource(audioCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("audio source: %w", err)
	}
	sink, err := audioio.NewSink(audioCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("audio sink: %w", err)
	}

	sttClient, err := stt.NewClient(source.Frames(),
		stt.WithURL(cfg.STTURL),
		stt.WithSampleRate(audioCfg.SampleRate),
		stt.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("stt client: %w", err)
	}

	synth, err := tts.NewClient(
		tts.WithURL(cfg.TTSURL),
		tts.WithVoice(cfg.TTSVoice),
		tts.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("tts client: %w", err)
	}
	speaker := tts.NewSpeaker(synth, sink, logger)

	primary, err := inference.NewClient(
		inference.WithBaseURL(cfg.LLMBaseURL),
		inference.WithAPIKey(cfg.LLMKey),
		inference.WithModel(cfg.LLMModel),
		inference.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("inference client: %w", err)
	}
	var provider inference.Provider = primary
	if cfg.LLMFallbackURL != "" {
		backup, err := inference.NewClient(
			inference.WithBaseURL(cfg.LLMFallbackURL),
			inference.WithAPIKey(cfg.LLMKey),
			inference.WithModel(cfg.LLMModel),
			inference.WithLogger(logger),
		)
		if err != nil {
			return nil, fmt.Errorf("fallback inference client: %w", err)
		}
		chain, err := inference.NewChainWithLogger(logger, primary, backup)
		if err != nil {
			return nil, fmt.Errorf("provider chain: %w", err)
		}
		provider = chain
	}

	memory := newMemoryStore()
	timers := newTimerStore(logger.With("component", "app.timers"))
	registry := tool.NewRegistry(logger)
	if err := registerBuiltins(registry, memory, timers); err != nil {
		return nil, fmt.Errorf("register tools: %w", err)
	}

	ag, err := agent.New(provider, registry, speaker, sttClient.Transcripts(),
		agent.WithSystemPrompt(cfg.SystemPrompt),
		agent.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("agent: %w", err)
	}

	a := &App{
		cfg:       cfg,
		logger:    logger.With("component", "app"),
		source:    source,
		sink:      sink,
		sttClient: sttClient,
		synth:     synth,
		provider:  provider,
		registry:  registry,
		agent:     ag,
		memory:    memory,
		timers:    timers,
	}
	if cfg.WebAddr != "" {
		a.web = web.NewServer(cfg.WebAddr, ag, registry, logger)
	}
	return a, nil
}

// Run starts every component and blocks on the agent loop until the
// context is cancelled.
func (a *App) Run(ctx context.Context) error {
	if err := a.source.Start(ctx); err != nil {
		return fmt.Errorf("start capture: %w", err)
	}
	if err := a.sink.Start(ctx); err != nil {
		return fmt.Errorf("start playback: %w", err)
	}
	if err := a.sttClient.Start(ctx); err != nil {
		return fmt.Errorf("start transcription: %w", err)
	}
	if a.web != nil {
		a.web.StartAsync()
	}

	a.logger.Info("pipeline running",
		"stt", a.cfg.STTURL,
		"tts", a.cfg.TTSURL,
		"model", a.cfg.LLMModel,
	)

	err := a.agent.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Shutdown tears the pipeline down in reverse order.
func (a *App) Shutdown() {
	a.logger.Info("shutting down")

	if a.web != nil {
		if err := a.web.Shutdown(); err != nil {
			a.logger.Warn("dashboard shutdown failed", "error", err)
		}
	}
	a.timers.stopAll()
	if err := a.sttClient.Close(); err != nil {
		a.logger.Warn("stt close failed", "error", err)
	}
	if err := a.source.Close(); err != nil {
		a.logger.Warn("capture close failed", "error", err)
	}
	if err := a.sink.Close(); err != nil {
		a.logger.Warn("playback close failed", "error", err)
	}
	a.synth.Close()
	a.provider.Close()
}
