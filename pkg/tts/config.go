package tts

import (
	"log/slog"
	"time"
)

// Config holds synthesis client configuration.
type Config struct {
	// URL is the WebSocket endpoint (ws:// or wss://).
	URL string

	// Voice selects the service voice (optional).
	Voice string

	// HandshakeTimeout bounds the WebSocket dial.
	HandshakeTimeout time.Duration

	// SynthTimeout bounds one complete synthesis exchange.
	SynthTimeout time.Duration

	// Logger is the structured logger.
	Logger *slog.Logger
}

// Option is a functional option for configuring the client.
type Option func(*Config)

// WithURL sets the WebSocket endpoint.
func WithURL(url string) Option {
	return func(c *Config) { c.URL = url }
}

// WithVoice sets the service voice.
func WithVoice(voice string) Option {
	return func(c *Config) { c.Voice = voice }
}

// WithHandshakeTimeout sets the dial timeout.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(c *Config) { c.HandshakeTimeout = d }
}

// WithSynthTimeout sets the per-utterance timeout.
func WithSynthTimeout(d time.Duration) Option {
	return func(c *Config) { c.SynthTimeout = d }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		HandshakeTimeout: 10 * time.Second,
		SynthTimeout:     30 * time.Second,
		Logger:           slog.Default(),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.URL == "" {
		return ErrNoURL
	}
	return nil
}
