package stt

import (
	"log/slog"
	"time"
)

const (
	reconnectBaseDelay = 1 * time.Second
	reconnectMaxDelay  = 30 * time.Second
	keepaliveInterval  = 30 * time.Second
)

// Config holds STT client configuration.
type Config struct {
	// URL is the WebSocket endpoint (ws:// or wss://).
	URL string

	// SampleRate the service expects, in Hz.
	SampleRate int

	// Channels the service expects.
	Channels int

	// HandshakeTimeout bounds the WebSocket dial.
	HandshakeTimeout time.Duration

	// ReconnectBaseDelay is the first reconnect delay. It doubles on
	// each failed attempt up to ReconnectMaxDelay.
	ReconnectBaseDelay time.Duration
	ReconnectMaxDelay  time.Duration

	// QueueSize is the transcript channel buffer.
	QueueSize int

	// Logger is the structured logger.
	Logger *slog.Logger
}

// Option is a functional option for configuring the client.
type Option func(*Config)

// WithURL sets the WebSocket endpoint.
func WithURL(url string) Option {
	return func(c *Config) { c.URL = url }
}

// WithSampleRate sets the expected sample rate.
func WithSampleRate(hz int) Option {
	return func(c *Config) { c.SampleRate = hz }
}

// WithHandshakeTimeout sets the dial timeout.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(c *Config) { c.HandshakeTimeout = d }
}

// WithReconnectDelays sets the backoff bounds.
func WithReconnectDelays(base, max time.Duration) Option {
	return func(c *Config) {
		c.ReconnectBaseDelay = base
		c.ReconnectMaxDelay = max
	}
}

// WithQueueSize sets the transcript channel buffer.
func WithQueueSize(n int) Option {
	return func(c *Config) { c.QueueSize = n }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// DefaultConfig returns sensible defaults for a 16kHz mono stream.
func DefaultConfig() *Config {
	return &Config{
		SampleRate:         16000,
		Channels:           1,
		HandshakeTimeout:   10 * time.Second,
		ReconnectBaseDelay: reconnectBaseDelay,
		ReconnectMaxDelay:  reconnectMaxDelay,
		QueueSize:          32,
		Logger:             slog.Default(),
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
