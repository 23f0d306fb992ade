package agent

import (
	"log/slog"
	"time"
)

const (
	// DefaultMaxToolRounds bounds tool dispatch cycles within one turn.
	// A model stuck requesting tools forever gets cut off here.
	DefaultMaxToolRounds = 8

	// DefaultLLMTimeout bounds one chat completion call.
	DefaultLLMTimeout = 60 * time.Second
)

// DefaultFallbackReply is spoken when a turn cannot be completed.
const DefaultFallbackReply = "Sorry, I ran into a problem with that. Could you say it again?"

// Config holds agent loop configuration.
type Config struct {
	// SystemPrompt seeds the conversation history.
	SystemPrompt string

	// MaxToolRounds is the maximum number of model round-trips that may
	// request tools within a single turn.
	MaxToolRounds int

	// LLMTimeout bounds each chat completion call.
	LLMTimeout time.Duration

	// FallbackReply is spoken when the model fails or the tool round
	// budget is exhausted.
	FallbackReply string

	// Logger is the structured logger.
	Logger *slog.Logger
}

// Option is a functional option for configuring the agent.
type Option func(*Config)

// WithSystemPrompt sets the system instruction.
func WithSystemPrompt(prompt string) Option {
	return func(c *Config) { c.SystemPrompt = prompt }
}

// WithMaxToolRounds sets the tool round budget per turn.
func WithMaxToolRounds(n int) Option {
	return func(c *Config) { c.MaxToolRounds = n }
}

// WithLLMTimeout sets the per-completion timeout.
func WithLLMTimeout(d time.Duration) Option {
	return func(c *Config) { c.LLMTimeout = d }
}

// WithFallbackReply sets the spoken failure message.
func WithFallbackReply(text string) Option {
	return func(c *Config) { c.FallbackReply = text }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		MaxToolRounds: DefaultMaxToolRounds,
		LLMTimeout:    DefaultLLMTimeout,
		FallbackReply: DefaultFallbackReply,
		Logger:        slog.Default(),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}
