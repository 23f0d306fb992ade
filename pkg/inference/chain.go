package inference

import (
	"context"
	"log/slog"
)

// Chain tries multiple providers in order until one succeeds.
type Chain struct {
	providers []Provider
	logger    *slog.Logger
}

// NewChain creates a provider chain.
// At least one provider is required.
func NewChain(providers ...Provider) (*Chain, error) {
	if len(providers) == 0 {
		return nil, ErrProviderUnavailable
	}
	return &Chain{
		providers: providers,
		logger:    slog.Default().With("component", "inference.chain"),
	}, nil
}

// NewChainWithLogger creates a provider chain with a custom logger.
func NewChainWithLogger(logger *slog.Logger, providers ...Provider) (*Chain, error) {
	chain, err := NewChain(providers...)
	if err != nil {
		return nil, err
	}
	chain.logger = logger.With("component", "inference.chain")
	return chain, nil
}

// Chat tries each provider until one succeeds.
func (c *Chain) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	var errors []error

	for i, p := range c.providers {
		if !p.Capabilities().Chat {
			continue
		}

		resp, err := p.Chat(ctx, req)
		if err == nil {
			if i > 0 {
				c.logger.Info("fallback provider succeeded",
					"provider_index", i,
				)
			}
			return resp, nil
		}

		errors = append(errors, err)
		c.logger.Warn("provider failed, trying next",
			"provider_index", i,
			"error", err,
		)

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	if len(errors) == 0 {
		return nil, ErrProviderUnavailable
	}
	return nil, &ChainError{Errors: errors}
}

// Capabilities returns the union of all provider capabilities.
func (c *Chain) Capabilities() Capabilities {
	var caps Capabilities
	for _, p := range c.providers {
		pc := p.Capabilities()
		caps.Chat = caps.Chat || pc.Chat
		caps.Tools = caps.Tools || pc.Tools
	}
	return caps
}

// Health succeeds if any provider is healthy.
func (c *Chain) Health(ctx context.Context) error {
	var lastErr error
	for _, p := range c.providers {
		if err := p.Health(ctx); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}
	if lastErr == nil {
		return ErrProviderUnavailable
	}
	return lastErr
}

// Close closes all providers.
func (c *Chain) Close() error {
	var lastErr error
	for _, p := range c.providers {
		if err := p.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// Verify Chain implements Provider at compile time.
var _ Provider = (*Chain)(nil)
