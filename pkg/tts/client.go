package tts

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

// synthRequest is the text message opening an exchange.
type synthRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice,omitempty"`
}

// synthControl is a JSON control message from the service: either the
// format header, the completion marker, or an error.
type synthControl struct {
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
	Done       bool   `json:"done"`
	Error      string `json:"error"`
}

// Client synthesizes speech over a WebSocket request/response protocol.
// Each Synthesize call runs one exchange on a fresh connection: the
// text request out, then a format header, binary PCM16 chunks, and a
// done marker back.
type Client struct {
	config *Config
	logger *slog.Logger
}

// NewClient creates a synthesis client.
func NewClient(opts ...Option) (*Client, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Client{
		config: cfg,
		logger: cfg.Logger.With("component", "tts.client"),
	}, nil
}

// Synthesize converts text to audio, blocking until the service has
// delivered the complete utterance.
func (c *Client) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, c.config.SynthTimeout)
	defer cancel()

	dialer := websocket.Dialer{
		HandshakeTimeout: c.config.HandshakeTimeout,
	}
	conn, _, err := dialer.DialContext(ctx, c.config.URL, nil)
	if err != nil {
		return nil, &ConnectionError{URL: c.config.URL, Err: err}
	}
	defer conn.Close()

	// Unblock reads when the context expires.
	stop := context.AfterFunc(ctx, func() {
		conn.Close()
	})
	defer stop()

	if err := conn.WriteJSON(synthRequest{Text: text, Voice: c.config.Voice}); err != nil {
		return nil, &ConnectionError{URL: c.config.URL, Err: err}
	}

	result := &AudioResult{CharCount: len(text)}
	var firstByte time.Time

	for {
		msgType, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, &ConnectionError{URL: c.config.URL, Err: err}
		}

		switch msgType {
		case websocket.BinaryMessage:
			if firstByte.IsZero() {
				firstByte = time.Now()
			}
			result.Audio = append(result.Audio, message...)

		case websocket.TextMessage:
			var ctrl synthControl
			if err := json.Unmarshal(message, &ctrl); err != nil {
				c.logger.Warn("malformed control message", "error", err)
				continue
			}
			if ctrl.Error != "" {
				return nil, fmt.Errorf("%w: %s", ErrSynthesisFailed, ctrl.Error)
			}
			if ctrl.SampleRate > 0 {
				result.SampleRate = ctrl.SampleRate
				result.Channels = ctrl.Channels
				if result.Channels == 0 {
					result.Channels = 1
				}
			}
			if ctrl.Done {
				if len(result.Audio) == 0 {
					return nil, ErrNoAudio
				}
				if !firstByte.IsZero() {
					result.LatencyMs = firstByte.Sub(start).Milliseconds()
				}
				c.logger.Debug("synthesis complete",
					"chars", result.CharCount,
					"bytes", len(result.Audio),
					"sample_rate", result.SampleRate,
					"duration", result.Duration(),
				)
				return result, nil
			}
		}
	}
}

// Close releases resources. Connections are per-exchange, so there is
// nothing persistent to tear down.
func (c *Client) Close() error {
	return nil
}

// Verify Client implements Synthesizer at compile time.
var _ Synthesizer = (*Client)(nil)
