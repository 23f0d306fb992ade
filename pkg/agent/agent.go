// Package agent runs the conversation loop: transcripts in, tool
// dispatch in the middle, spoken replies out.
//
// The loop is strictly serial. One transcript batch becomes one turn,
// and a turn runs to completion (reply spoken or fallback delivered)
// before the next transcript is considered. Transcripts arriving while
// a turn is in flight queue up on the source channel and are merged
// into the next turn. Within a turn the model may request tools for a
// bounded number of rounds; every requested call gets exactly one
// result message, in request order, before the model is consulted
// again. Only a final tool-free reply is spoken.
package agent

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/voxhollow/holo/pkg/inference"
	"github.com/voxhollow/holo/pkg/stt"
	"github.com/voxhollow/holo/pkg/tool"
)

// State is the observable phase of the agent loop.
type State string

const (
	// StateIdle means the agent is waiting for a transcript.
	StateIdle State = "idle"

	// StateThinking means a model completion is in flight.
	StateThinking State = "thinking"

	// StateToolDispatch means tool calls are being executed.
	StateToolDispatch State = "tool_dispatch"

	// StateSpeaking means the reply is being played back.
	StateSpeaking State = "speaking"
)

// ErrNilDependency is returned when a required collaborator is missing.
var ErrNilDependency = errors.New("agent: nil dependency")

// Speaker delivers a reply audibly, blocking until playback completes.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Agent is the conversation loop.
type Agent struct {
	config   *Config
	logger   *slog.Logger
	provider inference.Provider
	registry *tool.Registry
	speaker  Speaker

	transcripts <-chan stt.Transcript
	history     *History
	metrics     *MetricsCollector

	mu      sync.RWMutex
	state   State
	lastSeq uint64
}

// New creates an agent. All collaborators are required.
func New(
	provider inference.Provider,
	registry *tool.Registry,
	speaker Speaker,
	transcripts <-chan stt.Transcript,
	opts ...Option,
) (*Agent, error) {
	if provider == nil || registry == nil || speaker == nil || transcripts == nil {
		return nil, ErrNilDependency
	}

	cfg := DefaultConfig()
	cfg.Apply(opts...)
	if cfg.MaxToolRounds <= 0 {
		cfg.MaxToolRounds = DefaultMaxToolRounds
	}

	return &Agent{
		config:      cfg,
		logger:      cfg.Logger.With("component", "agent"),
		provider:    provider,
		registry:    registry,
		speaker:     speaker,
		transcripts: transcripts,
		history:     NewHistory(cfg.SystemPrompt),
		metrics:     NewMetricsCollector(),
		state:       StateIdle,
	}, nil
}

// Run consumes transcripts until the context is cancelled or the
// transcript channel closes. It is the single consumer of the channel.
func (a *Agent) Run(ctx context.Context) error {
	a.logger.Info("agent loop started",
		"tools", len(a.registry.List()),
		"max_tool_rounds", a.config.MaxToolRounds,
	)

	for {
		a.setState(StateIdle)

		select {
		case <-ctx.Done():
			a.logger.Info("agent loop stopped", "turns", a.metrics.Turns())
			return ctx.Err()

		case t, ok := <-a.transcripts:
			if !ok {
				a.logger.Info("transcript source closed", "turns", a.metrics.Turns())
				return nil
			}
			batch := a.drainQueued([]stt.Transcript{t})
			a.turn(ctx, batch)
		}
	}
}

// State returns the current loop phase.
func (a *Agent) State() State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

// History returns the conversation history.
func (a *Agent) History() *History {
	return a.history
}

// Metrics returns the turn metrics collector.
func (a *Agent) Metrics() *MetricsCollector {
	return a.metrics
}

func (a *Agent) setState(s State) {
	a.mu.Lock()
	a.state = s
	a.mu.Unlock()
}

// drainQueued merges transcripts that queued up during the previous
// turn into the current batch, preserving order.
func (a *Agent) drainQueued(batch []stt.Transcript) []stt.Transcript {
	for {
		select {
		case t, ok := <-a.transcripts:
			if !ok {
				return batch
			}
			batch = append(batch, t)
		default:
			return batch
		}
	}
}

// turn runs one complete conversation turn for a transcript batch.
func (a *Agent) turn(ctx context.Context, batch []stt.Transcript) {
	a.metrics.BeginTurn(len(batch))

	texts := make([]string, 0, len(batch))
	for _, t := range batch {
		if t.Seq <= a.lastSeq {
			a.logger.Warn("transcript out of order", "seq", t.Seq, "last_seq", a.lastSeq)
		} else {
			a.lastSeq = t.Seq
		}
		texts = append(texts, t.Text)
	}
	userText := strings.Join(texts, "\n")

	a.logger.Info("turn started",
		"seq", batch[len(batch)-1].Seq,
		"batched", len(batch),
		"text", userText,
	)

	a.history.Append(inference.NewUserMessage(userText))

	for round := 0; round < a.config.MaxToolRounds; round++ {
		a.metrics.IncrementRounds()
		a.setState(StateThinking)

		resp, err := a.complete(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			a.logger.Error("completion failed", "round", round, "error", err)
			a.deliverFallback(ctx)
			return
		}
		a.metrics.MarkFirstReply()

		msg := resp.Message

		// Tool calls take precedence over any text riding along with
		// them. Accompanying text stays in the history but is not spoken.
		if len(msg.ToolCalls) > 0 {
			a.history.Append(msg)
			if a.dispatch(ctx, msg.ToolCalls) {
				a.logger.Info("turn ended by control tool")
				a.metrics.MarkTurnDone(false)
				return
			}
			continue
		}

		a.history.Append(msg)
		a.speak(ctx, msg.Content)
		return
	}

	a.logger.Warn("tool round budget exhausted", "rounds", a.config.MaxToolRounds)
	a.deliverFallback(ctx)
}

// complete runs one chat completion with the registered tools declared.
func (a *Agent) complete(ctx context.Context) (*inference.ChatResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, a.config.LLMTimeout)
	defer cancel()

	return a.provider.Chat(ctx, &inference.ChatRequest{
		Messages: a.history.Messages(),
		Tools:    a.declarations(),
	})
}

// declarations converts registered tools into model tool declarations.
func (a *Agent) declarations() []inference.Tool {
	tools := a.registry.List()
	if len(tools) == 0 {
		return nil
	}
	decls := make([]inference.Tool, len(tools))
	for i, t := range tools {
		decls[i] = inference.NewTool(t.Name, t.Description, t.Schema)
	}
	return decls
}

// dispatch executes requested tool calls in order, appending exactly
// one result message per call. Failures become error results so the
// model can react; they never abort the turn. Reports whether a
// control tool ended the turn.
func (a *Agent) dispatch(ctx context.Context, calls []inference.ToolCall) bool {
	a.setState(StateToolDispatch)

	ended := false
	for _, call := range calls {
		result := a.registry.Invoke(ctx, tool.Call{
			ID:        call.ID,
			Name:      call.Name,
			Arguments: call.Arguments,
		})
		a.metrics.IncrementToolCalls()

		a.logger.Info("tool dispatched",
			"tool", call.Name,
			"call_id", call.ID,
			"is_error", result.IsError,
		)
		a.history.Append(inference.NewToolMessage(result.CallID, result.Content))

		if result.EndsTurn && !result.IsError {
			ended = true
		}
	}
	return ended
}

// speak plays the reply and completes the turn.
func (a *Agent) speak(ctx context.Context, text string) {
	if strings.TrimSpace(text) == "" {
		a.logger.Debug("empty reply, nothing to speak")
		a.metrics.MarkTurnDone(false)
		return
	}

	a.setState(StateSpeaking)
	a.metrics.MarkSpeechStart()

	if err := a.speaker.Speak(ctx, text); err != nil {
		a.logger.Error("playback failed", "error", err)
		a.metrics.MarkTurnDone(true)
		return
	}

	a.metrics.MarkTurnDone(false)
	a.logger.Info("turn complete", "reply", text)
}

// deliverFallback speaks the configured apology and records the turn
// as failed. The fallback also lands in the history so the model sees
// what the user heard.
func (a *Agent) deliverFallback(ctx context.Context) {
	reply := a.config.FallbackReply
	a.history.Append(inference.NewAssistantMessage(reply))

	a.setState(StateSpeaking)
	a.metrics.MarkSpeechStart()
	if err := a.speaker.Speak(ctx, reply); err != nil {
		a.logger.Error("fallback playback failed", "error", err)
	}
	a.metrics.MarkTurnDone(true)
}
