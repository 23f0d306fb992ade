package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
)

// Registry maps tool names to registered tools.
// Registration happens at startup; after that the registry is read-only
// and safe for concurrent lookups.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]Tool
	logger *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		tools:  make(map[string]Tool),
		logger: logger.With("component", "tool.registry"),
	}
}

// Register adds a tool. Names must be unique and non-empty.
func (r *Registry) Register(t Tool) error {
	if t.Name == "" {
		return fmt.Errorf("tool: name is empty")
	}
	if t.Handler == nil {
		return fmt.Errorf("tool %s: handler is nil", t.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[t.Name]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, t.Name)
	}
	r.tools[t.Name] = t
	return nil
}

// Get fetches a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns all registered tools sorted by name.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Invoke dispatches a call: parse arguments, validate against the
// registered schema, run the handler. Failures of any kind come back as
// an error-kind Result, never as a Go error or panic.
func (r *Registry) Invoke(ctx context.Context, call Call) Result {
	t, ok := r.Get(call.Name)
	if !ok {
		r.logger.Warn("unknown tool requested", "tool", call.Name, "call_id", call.ID)
		return errorResult(call, fmt.Errorf("%w: %q", ErrUnknownTool, call.Name))
	}

	args, err := parseArguments(call.Arguments)
	if err != nil {
		r.logger.Warn("malformed tool arguments", "tool", call.Name, "err", err)
		return errorResult(call, err)
	}

	if err := t.Schema.Validate(args); err != nil {
		r.logger.Warn("tool arguments rejected", "tool", call.Name, "err", err)
		return errorResult(call, err)
	}

	content, err := invokeHandler(ctx, t, args)
	if err != nil {
		r.logger.Warn("tool handler failed", "tool", call.Name, "err", err)
		return errorResult(call, err)
	}

	r.logger.Debug("tool invoked", "tool", call.Name, "call_id", call.ID)
	return Result{CallID: call.ID, Name: call.Name, Content: content, EndsTurn: t.EndsTurn}
}

// invokeHandler runs the handler, converting a panic into an error so a
// misbehaving tool cannot take down the agent loop.
func invokeHandler(ctx context.Context, t Tool, args map[string]any) (content string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("tool %s panicked: %v", t.Name, rec)
		}
	}()
	return t.Handler(ctx, args)
}

// parseArguments decodes the raw JSON payload into an argument map.
// An empty payload means no arguments.
func parseArguments(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]any{}, nil
	}

	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	return args, nil
}
