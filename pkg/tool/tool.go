// Package tool implements the registry of local capabilities the agent
// can invoke during a conversation turn.
//
// Tools are registered once at startup with a name, a JSON schema for
// their arguments, and a handler. The registry produces the declarations
// sent to the language model and dispatches incoming tool calls. Dispatch
// never panics or returns a Go error to the caller: unknown names, bad
// payloads, and handler failures are all folded into an error-kind Result
// so the agent loop can always append a resolving message.
package tool

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors surfaced inside error-kind Results.
var (
	// ErrUnknownTool is returned when no tool is registered under a name.
	ErrUnknownTool = errors.New("tool: unknown tool")

	// ErrInvalidArguments is returned when a payload fails schema validation.
	ErrInvalidArguments = errors.New("tool: invalid arguments")

	// ErrAlreadyRegistered is returned when a name is registered twice.
	ErrAlreadyRegistered = errors.New("tool: already registered")
)

// Handler executes a tool with validated arguments.
// The returned string is sent back to the model verbatim.
type Handler func(ctx context.Context, args map[string]any) (string, error)

// Tool is a named local capability with a declared argument schema.
type Tool struct {
	// Name is the unique identifier for the tool (e.g. "get_time").
	Name string

	// Description explains what the tool does, helping the model decide
	// when to use it.
	Description string

	// Schema declares the JSON schema for the tool's arguments.
	Schema *Schema

	// Handler is called when the model invokes this tool.
	Handler Handler

	// EndsTurn marks a control tool: a successful call finishes the
	// conversation turn immediately, with nothing spoken.
	EndsTurn bool
}

// Call is a single tool invocation requested by the model.
type Call struct {
	// ID correlates the call with its result.
	ID string

	// Name is the tool being invoked.
	Name string

	// Arguments is the raw JSON argument payload from the model.
	Arguments string
}

// Result is the outcome of dispatching a Call.
type Result struct {
	// CallID matches the Call.ID this result corresponds to.
	CallID string

	// Name is the tool that was invoked.
	Name string

	// Content is the result text sent back to the model. For error-kind
	// results it carries the error description.
	Content string

	// IsError marks results synthesized from a failure (unknown tool,
	// validation failure, handler error).
	IsError bool

	// EndsTurn is carried over from the invoked tool's definition.
	// Error-kind results never end the turn.
	EndsTurn bool
}

// errorResult folds an error into a Result the model can read.
func errorResult(call Call, err error) Result {
	return Result{
		CallID:  call.ID,
		Name:    call.Name,
		Content: fmt.Sprintf("Error: %v", err),
		IsError: true,
	}
}
