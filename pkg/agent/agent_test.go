package agent

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/voxhollow/holo/pkg/inference"
	"github.com/voxhollow/holo/pkg/stt"
	"github.com/voxhollow/holo/pkg/tool"
)

// recordingSpeaker records spoken texts and can simulate playback time.
type recordingSpeaker struct {
	mu     sync.Mutex
	spoken []string

	Delay    time.Duration
	SpeakErr error
}

func (s *recordingSpeaker) Speak(ctx context.Context, text string) error {
	if s.Delay > 0 {
		select {
		case <-time.After(s.Delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.mu.Lock()
	s.spoken = append(s.spoken, text)
	s.mu.Unlock()
	return s.SpeakErr
}

func (s *recordingSpeaker) Spoken() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.spoken))
	copy(out, s.spoken)
	return out
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func lightsRegistry(t *testing.T, calls *[]map[string]any) *tool.Registry {
	t.Helper()
	var mu sync.Mutex
	r := tool.NewRegistry(nil)
	err := r.Register(tool.Tool{
		Name:        "lights_on",
		Description: "Turn on a light in a room.",
		Schema: tool.ObjectSchema(map[string]tool.Property{
			"room": {Type: "string", Description: "Room name"},
		}, "room"),
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			mu.Lock()
			*calls = append(*calls, args)
			mu.Unlock()
			return "ok", nil
		},
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	return r
}

func startAgent(t *testing.T, a *Agent) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		a.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("agent loop did not stop")
		}
	})
	return cancel
}

func TestAgentToolTurn(t *testing.T) {
	var toolArgs []map[string]any
	registry := lightsRegistry(t, &toolArgs)

	var round int32
	provider := inference.NewMock()
	provider.ChatFunc = func(ctx context.Context, req *inference.ChatRequest) (*inference.ChatResponse, error) {
		switch atomic.AddInt32(&round, 1) {
		case 1:
			if len(req.Tools) != 1 || req.Tools[0].Function.Name != "lights_on" {
				t.Errorf("tool declarations missing: %+v", req.Tools)
			}
			return &inference.ChatResponse{
				Message: inference.Message{
					Role: inference.RoleAssistant,
					ToolCalls: []inference.ToolCall{
						{ID: "call-1", Name: "lights_on", Arguments: `{"room":"kitchen"}`},
					},
				},
				FinishReason: "tool_calls",
			}, nil
		default:
			last := req.Messages[len(req.Messages)-1]
			if last.Role != inference.RoleTool || last.ToolCallID != "call-1" || last.Content != "ok" {
				t.Errorf("tool result not resolved before next round: %+v", last)
			}
			return &inference.ChatResponse{
				Message:      inference.NewAssistantMessage("Done."),
				FinishReason: "stop",
			}, nil
		}
	}

	speaker := &recordingSpeaker{}
	source := stt.NewMockSource()
	defer source.Close()

	a, err := New(provider, registry, speaker, source.Transcripts(),
		WithSystemPrompt("You are a home assistant."))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	startAgent(t, a)

	source.Push("turn on the kitchen light")

	waitFor(t, func() bool { return a.Metrics().Turns() == 1 }, "turn never completed")

	if got := speaker.Spoken(); len(got) != 1 || got[0] != "Done." {
		t.Errorf("expected only the final reply spoken, got %v", got)
	}
	if len(toolArgs) != 1 || toolArgs[0]["room"] != "kitchen" {
		t.Errorf("unexpected tool invocations: %v", toolArgs)
	}

	// History: system, user, assistant(tool calls), tool, assistant.
	msgs := a.History().Messages()
	wantRoles := []inference.Role{
		inference.RoleSystem,
		inference.RoleUser,
		inference.RoleAssistant,
		inference.RoleTool,
		inference.RoleAssistant,
	}
	if len(msgs) != len(wantRoles) {
		t.Fatalf("expected %d messages, got %d", len(wantRoles), len(msgs))
	}
	for i, want := range wantRoles {
		if msgs[i].Role != want {
			t.Errorf("message %d: expected role %s, got %s", i, want, msgs[i].Role)
		}
	}
}

func TestAgentDirectReply(t *testing.T) {
	provider := inference.NewMock()
	provider.ChatFunc = func(ctx context.Context, req *inference.ChatRequest) (*inference.ChatResponse, error) {
		return &inference.ChatResponse{
			Message:      inference.NewAssistantMessage("Hello! How can I help?"),
			FinishReason: "stop",
		}, nil
	}

	speaker := &recordingSpeaker{}
	source := stt.NewMockSource()
	defer source.Close()

	a, err := New(provider, tool.NewRegistry(nil), speaker, source.Transcripts())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	startAgent(t, a)

	source.Push("hello")

	waitFor(t, func() bool { return a.Metrics().Turns() == 1 }, "turn never completed")

	if got := speaker.Spoken(); len(got) != 1 || got[0] != "Hello! How can I help?" {
		t.Errorf("unexpected spoken texts: %v", got)
	}
	if got := a.State(); got != StateIdle {
		t.Errorf("expected idle after turn, got %s", got)
	}
}

func TestAgentUnknownToolBecomesErrorResult(t *testing.T) {
	var round int32
	provider := inference.NewMock()
	provider.ChatFunc = func(ctx context.Context, req *inference.ChatRequest) (*inference.ChatResponse, error) {
		if atomic.AddInt32(&round, 1) == 1 {
			return &inference.ChatResponse{
				Message: inference.Message{
					Role: inference.RoleAssistant,
					ToolCalls: []inference.ToolCall{
						{ID: "call-9", Name: "open_pod_bay_doors", Arguments: `{}`},
					},
				},
			}, nil
		}
		last := req.Messages[len(req.Messages)-1]
		if last.Role != inference.RoleTool || !strings.Contains(last.Content, "unknown tool") {
			t.Errorf("expected synthesized error result, got %+v", last)
		}
		return &inference.ChatResponse{
			Message: inference.NewAssistantMessage("I can't do that."),
		}, nil
	}

	speaker := &recordingSpeaker{}
	source := stt.NewMockSource()
	defer source.Close()

	a, err := New(provider, tool.NewRegistry(nil), speaker, source.Transcripts())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	startAgent(t, a)

	source.Push("open the doors")

	waitFor(t, func() bool { return a.Metrics().Turns() == 1 }, "turn never completed")

	if got := speaker.Spoken(); len(got) != 1 || got[0] != "I can't do that." {
		t.Errorf("unexpected spoken texts: %v", got)
	}
}

func TestAgentRoundBudgetExhaustedSpeaksFallback(t *testing.T) {
	var toolArgs []map[string]any
	registry := lightsRegistry(t, &toolArgs)

	provider := inference.NewMock()
	provider.ChatFunc = func(ctx context.Context, req *inference.ChatRequest) (*inference.ChatResponse, error) {
		// Always ask for another tool call.
		return &inference.ChatResponse{
			Message: inference.Message{
				Role: inference.RoleAssistant,
				ToolCalls: []inference.ToolCall{
					{ID: "loop", Name: "lights_on", Arguments: `{"room":"hall"}`},
				},
			},
		}, nil
	}

	speaker := &recordingSpeaker{}
	source := stt.NewMockSource()
	defer source.Close()

	a, err := New(provider, registry, speaker, source.Transcripts(),
		WithMaxToolRounds(2))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	startAgent(t, a)

	source.Push("lights please")

	waitFor(t, func() bool { return a.Metrics().Turns() == 1 }, "turn never completed")

	if provider.CallCount("Chat") != 2 {
		t.Errorf("expected 2 rounds, got %d", provider.CallCount("Chat"))
	}
	if got := speaker.Spoken(); len(got) != 1 || got[0] != DefaultFallbackReply {
		t.Errorf("expected fallback reply, got %v", got)
	}
	if m := a.Metrics().Average(); m.Rounds != 2 {
		t.Errorf("expected 2 rounds recorded, got %d", m.Rounds)
	}
}

func TestAgentModelFailureSpeaksFallback(t *testing.T) {
	provider := inference.NewMock()
	provider.ChatFunc = func(ctx context.Context, req *inference.ChatRequest) (*inference.ChatResponse, error) {
		return nil, errors.New("model exploded")
	}

	speaker := &recordingSpeaker{}
	source := stt.NewMockSource()
	defer source.Close()

	a, err := New(provider, tool.NewRegistry(nil), speaker, source.Transcripts(),
		WithFallbackReply("Something went wrong."))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	startAgent(t, a)

	source.Push("hello?")

	waitFor(t, func() bool { return a.Metrics().Turns() == 1 }, "turn never completed")

	if got := speaker.Spoken(); len(got) != 1 || got[0] != "Something went wrong." {
		t.Errorf("expected fallback reply, got %v", got)
	}
	if last, ok := a.History().Last(); !ok || last.Content != "Something went wrong." {
		t.Errorf("fallback must land in history, got %+v", last)
	}
}

func TestAgentBatchesTranscriptsQueuedDuringTurn(t *testing.T) {
	firstChatStarted := make(chan struct{})
	releaseFirstChat := make(chan struct{})

	var round int32
	provider := inference.NewMock()
	provider.ChatFunc = func(ctx context.Context, req *inference.ChatRequest) (*inference.ChatResponse, error) {
		if atomic.AddInt32(&round, 1) == 1 {
			close(firstChatStarted)
			<-releaseFirstChat
		}
		return &inference.ChatResponse{
			Message: inference.NewAssistantMessage("ok"),
		}, nil
	}

	speaker := &recordingSpeaker{}
	source := stt.NewMockSource()
	defer source.Close()

	a, err := New(provider, tool.NewRegistry(nil), speaker, source.Transcripts())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	startAgent(t, a)

	source.Push("first question")
	<-firstChatStarted

	// These arrive while turn one is still thinking.
	source.Push("also the radio")
	source.Push("and the fan")
	close(releaseFirstChat)

	waitFor(t, func() bool { return a.Metrics().Turns() == 2 }, "second turn never completed")

	reqs := provider.ChatRequests()
	if len(reqs) != 2 {
		t.Fatalf("expected 2 completions, got %d", len(reqs))
	}

	var lastUser inference.Message
	for _, m := range reqs[1].Messages {
		if m.Role == inference.RoleUser {
			lastUser = m
		}
	}
	if lastUser.Content != "also the radio\nand the fan" {
		t.Errorf("queued transcripts must merge into one turn, got %q", lastUser.Content)
	}

	if got := speaker.Spoken(); len(got) != 2 {
		t.Errorf("expected one reply per turn, got %v", got)
	}
}

func TestAgentToolCallTextNotSpoken(t *testing.T) {
	var toolArgs []map[string]any
	registry := lightsRegistry(t, &toolArgs)

	var round int32
	provider := inference.NewMock()
	provider.ChatFunc = func(ctx context.Context, req *inference.ChatRequest) (*inference.ChatResponse, error) {
		if atomic.AddInt32(&round, 1) == 1 {
			// Text riding along with a tool call must not be spoken.
			return &inference.ChatResponse{
				Message: inference.Message{
					Role:    inference.RoleAssistant,
					Content: "Let me turn that on.",
					ToolCalls: []inference.ToolCall{
						{ID: "call-2", Name: "lights_on", Arguments: `{"room":"den"}`},
					},
				},
			}, nil
		}
		return &inference.ChatResponse{
			Message: inference.NewAssistantMessage("The den light is on."),
		}, nil
	}

	speaker := &recordingSpeaker{}
	source := stt.NewMockSource()
	defer source.Close()

	a, err := New(provider, registry, speaker, source.Transcripts())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	startAgent(t, a)

	source.Push("den light on")

	waitFor(t, func() bool { return a.Metrics().Turns() == 1 }, "turn never completed")

	if got := speaker.Spoken(); len(got) != 1 || got[0] != "The den light is on." {
		t.Errorf("only the final tool-free reply may be spoken, got %v", got)
	}
}

func TestAgentParallelToolCallsResolvedInOrder(t *testing.T) {
	var order []string
	var mu sync.Mutex
	registry := tool.NewRegistry(nil)
	for _, name := range []string{"alpha", "beta"} {
		name := name
		registry.Register(tool.Tool{
			Name: name,
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				mu.Lock()
				order = append(order, name)
				mu.Unlock()
				return name + " done", nil
			},
		})
	}

	var round int32
	provider := inference.NewMock()
	provider.ChatFunc = func(ctx context.Context, req *inference.ChatRequest) (*inference.ChatResponse, error) {
		if atomic.AddInt32(&round, 1) == 1 {
			return &inference.ChatResponse{
				Message: inference.Message{
					Role: inference.RoleAssistant,
					ToolCalls: []inference.ToolCall{
						{ID: "c1", Name: "alpha"},
						{ID: "c2", Name: "beta"},
					},
				},
			}, nil
		}

		// Both results, one per call, in request order.
		n := len(req.Messages)
		first, second := req.Messages[n-2], req.Messages[n-1]
		if first.ToolCallID != "c1" || first.Content != "alpha done" {
			t.Errorf("first result wrong: %+v", first)
		}
		if second.ToolCallID != "c2" || second.Content != "beta done" {
			t.Errorf("second result wrong: %+v", second)
		}
		return &inference.ChatResponse{
			Message: inference.NewAssistantMessage("Both done."),
		}, nil
	}

	speaker := &recordingSpeaker{}
	source := stt.NewMockSource()
	defer source.Close()

	a, err := New(provider, registry, speaker, source.Transcripts())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	startAgent(t, a)

	source.Push("do both things")

	waitFor(t, func() bool { return a.Metrics().Turns() == 1 }, "turn never completed")

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 2 || order[0] != "alpha" || order[1] != "beta" {
		t.Errorf("tools must run in request order, got %v", order)
	}
}

func TestAgentEmptyReplyNotSpoken(t *testing.T) {
	provider := inference.NewMock()
	provider.ChatFunc = func(ctx context.Context, req *inference.ChatRequest) (*inference.ChatResponse, error) {
		return &inference.ChatResponse{
			Message: inference.NewAssistantMessage("   "),
		}, nil
	}

	speaker := &recordingSpeaker{}
	source := stt.NewMockSource()
	defer source.Close()

	a, err := New(provider, tool.NewRegistry(nil), speaker, source.Transcripts())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	startAgent(t, a)

	source.Push("say nothing")

	waitFor(t, func() bool { return a.Metrics().Turns() == 1 }, "turn never completed")

	if got := speaker.Spoken(); len(got) != 0 {
		t.Errorf("blank reply must not be spoken, got %v", got)
	}
}

func TestNewRequiresDependencies(t *testing.T) {
	source := stt.NewMockSource()
	defer source.Close()

	if _, err := New(nil, tool.NewRegistry(nil), &recordingSpeaker{}, source.Transcripts()); !errors.Is(err, ErrNilDependency) {
		t.Errorf("expected ErrNilDependency, got %v", err)
	}
	if _, err := New(inference.NewMock(), nil, &recordingSpeaker{}, source.Transcripts()); !errors.Is(err, ErrNilDependency) {
		t.Errorf("expected ErrNilDependency, got %v", err)
	}
	if _, err := New(inference.NewMock(), tool.NewRegistry(nil), nil, source.Transcripts()); !errors.Is(err, ErrNilDependency) {
		t.Errorf("expected ErrNilDependency, got %v", err)
	}
	if _, err := New(inference.NewMock(), tool.NewRegistry(nil), &recordingSpeaker{}, nil); !errors.Is(err, ErrNilDependency) {
		t.Errorf("expected ErrNilDependency, got %v", err)
	}
}

func TestAgentControlToolEndsTurnSilently(t *testing.T) {
	registry := tool.NewRegistry(nil)
	err := registry.Register(tool.Tool{
		Name:        "wait_for_more",
		Description: "Stay silent and wait for the user to continue.",
		EndsTurn:    true,
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			return "Waiting for the user to continue.", nil
		},
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	// Always asking for the control tool: if its result did not end the
	// turn, the loop would burn through the round budget and speak the
	// fallback instead of staying silent.
	var chats int32
	provider := inference.NewMock()
	provider.ChatFunc = func(ctx context.Context, req *inference.ChatRequest) (*inference.ChatResponse, error) {
		atomic.AddInt32(&chats, 1)
		return &inference.ChatResponse{
			Message: inference.Message{
				Role: inference.RoleAssistant,
				ToolCalls: []inference.ToolCall{
					{ID: "call-1", Name: "wait_for_more", Arguments: "{}"},
				},
			},
			FinishReason: "tool_calls",
		}, nil
	}

	speaker := &recordingSpeaker{}
	source := stt.NewMockSource()
	defer source.Close()

	a, err := New(provider, registry, speaker, source.Transcripts())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	startAgent(t, a)

	source.Push("so what I was thinking is")

	waitFor(t, func() bool { return a.Metrics().Turns() == 1 }, "turn never completed")
	waitFor(t, func() bool { return a.State() == StateIdle }, "agent never returned to idle")

	if got := speaker.Spoken(); len(got) != 0 {
		t.Errorf("nothing should be spoken, got %v", got)
	}
	if n := atomic.LoadInt32(&chats); n != 1 {
		t.Errorf("expected a single model round, got %d", n)
	}
	if a.Metrics().Current().Failed {
		t.Error("silent turn must not count as failed")
	}

	msgs := a.History().Messages()
	last := msgs[len(msgs)-1]
	if last.Role != inference.RoleTool || last.ToolCallID != "call-1" {
		t.Errorf("turn should end on the tool result, got %+v", last)
	}
}
