package agent

import (
	"testing"

	"github.com/voxhollow/holo/pkg/inference"
)

func TestHistorySeedsSystemPrompt(t *testing.T) {
	h := NewHistory("You are helpful.")
	if h.Len() != 1 {
		t.Fatalf("expected 1 message, got %d", h.Len())
	}
	msgs := h.Messages()
	if msgs[0].Role != inference.RoleSystem || msgs[0].Content != "You are helpful." {
		t.Errorf("unexpected seed message: %+v", msgs[0])
	}

	empty := NewHistory("")
	if empty.Len() != 0 {
		t.Errorf("empty prompt must not seed a message, got %d", empty.Len())
	}
}

func TestHistoryAppendAndSnapshot(t *testing.T) {
	h := NewHistory("")
	h.Append(inference.NewUserMessage("hi"))
	h.Append(inference.NewAssistantMessage("hello"))

	snapshot := h.Messages()
	h.Append(inference.NewUserMessage("more"))

	if len(snapshot) != 2 {
		t.Errorf("snapshot must not grow with later appends, got %d", len(snapshot))
	}
	if h.Len() != 3 {
		t.Errorf("expected 3 messages, got %d", h.Len())
	}

	last, ok := h.Last()
	if !ok || last.Content != "more" {
		t.Errorf("unexpected last message: %+v", last)
	}
}

func TestMetricsCollectorTurns(t *testing.T) {
	m := NewMetricsCollector()

	m.BeginTurn(2)
	m.IncrementRounds()
	m.MarkFirstReply()
	m.IncrementToolCalls()
	m.IncrementRounds()
	m.MarkSpeechStart()
	m.MarkTurnDone(false)

	if m.Turns() != 1 {
		t.Fatalf("expected 1 turn, got %d", m.Turns())
	}

	cur := m.Current()
	if cur.Batched != 2 || cur.Rounds != 2 || cur.ToolCalls != 1 {
		t.Errorf("unexpected counters: %+v", cur)
	}
	if cur.TotalLatency < cur.ModelLatency {
		t.Errorf("total latency must cover model latency: %+v", cur)
	}
	if cur.Failed {
		t.Error("turn should not be marked failed")
	}

	avg := m.Average()
	if avg.Rounds != 2 || avg.ToolCalls != 1 {
		t.Errorf("unexpected averages: %+v", avg)
	}
}

func TestMetricsCollectorAverageDividesCounts(t *testing.T) {
	m := NewMetricsCollector()

	m.BeginTurn(1)
	m.IncrementRounds()
	m.MarkTurnDone(false)

	m.BeginTurn(1)
	for i := 0; i < 3; i++ {
		m.IncrementRounds()
	}
	m.IncrementToolCalls()
	m.IncrementToolCalls()
	m.MarkTurnDone(false)

	avg := m.Average()
	if avg.Rounds != 2 {
		t.Errorf("expected 2 rounds per turn on average, got %d", avg.Rounds)
	}
	if avg.ToolCalls != 1 {
		t.Errorf("expected 1 tool call per turn on average, got %d", avg.ToolCalls)
	}
}
