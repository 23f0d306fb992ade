package app

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/voxhollow/holo/pkg/tool"
)

// memoryStore keeps facts the user asked the assistant to remember.
type memoryStore struct {
	mu    sync.RWMutex
	facts map[string][]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{facts: make(map[string][]string)}
}

func (m *memoryStore) remember(topic, fact string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.facts[topic] = append(m.facts[topic], fact)
}

func (m *memoryStore) recall(topic string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.facts[topic]
}

func (m *memoryStore) topics() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.facts))
	for t := range m.facts {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// timerStore tracks pending timers set by voice command.
type timerStore struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
	logger *slog.Logger
}

func newTimerStore(logger *slog.Logger) *timerStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &timerStore{
		timers: make(map[string]*time.Timer),
		logger: logger,
	}
}

func (t *timerStore) set(d time.Duration, label string) string {
	id := uuid.NewString()

	t.mu.Lock()
	defer t.mu.Unlock()
	t.timers[id] = time.AfterFunc(d, func() {
		t.logger.Info("timer fired", "id", id, "label", label)
		t.mu.Lock()
		delete(t.timers, id)
		t.mu.Unlock()
	})
	return id
}

func (t *timerStore) stopAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, timer := range t.timers {
		timer.Stop()
		delete(t.timers, id)
	}
}

// registerBuiltins installs the assistant's standard tools.
func registerBuiltins(r *tool.Registry, mem *memoryStore, timers *timerStore) error {
	tools := []tool.Tool{
		{
			Name:        "get_time",
			Description: "Get the current date and time.",
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				return time.Now().Format("Monday, January 2, 3:04 PM"), nil
			},
		},
		{
			Name:        "set_timer",
			Description: "Set a countdown timer.",
			Schema: tool.ObjectSchema(map[string]tool.Property{
				"seconds": {Type: "integer", Description: "Timer duration in seconds"},
				"label":   {Type: "string", Description: "What the timer is for"},
			}, "seconds"),
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				secs, _ := args["seconds"].(float64)
				if secs <= 0 {
					return "", fmt.Errorf("timer duration must be positive")
				}
				label, _ := args["label"].(string)
				id := timers.set(time.Duration(secs)*time.Second, label)
				return fmt.Sprintf("Timer %s set for %d seconds", id[:8], int(secs)), nil
			},
		},
		{
			Name:        "remember",
			Description: "Remember a fact about a topic or person for later.",
			Schema: tool.ObjectSchema(map[string]tool.Property{
				"topic": {Type: "string", Description: "Who or what the fact is about"},
				"fact":  {Type: "string", Description: "The fact to remember"},
			}, "topic", "fact"),
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				topic, _ := args["topic"].(string)
				fact, _ := args["fact"].(string)
				mem.remember(topic, fact)
				return fmt.Sprintf("Remembered about %s", topic), nil
			},
		},
		{
			Name: "wait_for_more",
			Description: "Stay silent because the user's utterance seems unfinished " +
				"and more speech is expected. Say nothing this turn.",
			EndsTurn: true,
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				return "Waiting for the user to continue.", nil
			},
		},
		{
			Name:        "recall",
			Description: "Recall remembered facts about a topic or person.",
			Schema: tool.ObjectSchema(map[string]tool.Property{
				"topic": {Type: "string", Description: "Who or what to recall"},
			}, "topic"),
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				topic, _ := args["topic"].(string)
				facts := mem.recall(topic)
				if len(facts) == 0 {
					known := mem.topics()
					if len(known) == 0 {
						return "Nothing remembered yet", nil
					}
					return fmt.Sprintf("Nothing about %s. Known topics: %s",
						topic, strings.Join(known, ", ")), nil
				}
				return strings.Join(facts, "; "), nil
			},
		},
	}

	for _, t := range tools {
		if err := r.Register(t); err != nil {
			return err
		}
	}
	return nil
}
