package agent

import (
	"sync"

	"github.com/voxhollow/holo/pkg/inference"
)

// History is the append-only conversation transcript. Only the agent
// loop writes to it; readers (the debug dashboard, tests) get copies.
type History struct {
	mu       sync.RWMutex
	messages []inference.Message
}

// NewHistory creates a history, seeded with a system message when
// systemPrompt is non-empty.
func NewHistory(systemPrompt string) *History {
	h := &History{}
	if systemPrompt != "" {
		h.messages = append(h.messages, inference.NewSystemMessage(systemPrompt))
	}
	return h
}

// Append adds messages to the history.
func (h *History) Append(msgs ...inference.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, msgs...)
}

// Messages returns a copy of the full history.
func (h *History) Messages() []inference.Message {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]inference.Message, len(h.messages))
	copy(out, h.messages)
	return out
}

// Len returns the number of messages.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.messages)
}

// Last returns the most recent message, if any.
func (h *History) Last() (inference.Message, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.messages) == 0 {
		return inference.Message{}, false
	}
	return h.messages[len(h.messages)-1], true
}
