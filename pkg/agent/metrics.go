package agent

import (
	"sync"
	"time"
)

// TurnMetrics tracks latency for one conversation turn.
// All durations are measured from the moment the transcript arrived.
type TurnMetrics struct {
	// Timestamps for key events
	TranscriptTime  time.Time // When the transcript reached the agent
	FirstReplyTime  time.Time // When the model's first response arrived
	SpeechStartTime time.Time // When playback of the reply began
	TurnDoneTime    time.Time // When the turn fully completed

	// Computed latencies (from transcript arrival)
	ModelLatency  time.Duration // Time to first model response
	SpeechLatency time.Duration // Time to start of playback
	TotalLatency  time.Duration // Total end-to-end latency

	// Counts for this turn
	ToolCalls int // Tool invocations dispatched
	Rounds    int // Model round-trips taken
	Batched   int // Transcripts merged into this turn
	Failed    bool
}

// MetricsCollector collects per-turn latency metrics.
// It is goroutine-safe and can be read while a turn is in flight.
type MetricsCollector struct {
	mu      sync.Mutex
	current TurnMetrics
	history []TurnMetrics // Recent turns for averaging
	turns   int
}

// NewMetricsCollector creates a new metrics collector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		history: make([]TurnMetrics, 0, 100),
	}
}

// BeginTurn resets the current metrics for a new turn.
func (m *MetricsCollector) BeginTurn(batched int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = TurnMetrics{
		TranscriptTime: time.Now(),
		Batched:        batched,
	}
}

// MarkFirstReply records when the model's first response arrived.
func (m *MetricsCollector) MarkFirstReply() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current.FirstReplyTime.IsZero() {
		m.current.FirstReplyTime = time.Now()
		m.current.ModelLatency = m.current.FirstReplyTime.Sub(m.current.TranscriptTime)
	}
}

// MarkSpeechStart records when playback of the reply began.
func (m *MetricsCollector) MarkSpeechStart() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current.SpeechStartTime.IsZero() {
		m.current.SpeechStartTime = time.Now()
		m.current.SpeechLatency = m.current.SpeechStartTime.Sub(m.current.TranscriptTime)
	}
}

// MarkTurnDone records turn completion and archives the turn.
func (m *MetricsCollector) MarkTurnDone(failed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current.TurnDoneTime = time.Now()
	m.current.TotalLatency = m.current.TurnDoneTime.Sub(m.current.TranscriptTime)
	m.current.Failed = failed
	m.turns++

	m.history = append(m.history, m.current)
	if len(m.history) > 100 {
		m.history = m.history[1:]
	}
}

// IncrementToolCalls counts one dispatched tool invocation.
func (m *MetricsCollector) IncrementToolCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current.ToolCalls++
}

// IncrementRounds counts one model round-trip.
func (m *MetricsCollector) IncrementRounds() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current.Rounds++
}

// Current returns the current turn's metrics snapshot.
func (m *MetricsCollector) Current() TurnMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Turns returns the number of completed turns.
func (m *MetricsCollector) Turns() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.turns
}

// Average returns mean latencies and per-turn counts over recent turns.
func (m *MetricsCollector) Average() TurnMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.history)
	if n == 0 {
		return TurnMetrics{}
	}

	var avg TurnMetrics
	for _, h := range m.history {
		avg.ModelLatency += h.ModelLatency
		avg.SpeechLatency += h.SpeechLatency
		avg.TotalLatency += h.TotalLatency
		avg.ToolCalls += h.ToolCalls
		avg.Rounds += h.Rounds
	}

	d := time.Duration(n)
	avg.ModelLatency /= d
	avg.SpeechLatency /= d
	avg.TotalLatency /= d
	avg.ToolCalls /= n
	avg.Rounds /= n

	return avg
}
