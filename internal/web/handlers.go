package web

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/voxhollow/holo/pkg/inference"
)

// toolInfo describes an available tool.
type toolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// historyEntry is one conversation message for the dashboard.
type historyEntry struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	ToolCalls int    `json:"tool_calls,omitempty"`
}

// handleHealthz is the liveness endpoint.
func (s *Server) handleHealthz(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// handleStatus returns the agent's current state.
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"state":    string(s.agent.State()),
		"turns":    s.agent.Metrics().Turns(),
		"messages": s.agent.History().Len(),
		"uptime":   time.Since(s.started).Round(time.Second).String(),
	})
}

// handleListTools returns the registered tools.
func (s *Server) handleListTools(c *fiber.Ctx) error {
	tools := s.registry.List()
	out := make([]toolInfo, len(tools))
	for i, t := range tools {
		out[i] = toolInfo{Name: t.Name, Description: t.Description}
	}
	return c.JSON(out)
}

// handleHistory returns the conversation so far.
func (s *Server) handleHistory(c *fiber.Ctx) error {
	msgs := s.agent.History().Messages()
	out := make([]historyEntry, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == inference.RoleSystem {
			continue
		}
		out = append(out, historyEntry{
			Role:      string(m.Role),
			Content:   m.Content,
			ToolCalls: len(m.ToolCalls),
		})
	}
	return c.JSON(out)
}

// handleMetrics returns current and averaged turn latencies.
func (s *Server) handleMetrics(c *fiber.Ctx) error {
	cur := s.agent.Metrics().Current()
	avg := s.agent.Metrics().Average()
	return c.JSON(fiber.Map{
		"current": fiber.Map{
			"model_latency_ms":  cur.ModelLatency.Milliseconds(),
			"speech_latency_ms": cur.SpeechLatency.Milliseconds(),
			"total_latency_ms":  cur.TotalLatency.Milliseconds(),
			"tool_calls":        cur.ToolCalls,
			"rounds":            cur.Rounds,
			"batched":           cur.Batched,
			"failed":            cur.Failed,
		},
		"average": fiber.Map{
			"model_latency_ms":  avg.ModelLatency.Milliseconds(),
			"speech_latency_ms": avg.SpeechLatency.Milliseconds(),
			"total_latency_ms":  avg.TotalLatency.Milliseconds(),
		},
		"turns": s.agent.Metrics().Turns(),
	})
}
