// Package web provides a debug dashboard for a running holo agent.
package web

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/voxhollow/holo/pkg/agent"
	"github.com/voxhollow/holo/pkg/tool"
)

// Server exposes agent state over HTTP for debugging.
type Server struct {
	app    *fiber.App
	addr   string
	logger *slog.Logger

	agent    *agent.Agent
	registry *tool.Registry
	started  time.Time
}

// NewServer creates the dashboard server.
func NewServer(addr string, a *agent.Agent, registry *tool.Registry, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		addr:     addr,
		logger:   logger.With("component", "web"),
		agent:    a,
		registry: registry,
		started:  time.Now(),
	}

	app := fiber.New(fiber.Config{
		AppName:               "Holo Dashboard",
		DisableStartupMessage: true,
	})

	// CORS for local development
	app.Use(cors.New())

	app.Get("/healthz", s.handleHealthz)

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/tools", s.handleListTools)
	api.Get("/history", s.handleHistory)
	api.Get("/metrics", s.handleMetrics)

	s.app = app
	return s
}

// Start listens on the configured address. Blocks until Shutdown.
func (s *Server) Start() error {
	s.logger.Info("dashboard listening", "addr", s.addr)
	return s.app.Listen(s.addr)
}

// StartAsync starts the server in a goroutine.
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			s.logger.Error("dashboard server failed", "error", err)
		}
	}()
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
