// Package api exposes the caregiver dashboard HTTP and websocket
// surface.
package api

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/visionaid/go-visionaid/internal/log"
	"github.com/visionaid/go-visionaid/pkg/hub"
	"github.com/visionaid/go-visionaid/pkg/safety"
	"github.com/visionaid/go-visionaid/pkg/sensors"
	"github.com/visionaid/go-visionaid/pkg/store"
)

// Deps are the server's collaborators. Pi may be nil when no wearable
// unit is configured; acknowledgements then stay local.
type Deps struct {
	Store    *store.Store
	Safety   *safety.Set
	Pi       *sensors.Client
	PiHealth *sensors.Health
	EnvCache *sensors.EnvCache

	AlertHub  *hub.Hub
	StatusHub *hub.Hub
}

// Server is the dashboard API server.
type Server struct {
	app  *fiber.App
	deps Deps
}

// NewServer builds the fiber app with all routes registered.
func NewServer(deps Deps) *Server {
	s := &Server{deps: deps}

	app := fiber.New(fiber.Config{
		AppName:               "visionaid",
		DisableStartupMessage: true,
	})
	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/health", s.handleHealth)

	api.Get("/stats/overview", s.handleOverview)
	api.Get("/stats/safety", s.handleSafetyStats)
	api.Get("/stats/objects", s.handleObjectStats)
	api.Get("/stats/timeline", s.handleTimeline)

	api.Get("/alerts/recent", s.handleRecentAlerts)
	api.Get("/voice_commands", s.handleVoiceCommands)
	api.Get("/sessions", s.handleSessions)
	api.Get("/sessions/:id", s.handleSession)

	api.Get("/fall_status", s.safetyStatusHandler(safety.KindFall))
	api.Get("/fall_acknowledge", s.acknowledgeHandler(safety.KindFall))
	api.Get("/emergency_status", s.safetyStatusHandler(safety.KindEmergency))
	api.Get("/emergency_acknowledge", s.acknowledgeHandler(safety.KindEmergency))
	api.Get("/assistance_status", s.safetyStatusHandler(safety.KindAssistance))
	api.Get("/assistance_acknowledge", s.acknowledgeHandler(safety.KindAssistance))

	api.Get("/environmental", s.handleEnvironmental)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/alerts", websocket.New(s.handleAlertsWS))
	app.Get("/ws/status", websocket.New(s.handleStatusWS))

	s.app = app
	return s
}

// App returns the underlying fiber app, used by tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on the given port until Shutdown.
func (s *Server) Listen(port string) error {
	log.Info("dashboard API listening", "port", port)
	return s.app.Listen(":" + port)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) handleAlertsWS(c *websocket.Conn) {
	if s.deps.AlertHub == nil {
		c.Close()
		return
	}
	hub.NewClient(s.deps.AlertHub, c).Run()
}

func (s *Server) handleStatusWS(c *websocket.Conn) {
	if s.deps.StatusHub == nil {
		c.Close()
		return
	}
	hub.NewClient(s.deps.StatusHub, c).Run()
}

func errJSON(c *fiber.Ctx, status int, err error) error {
	return c.Status(status).JSON(fiber.Map{"error": fmt.Sprint(err)})
}
