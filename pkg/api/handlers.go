package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/visionaid/go-visionaid/internal/log"
	"github.com/visionaid/go-visionaid/pkg/safety"
)

func (s *Server) handleStatus(c *fiber.Ctx) error {
	sessionID := s.deps.Store.CurrentSession()
	status := "inactive"
	if sessionID != 0 {
		status = "active"
	}
	return c.JSON(fiber.Map{
		"status":             status,
		"current_session_id": sessionID,
		"timestamp":          time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	resp := fiber.Map{"status": "ok"}
	if s.deps.PiHealth != nil {
		resp["pi"] = s.deps.PiHealth.Snapshot()
	}
	if s.deps.AlertHub != nil {
		resp["alert_clients"] = s.deps.AlertHub.ClientCount()
	}
	return c.JSON(resp)
}

func (s *Server) handleOverview(c *fiber.Ctx) error {
	stats, err := s.deps.Store.Overview(c.Context())
	if err != nil {
		return errJSON(c, fiber.StatusInternalServerError, err)
	}
	return c.JSON(stats)
}

func (s *Server) handleSafetyStats(c *fiber.Ctx) error {
	stats, err := s.deps.Store.SafetyStats(c.Context())
	if err != nil {
		return errJSON(c, fiber.StatusInternalServerError, err)
	}
	return c.JSON(stats)
}

func (s *Server) handleObjectStats(c *fiber.Ctx) error {
	stats, err := s.deps.Store.ObjectStats(c.Context())
	if err != nil {
		return errJSON(c, fiber.StatusInternalServerError, err)
	}
	return c.JSON(stats)
}

func (s *Server) handleTimeline(c *fiber.Ctx) error {
	hours := c.QueryInt("hours", 24)
	tl, err := s.deps.Store.Timeline(c.Context(), hours)
	if err != nil {
		return errJSON(c, fiber.StatusInternalServerError, err)
	}
	return c.JSON(tl)
}

func (s *Server) handleRecentAlerts(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	alerts, err := s.deps.Store.RecentAlerts(c.Context(), limit)
	if err != nil {
		return errJSON(c, fiber.StatusInternalServerError, err)
	}
	return c.JSON(alerts)
}

func (s *Server) handleVoiceCommands(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	cmds, err := s.deps.Store.VoiceCommands(c.Context(), limit)
	if err != nil {
		return errJSON(c, fiber.StatusInternalServerError, err)
	}
	return c.JSON(cmds)
}

func (s *Server) handleSessions(c *fiber.Ctx) error {
	sessions, err := s.deps.Store.Sessions(c.Context())
	if err != nil {
		return errJSON(c, fiber.StatusInternalServerError, err)
	}
	return c.JSON(sessions)
}

func (s *Server) handleSession(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return errJSON(c, fiber.StatusBadRequest, err)
	}
	session, err := s.deps.Store.SessionByID(c.Context(), int64(id))
	if err != nil {
		return errJSON(c, fiber.StatusInternalServerError, err)
	}
	if session == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "session not found"})
	}
	return c.JSON(session)
}

// safetyStatusHandler serves the per-kind status in the wearable
// unit's original field names. Idle and acknowledged both report the
// active flag as false.
func (s *Server) safetyStatusHandler(kind safety.Kind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		m := s.deps.Safety.ByKind(kind)
		status := m.Status()

		resp := fiber.Map{
			"state":           status.State,
			"raised_at":       nullableTime(status.RaisedAt),
			"acknowledged_at": nullableTime(status.AcknowledgedAt),
		}
		switch kind {
		case safety.KindFall:
			resp["fall_detected"] = status.Active
		case safety.KindEmergency:
			resp["emergency_active"] = status.Active
		case safety.KindAssistance:
			resp["assistance_active"] = status.Active
			resp["assistance_type"] = status.Subtype
		}
		return c.JSON(resp)
	}
}

// acknowledgeHandler acknowledges the local monitor and forwards the
// acknowledgement to the wearable unit so its flag clears too. The
// endpoint is idempotent: repeats return the same shape and cause no
// further transitions.
func (s *Server) acknowledgeHandler(kind safety.Kind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		m := s.deps.Safety.ByKind(kind)
		changed := m.Acknowledge()

		if changed && s.deps.Pi != nil {
			go s.forwardAcknowledge(kind)
		}

		return c.JSON(fiber.Map{
			"status":    "acknowledged",
			"changed":   changed,
			"timestamp": time.Now().Format(time.RFC3339),
		})
	}
}

func (s *Server) forwardAcknowledge(kind safety.Kind) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var err error
	switch kind {
	case safety.KindFall:
		err = s.deps.Pi.AcknowledgeFall(ctx)
	case safety.KindEmergency:
		err = s.deps.Pi.AcknowledgeEmergency(ctx)
	case safety.KindAssistance:
		err = s.deps.Pi.AcknowledgeAssistance(ctx)
	}
	if err != nil {
		log.Warn("failed to forward acknowledgement to pi unit",
			"kind", string(kind), "error", err)
	}
}

func (s *Server) handleEnvironmental(c *fiber.Ctx) error {
	if s.deps.EnvCache == nil {
		return c.Status(fiber.StatusServiceUnavailable).
			JSON(fiber.Map{"error": "environmental sensors not available"})
	}
	reading, fresh := s.deps.EnvCache.Get()
	if reading.LastUpdate == "" {
		return c.Status(fiber.StatusServiceUnavailable).
			JSON(fiber.Map{"error": "no environmental reading yet"})
	}
	return c.JSON(fiber.Map{
		"temperature_c": reading.TemperatureC,
		"temperature_f": reading.TemperatureF,
		"humidity":      reading.Humidity,
		"pressure":      reading.Pressure,
		"last_update":   reading.LastUpdate,
		"stale":         !fresh,
	})
}

func nullableTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.Format(time.RFC3339)
}
