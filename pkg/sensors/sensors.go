// Package sensors talks to the wearable Pi unit: safety status
// endpoints, environmental readings, and acknowledgements.
package sensors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/visionaid/go-visionaid/internal/httpc"
)

// DefaultTimeout bounds each status request. The pollers run on a
// short cadence, so a slow Pi must not back them up.
const DefaultTimeout = 3 * time.Second

// ErrUnavailable is returned when the Pi answers with a non-2xx status.
var ErrUnavailable = errors.New("sensors: pi unit unavailable")

// FallStatus mirrors the Pi's fall detection endpoint. Timestamps are
// unix seconds and nil while no fall has occurred.
type FallStatus struct {
	FallDetected      bool     `json:"fall_detected"`
	LastFallTimestamp *float64 `json:"last_fall_timestamp"`
}

// EmergencyStatus mirrors the Pi's emergency button endpoint.
type EmergencyStatus struct {
	EmergencyActive        bool     `json:"emergency_active"`
	LastEmergencyTimestamp *float64 `json:"last_emergency_timestamp"`
}

// AssistanceStatus mirrors the Pi's assistance request endpoint.
// AssistanceType is empty when no request is active.
type AssistanceStatus struct {
	AssistanceActive        bool     `json:"assistance_active"`
	AssistanceType          string   `json:"assistance_type"`
	LastAssistanceTimestamp *float64 `json:"last_assistance_timestamp"`
}

// Environmental holds the Sense HAT readings.
type Environmental struct {
	TemperatureC float64 `json:"temperature_c"`
	TemperatureF float64 `json:"temperature_f"`
	Humidity     float64 `json:"humidity"`
	Pressure     float64 `json:"pressure"`
	LastUpdate   string  `json:"last_update"`
}

// Source is the read side of the Pi unit. Safety monitors poll
// through this interface so tests can substitute a mock.
type Source interface {
	Fall(ctx context.Context) (FallStatus, error)
	Emergency(ctx context.Context) (EmergencyStatus, error)
	Assistance(ctx context.Context) (AssistanceStatus, error)
	Environment(ctx context.Context) (Environmental, error)
}

// Client is an HTTP client for the Pi unit's status API.
type Client struct {
	baseURL string
	http    *http.Client
}

var _ Source = (*Client)(nil)

// NewClient creates a client for the Pi unit at baseURL, e.g.
// "http://192.168.1.42:5000".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    httpc.NewClient(DefaultTimeout),
	}
}

// Fall returns the current fall detection status.
func (c *Client) Fall(ctx context.Context) (FallStatus, error) {
	var s FallStatus
	err := c.getJSON(ctx, "/api/fall_status", &s)
	return s, err
}

// Emergency returns the current emergency button status.
func (c *Client) Emergency(ctx context.Context) (EmergencyStatus, error) {
	var s EmergencyStatus
	err := c.getJSON(ctx, "/api/emergency_status", &s)
	return s, err
}

// Assistance returns the current assistance request status.
func (c *Client) Assistance(ctx context.Context) (AssistanceStatus, error) {
	var s AssistanceStatus
	err := c.getJSON(ctx, "/api/assistance_status", &s)
	return s, err
}

// Environment returns the latest environmental readings.
func (c *Client) Environment(ctx context.Context) (Environmental, error) {
	var e Environmental
	err := c.getJSON(ctx, "/api/environmental", &e)
	return e, err
}

// AcknowledgeFall clears the fall flag on the Pi unit.
func (c *Client) AcknowledgeFall(ctx context.Context) error {
	return c.getJSON(ctx, "/api/fall_acknowledge", nil)
}

// AcknowledgeEmergency clears the emergency flag on the Pi unit.
func (c *Client) AcknowledgeEmergency(ctx context.Context) error {
	return c.getJSON(ctx, "/api/emergency_acknowledge", nil)
}

// AcknowledgeAssistance clears the assistance request on the Pi unit.
func (c *Client) AcknowledgeAssistance(ctx context.Context) error {
	return c.getJSON(ctx, "/api/assistance_acknowledge", nil)
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request for %s: %w", path, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s returned %d", ErrUnavailable, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
