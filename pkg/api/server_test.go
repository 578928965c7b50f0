package api_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/visionaid/go-visionaid/pkg/alert"
	"github.com/visionaid/go-visionaid/pkg/api"
	"github.com/visionaid/go-visionaid/pkg/proximity"
	"github.com/visionaid/go-visionaid/pkg/safety"
	"github.com/visionaid/go-visionaid/pkg/sensors"
	"github.com/visionaid/go-visionaid/pkg/store"
)

type fixture struct {
	server *api.Server
	store  *store.Store
	safety *safety.Set

	mu          sync.Mutex
	transitions []safety.Transition
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	f := &fixture{store: s}
	f.safety = safety.NewSet(func(tr safety.Transition) {
		f.mu.Lock()
		f.transitions = append(f.transitions, tr)
		f.mu.Unlock()
	})

	var health sensors.Health
	f.server = api.NewServer(api.Deps{
		Store:    s,
		Safety:   f.safety,
		PiHealth: &health,
		EnvCache: sensors.NewEnvCache(time.Minute),
	})
	return f
}

func (f *fixture) get(t *testing.T, path string) (*http.Response, []byte) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	resp, err := f.server.App().Test(req, -1)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	resp.Body.Close()
	return resp, body
}

func (f *fixture) getJSON(t *testing.T, path string, out interface{}) {
	t.Helper()
	resp, body := f.get(t, path)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s: status %d: %s", path, resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, out); err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
}

func TestStatusReflectsSession(t *testing.T) {
	f := newFixture(t)

	var resp struct {
		Status    string `json:"status"`
		SessionID int64  `json:"current_session_id"`
	}
	f.getJSON(t, "/api/status", &resp)
	if resp.Status != "inactive" {
		t.Fatalf("status = %q, want inactive", resp.Status)
	}

	id, _ := f.store.StartSession(context.Background())
	f.getJSON(t, "/api/status", &resp)
	if resp.Status != "active" || resp.SessionID != id {
		t.Fatalf("status = %+v", resp)
	}
}

func TestFallStatusAndAcknowledge(t *testing.T) {
	f := newFixture(t)
	f.safety.Fall.Raise("")

	var status struct {
		FallDetected bool   `json:"fall_detected"`
		State        string `json:"state"`
	}
	f.getJSON(t, "/api/fall_status", &status)
	if !status.FallDetected || status.State != "active" {
		t.Fatalf("status = %+v", status)
	}

	var ack struct {
		Status  string `json:"status"`
		Changed bool   `json:"changed"`
	}
	f.getJSON(t, "/api/fall_acknowledge", &ack)
	if ack.Status != "acknowledged" || !ack.Changed {
		t.Fatalf("ack = %+v", ack)
	}

	// Second acknowledge is a no-op but returns the same shape.
	f.getJSON(t, "/api/fall_acknowledge", &ack)
	if ack.Status != "acknowledged" || ack.Changed {
		t.Fatalf("repeat ack = %+v", ack)
	}

	// Acknowledged reads as inactive.
	f.getJSON(t, "/api/fall_status", &status)
	if status.FallDetected || status.State != "acknowledged" {
		t.Fatalf("post-ack status = %+v", status)
	}

	// Exactly two transitions: raise + one acknowledge.
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.transitions) != 2 {
		t.Fatalf("transitions = %d, want 2", len(f.transitions))
	}
}

func TestAssistanceStatusCarriesSubtype(t *testing.T) {
	f := newFixture(t)
	f.safety.Assistance.Raise(safety.AssistBathroom)

	var status struct {
		Active  bool   `json:"assistance_active"`
		Subtype string `json:"assistance_type"`
	}
	f.getJSON(t, "/api/assistance_status", &status)
	if !status.Active || status.Subtype != safety.AssistBathroom {
		t.Fatalf("status = %+v", status)
	}
}

func TestRecentAlertsAndStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.StartSession(ctx)
	f.store.LogAlert(ctx, alert.FromProximity(proximity.Event{
		Object: "person", Direction: proximity.DirAhead,
		Zone: proximity.ZoneCritical, Timestamp: time.Now(),
	}))

	var alerts []map[string]interface{}
	f.getJSON(t, "/api/alerts/recent?limit=10", &alerts)
	if len(alerts) != 1 || alerts[0]["object_type"] != "person" {
		t.Fatalf("alerts = %+v", alerts)
	}

	var overview struct {
		CurrentSession *struct {
			TotalAlerts int64 `json:"total_alerts"`
		} `json:"current_session"`
	}
	f.getJSON(t, "/api/stats/overview", &overview)
	if overview.CurrentSession == nil || overview.CurrentSession.TotalAlerts != 1 {
		t.Fatalf("overview = %+v", overview)
	}

	var safetyStats struct {
		Critical24h int64 `json:"critical_alerts_24h"`
	}
	f.getJSON(t, "/api/stats/safety", &safetyStats)
	if safetyStats.Critical24h != 1 {
		t.Fatalf("safety stats = %+v", safetyStats)
	}
}

func TestTimelineHoursParam(t *testing.T) {
	f := newFixture(t)
	var tl struct {
		Detections []interface{} `json:"detections_timeline"`
	}
	f.getJSON(t, "/api/stats/timeline?hours=2", &tl)
	if len(tl.Detections) != 0 {
		t.Fatalf("timeline = %+v", tl)
	}
}

func TestSessionNotFound(t *testing.T) {
	f := newFixture(t)
	resp, _ := f.get(t, "/api/sessions/999")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestEnvironmentalBeforeFirstReading(t *testing.T) {
	f := newFixture(t)
	resp, _ := f.get(t, "/api/environmental")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}
}
