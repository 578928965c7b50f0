package store_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/visionaid/go-visionaid/pkg/alert"
	"github.com/visionaid/go-visionaid/pkg/detection"
	"github.com/visionaid/go-visionaid/pkg/proximity"
	"github.com/visionaid/go-visionaid/pkg/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleEvent(object string, zone proximity.Zone) proximity.Event {
	return proximity.Event{
		Object:    object,
		Direction: proximity.DirAhead,
		Zone:      zone,
		Fraction:  0.65,
		Timestamp: time.Now(),
	}
}

func sampleDetection() detection.Detection {
	return detection.Detection{
		ClassName: "person", X: 0.3, Y: 0.2, W: 0.4, H: 0.65,
		Confidence: 0.9, Timestamp: time.Now(),
	}
}

func TestSessionLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.StartSession(ctx)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if id == 0 || s.CurrentSession() != id {
		t.Fatalf("session id = %d, current = %d", id, s.CurrentSession())
	}

	if err := s.EndSession(ctx); err != nil {
		t.Fatalf("EndSession: %v", err)
	}
	if s.CurrentSession() != 0 {
		t.Fatal("ended session should not be current")
	}

	rec, err := s.SessionByID(ctx, id)
	if err != nil {
		t.Fatalf("SessionByID: %v", err)
	}
	if rec == nil || rec.EndTime == nil || rec.DurationSeconds == nil {
		t.Fatalf("session not finalized: %+v", rec)
	}
}

func TestEndSessionWithoutOpenIsNoOp(t *testing.T) {
	s := openTestStore(t)
	if err := s.EndSession(context.Background()); err != nil {
		t.Fatalf("EndSession: %v", err)
	}
}

func TestWriteAfterCloseOpensNewSession(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first, _ := s.StartSession(ctx)
	if err := s.EndSession(ctx); err != nil {
		t.Fatalf("EndSession: %v", err)
	}

	if err := s.LogDetection(ctx, sampleDetection(), sampleEvent("person", proximity.ZoneCritical)); err != nil {
		t.Fatalf("LogDetection: %v", err)
	}
	second := s.CurrentSession()
	if second == 0 || second == first {
		t.Fatalf("write after close should open a fresh session (first=%d, second=%d)", first, second)
	}
}

func TestCountersIncrementOnWrites(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, _ := s.StartSession(ctx)
	ev := sampleEvent("person", proximity.ZoneCritical)
	if err := s.LogDetection(ctx, sampleDetection(), ev); err != nil {
		t.Fatalf("LogDetection: %v", err)
	}
	if err := s.LogAlert(ctx, alert.FromProximity(ev)); err != nil {
		t.Fatalf("LogAlert: %v", err)
	}
	if err := s.LogAlert(ctx, alert.FromProximity(sampleEvent("chair", proximity.ZoneWarning))); err != nil {
		t.Fatalf("LogAlert: %v", err)
	}

	rec, err := s.SessionByID(ctx, id)
	if err != nil {
		t.Fatalf("SessionByID: %v", err)
	}
	if rec.TotalDetections != 1 || rec.TotalAlerts != 2 || rec.CriticalAlerts != 1 {
		t.Fatalf("counters = %d/%d/%d, want 1/2/1",
			rec.TotalDetections, rec.TotalAlerts, rec.CriticalAlerts)
	}
}

func TestRecentAlerts(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	s.StartSession(ctx)

	s.LogAlert(ctx, alert.FromProximity(sampleEvent("person", proximity.ZoneCritical)))
	s.LogAlert(ctx, alert.NewSafety("fall detected", time.Now()))

	alerts, err := s.RecentAlerts(ctx, 10)
	if err != nil {
		t.Fatalf("RecentAlerts: %v", err)
	}
	if len(alerts) != 2 {
		t.Fatalf("alerts = %d, want 2", len(alerts))
	}
	var sawSafety bool
	for _, a := range alerts {
		if a.Category == "safety" && a.AlertText == "fall detected" {
			sawSafety = true
		}
	}
	if !sawSafety {
		t.Fatal("safety alert not recorded")
	}
}

func TestOverviewAndObjectStats(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	s.StartSession(ctx)

	for i := 0; i < 3; i++ {
		s.LogDetection(ctx, sampleDetection(), sampleEvent("person", proximity.ZoneCritical))
	}
	s.LogDetection(ctx, sampleDetection(), sampleEvent("chair", proximity.ZoneFar))

	overview, err := s.Overview(ctx)
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}
	if overview.CurrentSession == nil {
		t.Fatal("overview missing current session")
	}
	if overview.CurrentSession.TotalDetections != 4 {
		t.Fatalf("current session detections = %d", overview.CurrentSession.TotalDetections)
	}

	objects, err := s.ObjectStats(ctx)
	if err != nil {
		t.Fatalf("ObjectStats: %v", err)
	}
	if len(objects.CommonObjects) == 0 || objects.CommonObjects[0].ObjectType != "person" {
		t.Fatalf("common objects = %+v", objects.CommonObjects)
	}
}

func TestTimelineAndSafetyStats(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	s.StartSession(ctx)

	s.LogDetection(ctx, sampleDetection(), sampleEvent("person", proximity.ZoneCritical))
	s.LogAlert(ctx, alert.FromProximity(sampleEvent("person", proximity.ZoneCritical)))
	s.LogAlert(ctx, alert.FromProximity(sampleEvent("chair", proximity.ZoneWarning)))

	tl, err := s.Timeline(ctx, 24)
	if err != nil {
		t.Fatalf("Timeline: %v", err)
	}
	if len(tl.Detections) != 1 || tl.Detections[0].Count != 1 {
		t.Fatalf("detection timeline = %+v", tl.Detections)
	}

	safety, err := s.SafetyStats(ctx)
	if err != nil {
		t.Fatalf("SafetyStats: %v", err)
	}
	if safety.CriticalAlerts24h != 1 || safety.WarningAlerts24h != 1 {
		t.Fatalf("safety stats = %+v", safety)
	}
	if len(safety.DangerousObjects) != 1 || safety.DangerousObjects[0].ObjectType != "person" {
		t.Fatalf("dangerous objects = %+v", safety.DangerousObjects)
	}
}

func TestVoiceCommandsAndSummaries(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	s.StartSession(ctx)

	if err := s.LogVoiceCommand(ctx, "what's around me", "person ahead, chair to the left"); err != nil {
		t.Fatalf("LogVoiceCommand: %v", err)
	}
	if err := s.LogSceneSummary(ctx, "2 objects visible", 2); err != nil {
		t.Fatalf("LogSceneSummary: %v", err)
	}

	cmds, err := s.VoiceCommands(ctx, 10)
	if err != nil {
		t.Fatalf("VoiceCommands: %v", err)
	}
	if len(cmds) != 1 || cmds[0].Command != "what's around me" {
		t.Fatalf("commands = %+v", cmds)
	}
}
