package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/visionaid/go-visionaid/internal/config"
	"github.com/visionaid/go-visionaid/pkg/audio"
	"github.com/visionaid/go-visionaid/pkg/detection"
	"github.com/visionaid/go-visionaid/pkg/sensors"
	"github.com/visionaid/go-visionaid/pkg/tts"
	"github.com/visionaid/go-visionaid/pkg/voicecmd"
)

type staticFrames struct{}

func (staticFrames) CaptureJPEG() ([]byte, error) {
	return []byte("jpeg"), nil
}

type testRig struct {
	app      *App
	detector *detection.Mock
	sensors  *sensors.Mock
	voice    *tts.Mock
	sink     *audio.MockSink
	rec      *voicecmd.MockRecognizer
	cancel   context.CancelFunc
	done     chan error
}

func startTestApp(t *testing.T, dets ...detection.Detection) *testRig {
	t.Helper()

	dir := t.TempDir()
	classes := filepath.Join(dir, "classes.txt")
	if err := os.WriteFile(classes, []byte("person\nchair\ncar\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{
		PiBaseURL:       "http://127.0.0.1:1",
		ClassesPath:     classes,
		InferenceEvery:  20 * time.Millisecond,
		CooldownWindow:  10 * time.Second,
		SafetyPollEvery: 20 * time.Millisecond,
		EnvPollEvery:    time.Hour,
		PollTimeout:     time.Second,
		DBPath:          filepath.Join(dir, "test.db"),
		APIPort:         "0",
	}

	rig := &testRig{
		detector: detection.NewMock(dets...),
		sensors:  &sensors.Mock{},
		voice:    tts.NewMock(),
		sink:     &audio.MockSink{},
		rec:      voicecmd.NewMockRecognizer(),
	}

	a, err := New(cfg,
		WithDetector(rig.detector),
		WithFrameSource(staticFrames{}),
		WithSensorSource(rig.sensors),
		WithVoiceProvider(rig.voice),
		WithAudioSink(rig.sink),
		WithRecognizer(rig.rec),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	rig.app = a

	ctx, cancel := context.WithCancel(context.Background())
	rig.cancel = cancel
	rig.done = make(chan error, 1)
	go func() { rig.done <- a.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case <-rig.done:
		case <-time.After(5 * time.Second):
			t.Error("Run did not stop")
		}
		a.Close()
	})
	return rig
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestCriticalDetectionIsAnnouncedAndRecorded(t *testing.T) {
	rig := startTestApp(t, detection.Detection{
		ClassName: "person", X: 0.3, Y: 0.1, W: 0.4, H: 0.7, Confidence: 0.9,
	})

	waitFor(t, "announcement", func() { return rig.sink.PlayCount() >= 1 })

	if got := rig.voice.LastText(); !strings.Contains(got, "person ahead, critical") {
		t.Errorf("announced %q, want person ahead, critical", got)
	}

	waitFor(t, "alert record", func() {
		alerts, err := rig.app.store.RecentAlerts(context.Background(), 10)
		if err != nil {
			t.Fatal(err)
		}
		for _, al := range alerts {
			if al.Category == "proximity" && al.ObjectType == "person" {
				return true
			}
		}
		return false
	})
}

func TestCooldownSuppressesRepeatAnnouncements(t *testing.T) {
	rig := startTestApp(t, detection.Detection{
		ClassName: "chair", X: 0.0, Y: 0.2, W: 0.2, H: 0.5, Confidence: 0.8,
	})

	waitFor(t, "first announcement", func() { return rig.sink.PlayCount() >= 1 })

	// Several more inference cycles pass inside the cooldown window.
	time.Sleep(150 * time.Millisecond)
	if n := rig.sink.PlayCount(); n != 1 {
		t.Errorf("got %d announcements inside cooldown window, want 1", n)
	}
}

func TestFarDetectionIsRecordedButNotAnnounced(t *testing.T) {
	rig := startTestApp(t, detection.Detection{
		ClassName: "car", X: 0.7, Y: 0.4, W: 0.15, H: 0.2, Confidence: 0.7,
	})

	waitFor(t, "detection record", func() {
		stats, err := rig.app.store.Overview(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		return stats.CurrentSession != nil && stats.CurrentSession.TotalDetections > 0
	})

	if n := rig.sink.PlayCount(); n != 0 {
		t.Errorf("far detection announced %d times, want 0", n)
	}
}

func TestFallTransitionIsAnnounced(t *testing.T) {
	rig := startTestApp(t)

	rig.sensors.SetFall(sensors.FallStatus{FallDetected: true})

	waitFor(t, "fall announcement", func() {
		for _, call := range rig.voice.Calls() {
			if strings.Contains(call.Text, "fall detected") {
				return true
			}
		}
		return false
	})

	if !rig.app.safetySet.Fall.Active() {
		t.Error("fall monitor not active after sensor flag")
	}
}

func TestVoiceCommandDescribesScene(t *testing.T) {
	rig := startTestApp(t, detection.Detection{
		ClassName: "person", X: 0.0, Y: 0.1, W: 0.1, H: 0.2, Confidence: 0.9,
	})

	// Let at least one inference cycle populate the scene.
	waitFor(t, "scene", func() {
		return rig.app.DescribeScene() != "nothing detected nearby"
	})

	rig.rec.Push("what's around me")
	waitFor(t, "scene response", func() {
		for _, call := range rig.voice.Calls() {
			if strings.Contains(call.Text, "I can see person to your left") {
				return true
			}
		}
		return false
	})

	cmds, err := rig.app.store.VoiceCommands(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(cmds) == 0 {
		t.Fatal("voice command not logged")
	}
}
