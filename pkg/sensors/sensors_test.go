package sensors_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/visionaid/go-visionaid/pkg/sensors"
)

func TestClientFall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/fall_status" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"fall_detected": true, "last_fall_timestamp": 1724900000.5}`))
	}))
	defer srv.Close()

	c := sensors.NewClient(srv.URL)
	s, err := c.Fall(context.Background())
	if err != nil {
		t.Fatalf("Fall: %v", err)
	}
	if !s.FallDetected {
		t.Fatal("expected fall_detected = true")
	}
	if s.LastFallTimestamp == nil || *s.LastFallTimestamp != 1724900000.5 {
		t.Fatalf("timestamp = %v", s.LastFallTimestamp)
	}
}

func TestClientFallNullTimestamp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"fall_detected": false, "last_fall_timestamp": null}`))
	}))
	defer srv.Close()

	s, err := sensors.NewClient(srv.URL).Fall(context.Background())
	if err != nil {
		t.Fatalf("Fall: %v", err)
	}
	if s.FallDetected || s.LastFallTimestamp != nil {
		t.Fatalf("unexpected status: %+v", s)
	}
}

func TestClientAssistance(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"assistance_active": true, "assistance_type": "bathroom", "last_assistance_timestamp": 1724900100}`))
	}))
	defer srv.Close()

	s, err := sensors.NewClient(srv.URL).Assistance(context.Background())
	if err != nil {
		t.Fatalf("Assistance: %v", err)
	}
	if !s.AssistanceActive || s.AssistanceType != "bathroom" {
		t.Fatalf("unexpected status: %+v", s)
	}
}

func TestClientEnvironment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"temperature_c": 22.4, "temperature_f": 72.3, "humidity": 45.0, "pressure": 1013.2, "last_update": "2026-08-30T10:00:00"}`))
	}))
	defer srv.Close()

	e, err := sensors.NewClient(srv.URL).Environment(context.Background())
	if err != nil {
		t.Fatalf("Environment: %v", err)
	}
	if e.TemperatureC != 22.4 || e.Humidity != 45.0 {
		t.Fatalf("unexpected reading: %+v", e)
	}
}

func TestClientServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "sense hat offline", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := sensors.NewClient(srv.URL).Emergency(context.Background())
	if !errors.Is(err, sensors.ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestClientAcknowledge(t *testing.T) {
	var hit string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hit = r.URL.Path
		w.Write([]byte(`{"status": "acknowledged"}`))
	}))
	defer srv.Close()

	if err := sensors.NewClient(srv.URL).AcknowledgeFall(context.Background()); err != nil {
		t.Fatalf("AcknowledgeFall: %v", err)
	}
	if hit != "/api/fall_acknowledge" {
		t.Fatalf("hit %q", hit)
	}
}

func TestHealthDegraded(t *testing.T) {
	var h sensors.Health
	if h.Degraded() {
		t.Fatal("fresh health should not be degraded")
	}
	for i := 0; i < sensors.DegradedAfter; i++ {
		h.RecordFailure(errors.New("connection refused"))
	}
	if !h.Degraded() {
		t.Fatal("expected degraded after repeated failures")
	}
	h.RecordSuccess()
	if h.Degraded() {
		t.Fatal("success should clear degraded state")
	}
}

func TestHealthSnapshot(t *testing.T) {
	var h sensors.Health
	h.RecordFailure(errors.New("timeout"))
	snap := h.Snapshot()
	if snap.Failures != 1 || snap.LastError != "timeout" {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestEnvCache(t *testing.T) {
	c := sensors.NewEnvCache(50 * time.Millisecond)
	if _, ok := c.Get(); ok {
		t.Fatal("empty cache should not be fresh")
	}

	c.Set(sensors.Environmental{TemperatureC: 21.0})
	got, ok := c.Get()
	if !ok || got.TemperatureC != 21.0 {
		t.Fatalf("got %+v, fresh=%v", got, ok)
	}

	time.Sleep(70 * time.Millisecond)
	if _, ok := c.Get(); ok {
		t.Fatal("reading should have expired")
	}
}
