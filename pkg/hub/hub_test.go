package hub_test

import (
	"context"
	"testing"
	"time"

	"github.com/visionaid/go-visionaid/pkg/hub"
)

func TestPublishWithNoClients(t *testing.T) {
	h := hub.New("alerts")
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	// Publishing with nobody connected must not block or panic.
	for i := 0; i < 10; i++ {
		h.Publish("alert", map[string]string{"message": "person ahead, critical"})
	}
	if h.ClientCount() != 0 {
		t.Fatalf("clients = %d, want 0", h.ClientCount())
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop on cancellation")
	}
}

func TestPublishUnencodableEventIsDropped(t *testing.T) {
	h := hub.New("status")
	// Channels cannot be JSON-encoded; the event is dropped, not fatal.
	h.Publish("bad", make(chan int))
}
