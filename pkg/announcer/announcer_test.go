package announcer_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/visionaid/go-visionaid/pkg/alert"
	"github.com/visionaid/go-visionaid/pkg/announcer"
	"github.com/visionaid/go-visionaid/pkg/audio"
	"github.com/visionaid/go-visionaid/pkg/proximity"
	"github.com/visionaid/go-visionaid/pkg/tts"
)

func criticalAlert(object string) alert.Alert {
	return alert.FromProximity(proximity.Event{
		Object:    object,
		Direction: proximity.DirAhead,
		Zone:      proximity.ZoneCritical,
		Timestamp: time.Now(),
	})
}

func TestRunAnnouncesPublishedAlerts(t *testing.T) {
	agg := alert.NewAggregator()
	provider := tts.NewMock()
	sink := &audio.MockSink{}
	a := announcer.New(agg, provider, sink)

	var mu sync.Mutex
	var announced []string
	a.OnAnnounced = func(al alert.Alert) {
		mu.Lock()
		announced = append(announced, al.Message)
		mu.Unlock()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		a.Run(ctx)
		close(done)
	}()

	agg.Publish(criticalAlert("person"))

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		n := len(announced)
		mu.Unlock()
		if n == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("alert was never announced")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if provider.LastText() != "person ahead, critical" {
		t.Fatalf("spoke %q", provider.LastText())
	}
	if sink.PlayCount() != 1 {
		t.Fatalf("plays = %d, want 1", sink.PlayCount())
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop on cancellation")
	}
}

func TestSynthesisFailureDoesNotStopConsumer(t *testing.T) {
	agg := alert.NewAggregator()
	provider := tts.NewMock()
	fail := true
	provider.SynthesizeFunc = func(ctx context.Context, text string) (*tts.AudioResult, error) {
		if fail {
			fail = false
			return nil, errors.New("synthesis down")
		}
		return &tts.AudioResult{Audio: []byte("ok")}, nil
	}
	sink := &audio.MockSink{}
	a := announcer.New(agg, provider, sink)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.Run(ctx)

	agg.Publish(criticalAlert("person"))
	agg.Publish(criticalAlert("car"))

	deadline := time.Now().Add(2 * time.Second)
	for sink.PlayCount() < 1 {
		if time.Now().After(deadline) {
			t.Fatal("consumer stopped after synthesis failure")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSayNowWaitsForCurrentUtterance(t *testing.T) {
	agg := alert.NewAggregator()
	provider := tts.NewMock()
	sink := &audio.MockSink{PlayDelay: 150 * time.Millisecond}
	a := announcer.New(agg, provider, sink)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.Run(ctx)

	agg.Publish(criticalAlert("person"))

	// Wait until the first utterance is playing.
	deadline := time.Now().Add(2 * time.Second)
	for !a.Speaking() {
		if time.Now().After(deadline) {
			t.Fatal("first utterance never started")
		}
		time.Sleep(5 * time.Millisecond)
	}

	start := time.Now()
	if err := a.SayNow(ctx, "two people nearby"); err != nil {
		t.Fatalf("SayNow: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Fatalf("SayNow returned after %v; should have waited for the current utterance", elapsed)
	}
	if sink.PlayCount() != 2 {
		t.Fatalf("plays = %d, want 2", sink.PlayCount())
	}
	if provider.LastText() != "two people nearby" {
		t.Fatalf("last text = %q", provider.LastText())
	}
}

func TestUtterancesNeverOverlap(t *testing.T) {
	agg := alert.NewAggregator()
	provider := tts.NewMock()

	var mu sync.Mutex
	active, maxActive := 0, 0
	provider.SynthesizeFunc = func(ctx context.Context, text string) (*tts.AudioResult, error) {
		mu.Lock()
		active++
		if active > maxActive {
			maxActive = active
		}
		mu.Unlock()
		time.Sleep(20 * time.Millisecond)
		mu.Lock()
		active--
		mu.Unlock()
		return &tts.AudioResult{Audio: []byte("a")}, nil
	}
	sink := &audio.MockSink{}
	a := announcer.New(agg, provider, sink)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.Run(ctx)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.SayNow(ctx, "direct")
		}()
	}
	agg.Publish(criticalAlert("person"))
	wg.Wait()

	deadline := time.Now().Add(2 * time.Second)
	for sink.PlayCount() < 5 {
		if time.Now().After(deadline) {
			t.Fatalf("plays = %d, want 5", sink.PlayCount())
		}
		time.Sleep(10 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if maxActive > 1 {
		t.Fatalf("observed %d concurrent syntheses", maxActive)
	}
}
