// Package announcer drains the alert stream and speaks each alert.
//
// One announcer instance is the sole consumer of the aggregator.
// Utterances are serialized: synthesis and playback of one alert
// finish before the next begins, and a direct SayNow waits for the
// current utterance rather than interrupting it.
package announcer

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/visionaid/go-visionaid/internal/log"
	"github.com/visionaid/go-visionaid/pkg/alert"
	"github.com/visionaid/go-visionaid/pkg/audio"
	"github.com/visionaid/go-visionaid/pkg/tts"
)

// utteranceTimeout bounds one synthesize-and-play cycle. A stuck
// provider must not wedge the alert stream forever.
const utteranceTimeout = 30 * time.Second

// Announcer speaks alerts pulled from an aggregator.
type Announcer struct {
	agg      *alert.Aggregator
	provider tts.Provider
	sink     audio.Sink

	// utterMu serializes utterances across Run and SayNow.
	utterMu  sync.Mutex
	speaking atomic.Bool

	// OnAnnounced, if set, is called after an alert finishes playing.
	OnAnnounced func(alert.Alert)
}

// New creates an announcer over the given aggregator, voice provider
// and audio sink.
func New(agg *alert.Aggregator, provider tts.Provider, sink audio.Sink) *Announcer {
	return &Announcer{agg: agg, provider: provider, sink: sink}
}

// Run consumes alerts until the context is cancelled. Cancellation
// interrupts the wait for the next alert; an utterance already in
// progress plays to completion.
func (a *Announcer) Run(ctx context.Context) {
	for {
		al, err := a.agg.Next(ctx)
		if err != nil {
			return
		}
		if err := a.speak(ctx, al.Message); err != nil {
			log.Error("failed to announce alert",
				"message", al.Message, "severity", al.Severity.String(), "error", err)
			continue
		}
		if a.OnAnnounced != nil {
			a.OnAnnounced(al)
		}
	}
}

// SayNow speaks text immediately, bypassing the alert queue. It waits
// for any utterance in progress to finish first. Used for voice
// command responses.
func (a *Announcer) SayNow(ctx context.Context, text string) error {
	return a.speak(ctx, text)
}

// Speaking reports whether an utterance is currently in progress.
func (a *Announcer) Speaking() bool {
	return a.speaking.Load()
}

// speak synthesizes and plays one utterance. The utterance itself is
// detached from the caller's cancellation so shutdown never cuts
// speech mid-word; the timeout bounds it instead.
func (a *Announcer) speak(ctx context.Context, text string) error {
	a.utterMu.Lock()
	defer a.utterMu.Unlock()

	a.speaking.Store(true)
	defer a.speaking.Store(false)

	uctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), utteranceTimeout)
	defer cancel()

	result, err := a.provider.Synthesize(uctx, text)
	if err != nil {
		return err
	}
	return a.sink.Play(uctx, result)
}
