// Package audio plays synthesized alert audio on the local speaker.
package audio

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"

	"github.com/visionaid/go-visionaid/pkg/tts"
)

// Sink plays one complete utterance at a time. Play blocks until the
// audio finishes or the context is cancelled; the announcer relies on
// this to serialize speech.
type Sink interface {
	Play(ctx context.Context, result *tts.AudioResult) error
	Close() error
}

// ALSAPlayer plays PCM16 audio through aplay. Each utterance spawns
// one short-lived process; alerts are a few seconds long at most.
type ALSAPlayer struct {
	binary string
	device string
}

var _ Sink = (*ALSAPlayer)(nil)

// PlayerOption configures an ALSAPlayer.
type PlayerOption func(*ALSAPlayer)

// WithDevice selects an ALSA device (aplay -D).
func WithDevice(device string) PlayerOption {
	return func(p *ALSAPlayer) { p.device = device }
}

// WithBinary overrides the player binary. Tests point this at a stub.
func WithBinary(path string) PlayerOption {
	return func(p *ALSAPlayer) { p.binary = path }
}

// NewALSAPlayer creates a player using the default output device.
func NewALSAPlayer(opts ...PlayerOption) *ALSAPlayer {
	p := &ALSAPlayer{binary: "aplay"}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Play writes the utterance to aplay's stdin and waits for playback
// to finish. Cancelling the context kills the player mid-utterance;
// the announcer only does that on shutdown.
func (p *ALSAPlayer) Play(ctx context.Context, result *tts.AudioResult) error {
	if result == nil || len(result.Audio) == 0 {
		return nil
	}

	args := []string{
		"-q",
		"-f", "S16_LE",
		"-r", strconv.Itoa(result.Format.SampleRate),
		"-c", strconv.Itoa(max(result.Format.Channels, 1)),
		"-t", "raw",
	}
	if p.device != "" {
		args = append(args, "-D", p.device)
	}

	cmd := exec.CommandContext(ctx, p.binary, args...)
	cmd.Stdin = bytes.NewReader(result.Audio)
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("audio: playback failed: %w", err)
	}
	return nil
}

// Close is a no-op; each Play owns its process.
func (p *ALSAPlayer) Close() error { return nil }
