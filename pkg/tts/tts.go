// Package tts converts alert text to audio.
//
// Providers implement the Provider interface so the announcer can
// switch backends without code changes. The primary backend is
// ElevenLabs; a Chain can fall back to secondary providers when the
// primary is unreachable.
package tts

import (
	"context"
	"time"
)

// Provider is a text-to-speech backend.
type Provider interface {
	// Synthesize converts text to a complete audio buffer. Alerts
	// are short, so whole-utterance synthesis keeps the pipeline
	// simple; there is no streaming path.
	Synthesize(ctx context.Context, text string) (*AudioResult, error)

	// Health checks connectivity and credential validity.
	Health(ctx context.Context) error

	// Close releases provider resources.
	Close() error
}

// AudioResult is a complete synthesis result.
type AudioResult struct {
	Audio     []byte
	Format    AudioFormat
	Duration  time.Duration
	CharCount int
	LatencyMs int64
}

// AudioFormat describes the audio encoding parameters.
type AudioFormat struct {
	Encoding   Encoding
	SampleRate int
	Channels   int
	BitDepth   int
}

// Encoding identifies the audio codec and sample rate. The values
// match ElevenLabs output format names.
type Encoding string

const (
	EncodingPCM16 Encoding = "pcm_16000"
	EncodingPCM22 Encoding = "pcm_22050"
	EncodingPCM24 Encoding = "pcm_24000"
	EncodingMP3   Encoding = "mp3_44100_128"
)

// SampleRateFromEncoding extracts the sample rate in Hz.
func SampleRateFromEncoding(enc Encoding) int {
	switch enc {
	case EncodingPCM16:
		return 16000
	case EncodingPCM22:
		return 22050
	case EncodingMP3:
		return 44100
	default:
		return 24000
	}
}
