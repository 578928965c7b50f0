package audio

import (
	"context"
	"sync"
	"time"

	"github.com/visionaid/go-visionaid/pkg/tts"
)

// MockSink records plays for tests. An optional per-play delay
// simulates real playback time.
type MockSink struct {
	// PlayDelay makes each Play block for the given duration,
	// honoring context cancellation.
	PlayDelay time.Duration

	// PlayErr, if set, is returned by every Play.
	PlayErr error

	mu    sync.Mutex
	plays []int
}

var _ Sink = (*MockSink)(nil)

func (m *MockSink) Play(ctx context.Context, result *tts.AudioResult) error {
	if m.PlayDelay > 0 {
		select {
		case <-time.After(m.PlayDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if result != nil {
		m.plays = append(m.plays, len(result.Audio))
	} else {
		m.plays = append(m.plays, 0)
	}
	return m.PlayErr
}

func (m *MockSink) Close() error { return nil }

// PlayCount returns how many utterances have been played.
func (m *MockSink) PlayCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.plays)
}
