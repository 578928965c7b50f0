package voicecmd

import (
	"context"
	"sync"
)

// MockRecognizer returns queued transcripts for tests. When the queue
// empties, Recognize blocks until the context is cancelled.
type MockRecognizer struct {
	mu    sync.Mutex
	queue []string
	waitC chan struct{}
}

var _ Recognizer = (*MockRecognizer)(nil)

// NewMockRecognizer creates a recognizer preloaded with transcripts.
func NewMockRecognizer(transcripts ...string) *MockRecognizer {
	return &MockRecognizer{queue: transcripts, waitC: make(chan struct{})}
}

// Push appends a transcript to the queue.
func (m *MockRecognizer) Push(transcript string) {
	m.mu.Lock()
	m.queue = append(m.queue, transcript)
	m.mu.Unlock()

	select {
	case m.waitC <- struct{}{}:
	default:
	}
}

func (m *MockRecognizer) Recognize(ctx context.Context) (string, error) {
	for {
		m.mu.Lock()
		if len(m.queue) > 0 {
			t := m.queue[0]
			m.queue = m.queue[1:]
			m.mu.Unlock()
			return t, nil
		}
		m.mu.Unlock()

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-m.waitC:
		}
	}
}

func (m *MockRecognizer) Close() error { return nil }
