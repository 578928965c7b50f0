package tts

import (
	"context"
	"sync"
	"time"
)

// Mock implements Provider for tests. Behavior is customized via
// function fields; every invocation is recorded.
type Mock struct {
	// SynthesizeFunc handles Synthesize calls. The NewMock default
	// returns silent audio paced like natural speech.
	SynthesizeFunc func(ctx context.Context, text string) (*AudioResult, error)

	// HealthFunc handles Health calls. Nil means healthy.
	HealthFunc func(ctx context.Context) error

	// CloseFunc handles Close calls. Nil means no-op.
	CloseFunc func() error

	mu    sync.Mutex
	calls []MockCall
}

// MockCall records one method invocation.
type MockCall struct {
	Method string
	Text   string
	Time   time.Time
}

var _ Provider = (*Mock)(nil)

// NewMock creates a mock whose Synthesize returns silence sized to
// roughly 20ms of 24kHz PCM16 per character.
func NewMock() *Mock {
	return &Mock{
		SynthesizeFunc: func(ctx context.Context, text string) (*AudioResult, error) {
			bytesPerChar := 960
			return &AudioResult{
				Audio: make([]byte, len(text)*bytesPerChar),
				Format: AudioFormat{
					Encoding:   EncodingPCM24,
					SampleRate: 24000,
					Channels:   1,
					BitDepth:   16,
				},
				CharCount: len(text),
				LatencyMs: 10,
				Duration:  time.Duration(len(text)) * 20 * time.Millisecond,
			}, nil
		},
	}
}

// WithError returns a mock whose every method fails with err.
func WithError(err error) *Mock {
	return &Mock{
		SynthesizeFunc: func(ctx context.Context, text string) (*AudioResult, error) {
			return nil, err
		},
		HealthFunc: func(ctx context.Context) error { return err },
	}
}

// WithLatency wraps m so Synthesize waits for delay (or context
// cancellation) before responding.
func WithLatency(m *Mock, delay time.Duration) *Mock {
	inner := m.SynthesizeFunc
	m.SynthesizeFunc = func(ctx context.Context, text string) (*AudioResult, error) {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return inner(ctx, text)
	}
	return m
}

func (m *Mock) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	m.record("Synthesize", text)
	if m.SynthesizeFunc == nil {
		return nil, WrapError("mock", ErrAllProvidersFailed)
	}
	return m.SynthesizeFunc(ctx, text)
}

func (m *Mock) Health(ctx context.Context) error {
	m.record("Health", "")
	if m.HealthFunc == nil {
		return nil
	}
	return m.HealthFunc(ctx)
}

func (m *Mock) Close() error {
	m.record("Close", "")
	if m.CloseFunc == nil {
		return nil
	}
	return m.CloseFunc()
}

func (m *Mock) record(method, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MockCall{Method: method, Text: text, Time: time.Now()})
}

// Calls returns a copy of all recorded calls.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns how many times method was invoked.
func (m *Mock) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// LastText returns the text of the most recent Synthesize call.
func (m *Mock) LastText() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.calls) - 1; i >= 0; i-- {
		if m.calls[i].Method == "Synthesize" {
			return m.calls[i].Text
		}
	}
	return ""
}
