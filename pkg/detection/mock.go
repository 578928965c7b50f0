package detection

import "sync"

// Mock implements Detector for testing.
// DetectFunc can be customized; if nil, Detect returns no detections.
type Mock struct {
	DetectFunc func(jpeg []byte) ([]Detection, error)

	mu    sync.Mutex
	calls int
}

// NewMock creates a mock detector that returns the given detections
// on every call.
func NewMock(dets ...Detection) *Mock {
	return &Mock{
		DetectFunc: func(jpeg []byte) ([]Detection, error) {
			return dets, nil
		},
	}
}

// Detect calls DetectFunc and records the call.
func (m *Mock) Detect(jpeg []byte) ([]Detection, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.DetectFunc != nil {
		return m.DetectFunc(jpeg)
	}
	return nil, nil
}

// Close is a no-op.
func (m *Mock) Close() error { return nil }

// CallCount returns the number of Detect calls.
func (m *Mock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Verify Mock implements Detector at compile time.
var _ Detector = (*Mock)(nil)
