package sensors

import (
	"context"
	"sync"
)

// Mock implements Source with configurable responses for tests.
type Mock struct {
	mu sync.Mutex

	FallStatus       FallStatus
	EmergencyStatus  EmergencyStatus
	AssistanceStatus AssistanceStatus
	EnvReading       Environmental
	Err              error

	calls int
}

var _ Source = (*Mock)(nil)

func (m *Mock) Fall(ctx context.Context) (FallStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.FallStatus, m.Err
}

func (m *Mock) Emergency(ctx context.Context) (EmergencyStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.EmergencyStatus, m.Err
}

func (m *Mock) Assistance(ctx context.Context) (AssistanceStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.AssistanceStatus, m.Err
}

func (m *Mock) Environment(ctx context.Context) (Environmental, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.EnvReading, m.Err
}

// SetFall updates the mock's fall status.
func (m *Mock) SetFall(s FallStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FallStatus = s
}

// SetErr makes every call return err.
func (m *Mock) SetErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Err = err
}

// CallCount returns the number of calls made across all methods.
func (m *Mock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
