// Package safety tracks hardware safety signals (falls, emergency
// button, assistance requests) as independent state machines.
package safety

import (
	"fmt"
	"sync"
	"time"
)

// Kind identifies one safety signal type. Each kind has its own
// monitor and its own lock.
type Kind string

const (
	KindFall       Kind = "fall"
	KindEmergency  Kind = "emergency"
	KindAssistance Kind = "assistance"
)

// Assistance subtypes as reported by the wearable unit.
const (
	AssistGeneral    = "general"
	AssistBathroom   = "bathroom"
	AssistFoodWater  = "food_water"
	AssistMedication = "medication"
)

// State is the lifecycle of one safety signal. There is no timeout
// from Acknowledged back to Idle; acknowledgement holds until the
// next raise.
type State int

const (
	StateIdle State = iota
	StateActive
	StateAcknowledged
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateAcknowledged:
		return "acknowledged"
	default:
		return "idle"
	}
}

// Transition is emitted on every state change. Refreshing an already
// active signal does not produce one.
type Transition struct {
	Kind    Kind
	From    State
	To      State
	Subtype string
	At      time.Time
}

// Message returns the spoken form of the transition.
func (t Transition) Message() string {
	switch {
	case t.To == StateActive && t.Kind == KindFall:
		return "fall detected"
	case t.To == StateActive && t.Kind == KindEmergency:
		return "emergency button pressed"
	case t.To == StateActive && t.Kind == KindAssistance:
		if t.Subtype != "" {
			return fmt.Sprintf("assistance requested: %s", t.Subtype)
		}
		return "assistance requested"
	case t.To == StateAcknowledged:
		return fmt.Sprintf("%s alert acknowledged", t.Kind)
	default:
		return fmt.Sprintf("%s %s", t.Kind, t.To)
	}
}

// Monitor is the state machine for one safety signal kind. All
// methods are safe for concurrent use; the OnTransition callback is
// invoked outside the monitor's lock.
type Monitor struct {
	kind Kind
	now  func() time.Time

	mu       sync.Mutex
	state    State
	subtype  string
	raisedAt time.Time
	ackedAt  time.Time

	onTransition func(Transition)
}

// MonitorOption configures a Monitor.
type MonitorOption func(*Monitor)

// WithTransitionFunc registers a callback fired on every transition.
func WithTransitionFunc(fn func(Transition)) MonitorOption {
	return func(m *Monitor) { m.onTransition = fn }
}

// WithClock overrides the monitor's time source for tests.
func WithClock(now func() time.Time) MonitorOption {
	return func(m *Monitor) { m.now = now }
}

// NewMonitor creates an idle monitor for the given kind.
func NewMonitor(kind Kind, opts ...MonitorOption) *Monitor {
	m := &Monitor{kind: kind, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Kind returns the signal type this monitor tracks.
func (m *Monitor) Kind() Kind { return m.kind }

// Raise signals the event is currently active. It reports whether a
// transition occurred: raising an already-active event only refreshes
// its timestamp, so at most one active incident exists per kind.
// Raising an acknowledged event starts a new incident.
func (m *Monitor) Raise(subtype string) bool {
	m.mu.Lock()
	at := m.now()
	if m.state == StateActive {
		m.raisedAt = at
		m.subtype = subtype
		m.mu.Unlock()
		return false
	}
	tr := Transition{Kind: m.kind, From: m.state, To: StateActive, Subtype: subtype, At: at}
	m.state = StateActive
	m.subtype = subtype
	m.raisedAt = at
	m.ackedAt = time.Time{}
	fn := m.onTransition
	m.mu.Unlock()

	if fn != nil {
		fn(tr)
	}
	return true
}

// Acknowledge moves an active event to acknowledged. It is
// idempotent: acknowledging an idle or already-acknowledged event is
// a no-op and reports false.
func (m *Monitor) Acknowledge() bool {
	m.mu.Lock()
	if m.state != StateActive {
		m.mu.Unlock()
		return false
	}
	at := m.now()
	tr := Transition{Kind: m.kind, From: StateActive, To: StateAcknowledged, Subtype: m.subtype, At: at}
	m.state = StateAcknowledged
	m.ackedAt = at
	fn := m.onTransition
	m.mu.Unlock()

	if fn != nil {
		fn(tr)
	}
	return true
}

// Active reports whether the event is currently active. Idle and
// acknowledged events both read as inactive.
func (m *Monitor) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == StateActive
}

// Status is a point-in-time snapshot for the query surface.
type Status struct {
	Kind           Kind      `json:"kind"`
	State          string    `json:"state"`
	Active         bool      `json:"active"`
	Subtype        string    `json:"subtype,omitempty"`
	RaisedAt       time.Time `json:"raised_at,omitzero"`
	AcknowledgedAt time.Time `json:"acknowledged_at,omitzero"`
}

// Status returns a snapshot of the monitor.
func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Status{
		Kind:           m.kind,
		State:          m.state.String(),
		Active:         m.state == StateActive,
		Subtype:        m.subtype,
		RaisedAt:       m.raisedAt,
		AcknowledgedAt: m.ackedAt,
	}
}

// Set groups the three monitors the system runs.
type Set struct {
	Fall       *Monitor
	Emergency  *Monitor
	Assistance *Monitor
}

// NewSet creates one monitor per kind, all sharing the same
// transition callback.
func NewSet(onTransition func(Transition)) *Set {
	return &Set{
		Fall:       NewMonitor(KindFall, WithTransitionFunc(onTransition)),
		Emergency:  NewMonitor(KindEmergency, WithTransitionFunc(onTransition)),
		Assistance: NewMonitor(KindAssistance, WithTransitionFunc(onTransition)),
	}
}

// ByKind returns the monitor for kind, or nil for an unknown kind.
func (s *Set) ByKind(kind Kind) *Monitor {
	switch kind {
	case KindFall:
		return s.Fall
	case KindEmergency:
		return s.Emergency
	case KindAssistance:
		return s.Assistance
	default:
		return nil
	}
}
