package proximity

import (
	"sync"
	"time"
)

// DefaultCooldown is the minimum time between two announced alerts
// sharing the same key.
const DefaultCooldown = 3 * time.Second

// Cooldown suppresses repeated alerts for the same object and
// direction within a time window. Admission decisions are final: a
// suppressed event is never replayed.
type Cooldown struct {
	mu       sync.Mutex
	last     map[Key]admission
	window   time.Duration
	escalate bool
	now      func() time.Time
}

type admission struct {
	at   time.Time
	zone Zone
}

// CooldownOption configures a Cooldown tracker.
type CooldownOption func(*Cooldown)

// WithWindow overrides the cooldown window.
func WithWindow(d time.Duration) CooldownOption {
	return func(c *Cooldown) { c.window = d }
}

// WithEscalationBypass makes a same-key event re-entering a more
// severe zone bypass the window. Off by default.
func WithEscalationBypass() CooldownOption {
	return func(c *Cooldown) { c.escalate = true }
}

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) CooldownOption {
	return func(c *Cooldown) { c.now = now }
}

// NewCooldown creates a tracker with the default 3 second window.
func NewCooldown(opts ...CooldownOption) *Cooldown {
	c := &Cooldown{
		last:   make(map[Key]admission),
		window: DefaultCooldown,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Admit reports whether the event may be announced, recording the
// admission timestamp when it is. Safe under concurrent calls.
func (c *Cooldown) Admit(e Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	prev, seen := c.last[e.Key()]
	if seen && now.Sub(prev.at) < c.window {
		if !(c.escalate && e.Zone > prev.zone) {
			return false
		}
	}

	c.last[e.Key()] = admission{at: now, zone: e.Zone}
	return true
}

// Window returns the configured cooldown window.
func (c *Cooldown) Window() time.Duration {
	return c.window
}

// Tracked returns the number of keys with a recorded admission.
// Intended for diagnostics only.
func (c *Cooldown) Tracked() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.last)
}

// Prune drops entries older than the window so the map does not grow
// without bound across long sessions.
func (c *Cooldown) Prune() {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := c.now().Add(-c.window)
	for k, a := range c.last {
		if a.at.Before(cutoff) {
			delete(c.last, k)
		}
	}
}
