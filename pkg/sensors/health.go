package sensors

import (
	"sync"
	"time"
)

// DegradedAfter is the number of consecutive poll failures before the
// Pi link is considered degraded.
const DegradedAfter = 3

// Health tracks Pi connectivity across pollers. A failed poll never
// changes safety state; it only flips this degraded flag.
type Health struct {
	mu          sync.Mutex
	failures    int
	lastSuccess time.Time
	lastError   string
}

// RecordSuccess resets the failure streak.
func (h *Health) RecordSuccess() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failures = 0
	h.lastSuccess = time.Now()
	h.lastError = ""
}

// RecordFailure notes a failed poll.
func (h *Health) RecordFailure(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failures++
	if err != nil {
		h.lastError = err.Error()
	}
}

// Degraded reports whether the Pi link has failed repeatedly.
func (h *Health) Degraded() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.failures >= DegradedAfter
}

// Snapshot returns the current connectivity view for the status API.
func (h *Health) Snapshot() HealthSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return HealthSnapshot{
		Degraded:    h.failures >= DegradedAfter,
		Failures:    h.failures,
		LastSuccess: h.lastSuccess,
		LastError:   h.lastError,
	}
}

// HealthSnapshot is a point-in-time copy of Health.
type HealthSnapshot struct {
	Degraded    bool      `json:"degraded"`
	Failures    int       `json:"consecutive_failures"`
	LastSuccess time.Time `json:"last_success"`
	LastError   string    `json:"last_error,omitempty"`
}

// EnvCache holds the most recent environmental reading so the API can
// serve it without a round trip to the Pi.
type EnvCache struct {
	mu      sync.Mutex
	reading Environmental
	at      time.Time
	ttl     time.Duration
}

// NewEnvCache creates a cache whose readings expire after ttl.
func NewEnvCache(ttl time.Duration) *EnvCache {
	return &EnvCache{ttl: ttl}
}

// Set stores a fresh reading.
func (c *EnvCache) Set(e Environmental) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reading = e
	c.at = time.Now()
}

// Get returns the cached reading and whether it is still fresh.
func (c *EnvCache) Get() (Environmental, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.at.IsZero() || time.Since(c.at) > c.ttl {
		return c.reading, false
	}
	return c.reading, true
}
