package alert

import (
	"context"
	"sync"

	"github.com/visionaid/go-visionaid/internal/log"
)

// DefaultMaxPending caps the queue of not-yet-announced alerts. When
// the queue is full the lowest-severity, most recent entry is dropped.
const DefaultMaxPending = 64

// Aggregator merges alerts from all producers into a single ordered
// stream. Publish never blocks; Next blocks until an alert is pending
// or the context is cancelled.
//
// Pending alerts are kept sorted by severity, FIFO within a severity:
// a safety alert published while a warning is still queued is handed
// out first, regardless of arrival order.
type Aggregator struct {
	mu      sync.Mutex
	pending []Alert
	notify  chan struct{}
	max     int

	// Tap, if set, observes every accepted alert at publish time.
	// It must not block; wire it to a buffered worker.
	Tap func(Alert)
}

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator)

// WithMaxPending overrides the pending-queue cap.
func WithMaxPending(n int) AggregatorOption {
	return func(a *Aggregator) {
		if n > 0 {
			a.max = n
		}
	}
}

// NewAggregator returns an empty aggregator.
func NewAggregator(opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		notify: make(chan struct{}, 1),
		max:    DefaultMaxPending,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Publish enqueues an alert for announcement. Record-only alerts are
// passed to the tap but never queued. Publish is safe for concurrent
// use and returns immediately.
func (a *Aggregator) Publish(al Alert) {
	if a.Tap != nil {
		a.Tap(al)
	}
	if al.Severity == SeverityRecordOnly {
		return
	}

	a.mu.Lock()
	a.insert(al)
	a.mu.Unlock()

	select {
	case a.notify <- struct{}{}:
	default:
	}
}

// insert keeps pending sorted by severity descending, preserving
// arrival order within a severity. Caller holds a.mu.
func (a *Aggregator) insert(al Alert) {
	i := 0
	for i < len(a.pending) && a.pending[i].Severity >= al.Severity {
		i++
	}
	a.pending = append(a.pending, Alert{})
	copy(a.pending[i+1:], a.pending[i:])
	a.pending[i] = al

	if len(a.pending) > a.max {
		dropped := a.pending[len(a.pending)-1]
		a.pending = a.pending[:len(a.pending)-1]
		log.Warn("alert queue full, dropping alert",
			"message", dropped.Message, "severity", dropped.Severity.String())
	}
}

// Next returns the highest-severity pending alert, blocking until one
// is available. It returns ctx.Err() when the context is cancelled.
func (a *Aggregator) Next(ctx context.Context) (Alert, error) {
	for {
		a.mu.Lock()
		if len(a.pending) > 0 {
			al := a.pending[0]
			copy(a.pending, a.pending[1:])
			a.pending = a.pending[:len(a.pending)-1]
			a.mu.Unlock()
			return al, nil
		}
		a.mu.Unlock()

		select {
		case <-ctx.Done():
			return Alert{}, ctx.Err()
		case <-a.notify:
		}
	}
}

// Pending reports the number of queued alerts.
func (a *Aggregator) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending)
}
