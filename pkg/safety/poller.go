package safety

import (
	"context"
	"errors"
	"time"

	"github.com/visionaid/go-visionaid/internal/log"
	"github.com/visionaid/go-visionaid/pkg/sensors"
)

// Poller periodically reads the Pi unit's safety endpoints and feeds
// the monitors through their transition API. Poll failures never
// change safety state; they only degrade the connectivity health.
type Poller struct {
	src     sensors.Source
	set     *Set
	health  *sensors.Health
	every   time.Duration
	timeout time.Duration
}

// DefaultPollInterval is the cadence of safety polling.
const DefaultPollInterval = 2 * time.Second

// maxBackoff caps the retry interval after repeated poll failures.
const maxBackoff = 30 * time.Second

// NewPoller creates a poller over the given source.
func NewPoller(src sensors.Source, set *Set, health *sensors.Health, every time.Duration) *Poller {
	if every <= 0 {
		every = DefaultPollInterval
	}
	return &Poller{
		src:     src,
		set:     set,
		health:  health,
		every:   every,
		timeout: sensors.DefaultTimeout,
	}
}

// Run polls until the context is cancelled. Consecutive failures back
// off exponentially up to maxBackoff; a successful poll restores the
// normal cadence.
func (p *Poller) Run(ctx context.Context) {
	wait := p.every
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}

		if err := p.poll(ctx); err != nil {
			p.health.RecordFailure(err)
			log.Warn("safety poll failed", "error", err)
			wait *= 2
			if wait > maxBackoff {
				wait = maxBackoff
			}
			continue
		}
		p.health.RecordSuccess()
		wait = p.every
	}
}

// poll queries all three safety endpoints. Each endpoint is tried
// even if an earlier one fails, so one broken sensor does not blind
// the others.
func (p *Poller) poll(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var errs []error

	fall, err := p.src.Fall(ctx)
	if err != nil {
		errs = append(errs, err)
	} else if fall.FallDetected {
		p.set.Fall.Raise("")
	}

	em, err := p.src.Emergency(ctx)
	if err != nil {
		errs = append(errs, err)
	} else if em.EmergencyActive {
		p.set.Emergency.Raise("")
	}

	as, err := p.src.Assistance(ctx)
	if err != nil {
		errs = append(errs, err)
	} else if as.AssistanceActive {
		p.set.Assistance.Raise(as.AssistanceType)
	}

	return errors.Join(errs...)
}
