// Package proximity classifies detections into proximity events and
// deduplicates repeated alerts for the same object and direction.
package proximity

import (
	"fmt"
	"time"

	"github.com/visionaid/go-visionaid/pkg/detection"
)

// Zone is the severity bucket derived from an object's frame-relative size.
// Zones are totally ordered: Critical > Warning > Far.
type Zone int

const (
	ZoneFar Zone = iota
	ZoneWarning
	ZoneCritical
)

// Zone thresholds on the frame fraction.
const (
	CriticalThreshold = 0.60
	WarningThreshold  = 0.40
)

// String returns the zone name used in records and spoken alerts.
func (z Zone) String() string {
	switch z {
	case ZoneCritical:
		return "critical"
	case ZoneWarning:
		return "warning"
	default:
		return "far"
	}
}

// Direction is the horizontal band the object's center falls into.
type Direction string

const (
	DirLeft  Direction = "left"
	DirAhead Direction = "ahead"
	DirRight Direction = "right"
)

// Direction band boundaries on the normalized center x.
const (
	leftBandEnd  = 1.0 / 3.0
	aheadBandEnd = 2.0 / 3.0
)

// Event is a classified proximity observation for one detected object.
type Event struct {
	Object     string
	Direction  Direction
	Zone       Zone
	Fraction   float64 // frame fraction the zone was derived from
	Confidence float64
	Timestamp  time.Time
}

// Key identifies the cooldown bucket for an event. The zone is
// deliberately not part of the key: zone changes for the same object
// and direction fall under the escalation policy, not a new bucket.
type Key struct {
	Object    string
	Direction Direction
}

// Key returns the event's deduplication key.
func (e Event) Key() Key {
	return Key{Object: e.Object, Direction: e.Direction}
}

// Message returns the spoken form of the event, e.g. "person ahead, critical".
func (e Event) Message() string {
	return fmt.Sprintf("%s %s, %s", e.Object, e.Direction, e.Zone)
}

// ClassifyZone maps a frame fraction to a zone.
func ClassifyZone(fraction float64) Zone {
	switch {
	case fraction >= CriticalThreshold:
		return ZoneCritical
	case fraction >= WarningThreshold:
		return ZoneWarning
	default:
		return ZoneFar
	}
}

// ClassifyDirection maps a normalized center x (0-1) to a direction band.
func ClassifyDirection(centerX float64) Direction {
	switch {
	case centerX < leftBandEnd:
		return DirLeft
	case centerX <= aheadBandEnd:
		return DirAhead
	default:
		return DirRight
	}
}

// Classify converts a detection into a proximity event. It is a pure
// function of the detection's size and position; no state is touched.
func Classify(d detection.Detection) Event {
	cx, _ := d.Center()
	ts := d.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return Event{
		Object:     d.ClassName,
		Direction:  ClassifyDirection(cx),
		Zone:       ClassifyZone(d.FrameFraction()),
		Fraction:   d.FrameFraction(),
		Confidence: d.Confidence,
		Timestamp:  ts,
	}
}
