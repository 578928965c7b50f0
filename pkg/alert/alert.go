// Package alert defines the alert model and the aggregator that merges
// proximity and safety alerts into one severity-ordered stream.
package alert

import (
	"time"

	"github.com/google/uuid"

	"github.com/visionaid/go-visionaid/pkg/proximity"
)

// Category distinguishes the two alert sources.
type Category string

const (
	CategoryProximity Category = "proximity"
	CategorySafety    Category = "safety"
)

// Severity orders alerts for announcement. Safety alerts always
// precede proximity alerts; Critical precedes Warning. RecordOnly
// alerts are persisted but never spoken.
type Severity int

const (
	SeverityRecordOnly Severity = iota
	SeverityWarning
	SeverityCritical
	SeveritySafety
)

// String returns the severity label used in records.
func (s Severity) String() string {
	switch s {
	case SeveritySafety:
		return "safety"
	case SeverityCritical:
		return "critical"
	case SeverityWarning:
		return "warning"
	default:
		return "record-only"
	}
}

// Alert is one item in the outgoing stream. Once created it is never
// mutated; the persisted form is append-only.
type Alert struct {
	ID        string
	Category  Category
	Severity  Severity
	Message   string
	Object    string
	Direction string
	Zone      string
	Timestamp time.Time
}

// FromProximity builds an alert from an admitted proximity event.
func FromProximity(e proximity.Event) Alert {
	var sev Severity
	switch e.Zone {
	case proximity.ZoneCritical:
		sev = SeverityCritical
	case proximity.ZoneWarning:
		sev = SeverityWarning
	default:
		sev = SeverityRecordOnly
	}
	return Alert{
		ID:        uuid.NewString(),
		Category:  CategoryProximity,
		Severity:  sev,
		Message:   e.Message(),
		Object:    e.Object,
		Direction: string(e.Direction),
		Zone:      e.Zone.String(),
		Timestamp: e.Timestamp,
	}
}

// NewSafety builds a safety alert. Safety alerts are never subject to
// cooldown and always outrank proximity alerts.
func NewSafety(message string, at time.Time) Alert {
	return Alert{
		ID:        uuid.NewString(),
		Category:  CategorySafety,
		Severity:  SeveritySafety,
		Message:   message,
		Timestamp: at,
	}
}
