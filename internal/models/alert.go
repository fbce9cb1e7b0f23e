package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AlertSource identifies which signal produced an alert.
type AlertSource string

const (
	AlertSourceMetric AlertSource = "metric"
	AlertSourceLog    AlertSource = "log"
)

// AlertState is the lifecycle state of an alert event.
type AlertState string

const (
	AlertStateNew      AlertState = "new"
	AlertStateResolved AlertState = "resolved"
)

// eventNamespace is the fixed UUID namespace for deterministic event ids.
var eventNamespace = uuid.MustParse("b6c1e1d4-7a95-4c42-93f3-2f5c8a9d0e11")

// NewEventID derives a deterministic alert event id from the alerting
// subject and the start of its evaluation window. Re-evaluating the same
// condition within the same window yields the same id.
func NewEventID(subject string, source AlertSource, windowStart time.Time) string {
	name := fmt.Sprintf("%s|%s|%d", subject, source, windowStart.UTC().Unix())
	return uuid.NewSHA1(eventNamespace, []byte(name)).String()
}

// AlertEvent is one alert lifecycle instance for a (subject, source) pair.
type AlertEvent struct {
	ID       string      `json:"id"`
	Subject  string      `json:"subject"` // metric key or log group
	Source   AlertSource `json:"source"`
	Severity Severity    `json:"severity"`
	Summary  string      `json:"summary"`
	State    AlertState  `json:"state"`

	CreatedAt  time.Time `json:"created_at"`
	ResolvedAt time.Time `json:"resolved_at,omitzero"`
}
