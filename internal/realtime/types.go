package realtime

import (
	"time"

	"github.com/Jobin06/EV-Fleet-MVP/internal/contracts"
)

// EventType names a message pushed to dashboard clients
type EventType string

const (
	EventFleetSummary EventType = "fleet_summary"
	EventAlert        EventType = "alert"
	EventTelemetry    EventType = "telemetry"
)

// Event is one message on the fleet stream
// ⭐ SSOT: realtime payload shape
type Event struct {
	Type      EventType               `json:"type"`
	Summary   *contracts.FleetSummary `json:"summary,omitempty"`
	Alert     *contracts.Alert        `json:"alert,omitempty"`
	Telemetry *contracts.Telemetry    `json:"telemetry,omitempty"`
	Timestamp time.Time               `json:"timestamp"`
}

// SummaryEvent wraps a fleet summary snapshot
func SummaryEvent(s *contracts.FleetSummary) Event {
	return Event{Type: EventFleetSummary, Summary: s, Timestamp: time.Now().UTC()}
}

// AlertEvent wraps a newly raised alert
func AlertEvent(a *contracts.Alert) Event {
	return Event{Type: EventAlert, Alert: a, Timestamp: time.Now().UTC()}
}

// TelemetryEvent wraps a freshly recorded reading
func TelemetryEvent(t *contracts.Telemetry) Event {
	return Event{Type: EventTelemetry, Telemetry: t, Timestamp: time.Now().UTC()}
}
