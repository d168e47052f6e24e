// Package event defines the core data model for cranewatch monitoring events.
package event

import (
	"time"

	"github.com/google/uuid"

	"github.com/setevik/cranewatch/internal/analysis"
	"github.com/setevik/cranewatch/internal/telemetry"
)

// Status tracks the lifecycle of an event. The only transition is
// active to resolved; resolving again just overwrites the notes.
type Status string

const (
	StatusActive   Status = "active"
	StatusResolved Status = "resolved"
)

// Event is one recorded diagnosis of an asset, with the snapshot and
// prescription that produced it carried along verbatim.
type Event struct {
	ID              string                `json:"id"`
	Timestamp       time.Time             `json:"timestamp"`
	ComponentID     string                `json:"component_id"`
	Type            string                `json:"type"`
	Severity        float64               `json:"severity"`
	UrgencyScore    int                   `json:"urgency_score"`
	RawTelemetry    telemetry.Snapshot    `json:"raw_telemetry"`
	Prescription    analysis.Prescription `json:"prescription"`
	Status          Status                `json:"status"`
	ResolutionNotes string                `json:"resolution_notes"`
	OwnerDecision   *string               `json:"owner_decision"`
}

// New creates an active Event with a generated UUID from a snapshot and
// the diagnosis it received. Severity is the urgency score scaled to [0,1].
func New(componentID string, snap telemetry.Snapshot, d analysis.Diagnosis) *Event {
	return &Event{
		ID:           uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		ComponentID:  componentID,
		Type:         d.Type,
		Severity:     float64(d.UrgencyScore) / 10.0,
		UrgencyScore: d.UrgencyScore,
		RawTelemetry: snap,
		Prescription: d.Prescription,
		Status:       StatusActive,
	}
}

// Resolved reports whether the event has been closed out.
func (e *Event) Resolved() bool {
	return e.Status == StatusResolved
}
