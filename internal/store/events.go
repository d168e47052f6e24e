package store

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx/types"

	"github.com/setevik/cranewatch/internal/event"
	"github.com/setevik/cranewatch/internal/metrics"
)

type eventRow struct {
	ID              string         `db:"id"`
	Timestamp       string         `db:"timestamp"`
	ComponentID     string         `db:"component_id"`
	Type            string         `db:"type"`
	Severity        float64        `db:"severity"`
	UrgencyScore    int            `db:"urgency_score"`
	RawTelemetry    types.JSONText `db:"raw_telemetry"`
	Prescription    types.JSONText `db:"prescription"`
	Status          string         `db:"status"`
	ResolutionNotes string         `db:"resolution_notes"`
	OwnerDecision   *string        `db:"owner_decision"`
}

func (r *eventRow) toEvent() (*event.Event, error) {
	ev := &event.Event{
		ID:              r.ID,
		Timestamp:       parseTime(r.Timestamp),
		ComponentID:     r.ComponentID,
		Type:            r.Type,
		Severity:        r.Severity,
		UrgencyScore:    r.UrgencyScore,
		Status:          event.Status(r.Status),
		ResolutionNotes: r.ResolutionNotes,
		OwnerDecision:   r.OwnerDecision,
	}
	if err := json.Unmarshal(r.RawTelemetry, &ev.RawTelemetry); err != nil {
		return nil, fmt.Errorf("decoding stored telemetry for event %s: %w", r.ID, err)
	}
	if err := json.Unmarshal(r.Prescription, &ev.Prescription); err != nil {
		return nil, fmt.Errorf("decoding stored prescription for event %s: %w", r.ID, err)
	}
	return ev, nil
}

// InsertEvent stores a new event. The snapshot and prescription are kept
// verbatim as JSON blobs.
func (d *DB) InsertEvent(ev *event.Event) error {
	rawJSON, err := json.Marshal(ev.RawTelemetry)
	if err != nil {
		return fmt.Errorf("encoding telemetry: %w", err)
	}
	presJSON, err := json.Marshal(ev.Prescription)
	if err != nil {
		return fmt.Errorf("encoding prescription: %w", err)
	}

	_, err = d.db.Exec(`
		INSERT INTO events (id, timestamp, component_id, type, severity, urgency_score, raw_telemetry, prescription, status, resolution_notes, owner_decision)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID,
		formatTime(ev.Timestamp),
		ev.ComponentID,
		ev.Type,
		ev.Severity,
		ev.UrgencyScore,
		string(rawJSON),
		string(presJSON),
		string(ev.Status),
		ev.ResolutionNotes,
		ev.OwnerDecision,
	)
	if err != nil {
		return fmt.Errorf("inserting event: %w", err)
	}

	metrics.EventsCreated.WithLabelValues(ev.Type).Inc()
	return nil
}

// ListEvents returns the most recent events, newest first, optionally
// filtered by exact status.
func (d *DB) ListEvents(status string) ([]*event.Event, error) {
	query := `SELECT id, timestamp, component_id, type, severity, urgency_score, raw_telemetry, prescription, status, resolution_notes, owner_decision
		FROM events`
	var args []interface{}

	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY timestamp DESC LIMIT ?`
	args = append(args, EventListCap)

	var rows []eventRow
	if err := d.db.Select(&rows, query, args...); err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}

	events := make([]*event.Event, 0, len(rows))
	for i := range rows {
		ev, err := rows[i].toEvent()
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}

// ResolveEvent marks an event resolved and records the notes, regardless
// of prior status. An unknown id affects zero rows and is not an error.
func (d *DB) ResolveEvent(id, notes string) error {
	res, err := d.db.Exec(`UPDATE events SET status = ?, resolution_notes = ? WHERE id = ?`,
		string(event.StatusResolved), notes, id)
	if err != nil {
		return fmt.Errorf("resolving event: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		slog.Debug("resolve matched no event", "id", id)
	}
	return nil
}

// SetOwnerDecision records the operator's call on an event. Last write
// wins; the event does not have to be active.
func (d *DB) SetOwnerDecision(id, decision string) error {
	_, err := d.db.Exec(`UPDATE events SET owner_decision = ? WHERE id = ?`, decision, id)
	if err != nil {
		return fmt.Errorf("recording owner decision: %w", err)
	}
	return nil
}
