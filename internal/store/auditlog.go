package store

import (
	"fmt"
	"time"

	"github.com/setevik/cranewatch/internal/audit"
	"github.com/setevik/cranewatch/internal/metrics"
)

type auditRow struct {
	ID        int64   `db:"id"`
	Timestamp string  `db:"timestamp"`
	Role      string  `db:"role"`
	Action    string  `db:"action"`
	EventID   *string `db:"event_id"`
	Details   string  `db:"details"`
}

func (r *auditRow) toEntry() *audit.Entry {
	return &audit.Entry{
		ID:        r.ID,
		Timestamp: parseTime(r.Timestamp),
		Role:      r.Role,
		Action:    r.Action,
		EventID:   r.EventID,
		Details:   r.Details,
	}
}

// AppendAudit inserts an audit entry and returns it with its assigned id.
// No validation beyond field presence; the log accepts whatever the
// workflows record.
func (d *DB) AppendAudit(role, action string, eventID *string, details string) (*audit.Entry, error) {
	now := time.Now().UTC()

	res, err := d.db.Exec(`
		INSERT INTO audit_log (timestamp, role, action, event_id, details)
		VALUES (?, ?, ?, ?, ?)`,
		formatTime(now), role, action, eventID, details)
	if err != nil {
		return nil, fmt.Errorf("appending audit entry: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading audit entry id: %w", err)
	}

	metrics.AuditAppends.Inc()
	return &audit.Entry{
		ID:        id,
		Timestamp: now,
		Role:      role,
		Action:    action,
		EventID:   eventID,
		Details:   details,
	}, nil
}

// ListAudit returns the most recent audit entries, newest first, optionally
// filtered by exact role. The sequence id breaks timestamp ties.
func (d *DB) ListAudit(role string) ([]*audit.Entry, error) {
	query := `SELECT id, timestamp, role, action, event_id, details FROM audit_log`
	var args []interface{}

	if role != "" {
		query += ` WHERE role = ?`
		args = append(args, role)
	}
	query += ` ORDER BY timestamp DESC, id DESC LIMIT ?`
	args = append(args, AuditListCap)

	var rows []auditRow
	if err := d.db.Select(&rows, query, args...); err != nil {
		return nil, fmt.Errorf("querying audit log: %w", err)
	}

	entries := make([]*audit.Entry, 0, len(rows))
	for i := range rows {
		entries = append(entries, rows[i].toEntry())
	}
	return entries, nil
}
