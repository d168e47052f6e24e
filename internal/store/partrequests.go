package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/setevik/cranewatch/internal/metrics"
	"github.com/setevik/cranewatch/internal/parts"
)

// ErrNotFound is returned when a looked-up row does not exist.
var ErrNotFound = errors.New("store: not found")

type partRequestRow struct {
	ID            string `db:"id"`
	PartName      string `db:"part_name"`
	RequesterRole string `db:"requester_role"`
	Status        string `db:"status"`
	Timestamp     string `db:"timestamp"`
}

func (r *partRequestRow) toRequest() *parts.Request {
	return &parts.Request{
		ID:            r.ID,
		PartName:      r.PartName,
		RequesterRole: r.RequesterRole,
		Status:        r.Status,
		Timestamp:     parseTime(r.Timestamp),
	}
}

// InsertPartRequest stores a new part request.
func (d *DB) InsertPartRequest(req *parts.Request) error {
	_, err := d.db.Exec(`
		INSERT INTO part_requests (id, part_name, requester_role, status, timestamp)
		VALUES (?, ?, ?, ?, ?)`,
		req.ID, req.PartName, req.RequesterRole, req.Status, formatTime(req.Timestamp))
	if err != nil {
		return fmt.Errorf("inserting part request: %w", err)
	}
	return nil
}

// ListPartRequests returns all requests, newest first, optionally filtered
// by exact status. Unbounded.
func (d *DB) ListPartRequests(status string) ([]*parts.Request, error) {
	query := `SELECT id, part_name, requester_role, status, timestamp FROM part_requests`
	var args []interface{}

	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY timestamp DESC`

	var rows []partRequestRow
	if err := d.db.Select(&rows, query, args...); err != nil {
		return nil, fmt.Errorf("querying part requests: %w", err)
	}

	reqs := make([]*parts.Request, 0, len(rows))
	for i := range rows {
		reqs = append(reqs, rows[i].toRequest())
	}
	return reqs, nil
}

// GetPartRequest returns one request by id, or ErrNotFound.
func (d *DB) GetPartRequest(id string) (*parts.Request, error) {
	var row partRequestRow
	err := d.db.Get(&row, `SELECT id, part_name, requester_role, status, timestamp FROM part_requests WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying part request: %w", err)
	}
	return row.toRequest(), nil
}

// ApprovePartRequest flips a request to approved. Approving an already
// approved request succeeds again; only an unknown id is ErrNotFound.
func (d *DB) ApprovePartRequest(id string) error {
	res, err := d.db.Exec(`UPDATE part_requests SET status = ? WHERE id = ?`, parts.StatusApproved, id)
	if err != nil {
		return fmt.Errorf("approving part request: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("approving part request: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	metrics.PartsApproved.Inc()
	return nil
}
