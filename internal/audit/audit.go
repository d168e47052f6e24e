// Package audit defines the accountability record every workflow writes
// into as a side effect. Entries are append-only and never mutated.
package audit

import "time"

// Actions recorded by the built-in workflows. Free-form actions from the
// activity endpoint are stored as given.
const (
	ActionDiagnosticScan       = "Ran Diagnostic Scan"
	ActionResolvedIssue        = "Resolved Issue"
	ActionExecutiveDecision    = "Executive Decision"
	ActionProtocolVerification = "Protocol Verification"
	ActionRequestedPart        = "Requested Part"
	ActionApprovedPurchase     = "Approved Purchase"
)

// Roles used by the built-in workflows.
const (
	RoleOwner           = "Owner"
	RoleMaintenanceLead = "Maintenance Lead"
	RoleTechnician      = "Technician"
	RoleSystem          = "System"
)

// Entry is one immutable row in the audit log. EventID carries the linked
// entity's id; part-request actions store the request id there.
type Entry struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Role      string    `json:"role"`
	Action    string    `json:"action"`
	EventID   *string   `json:"event_id"`
	Details   string    `json:"details"`
}
