// Package parts models the spare-part request workflow.
package parts

import (
	"time"

	"github.com/google/uuid"
)

// Request statuses. A request is created pending and moves to approved
// exactly once; approval is its only mutator.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
)

// Request is one spare-part restock request.
type Request struct {
	ID            string    `json:"id"`
	PartName      string    `json:"part_name"`
	RequesterRole string    `json:"requester_role"`
	Status        string    `json:"status"`
	Timestamp     time.Time `json:"timestamp"`
}

// New creates a pending request with a generated UUID.
func New(partName, requesterRole string) *Request {
	return &Request{
		ID:            uuid.NewString(),
		PartName:      partName,
		RequesterRole: requesterRole,
		Status:        StatusPending,
		Timestamp:     time.Now().UTC(),
	}
}
