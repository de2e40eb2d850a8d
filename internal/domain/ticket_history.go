package domain

import "time"

// TicketField names a triage field tracked in history.
type TicketField string

const (
	FieldStatus     TicketField = "status"
	FieldPriority   TicketField = "priority"
	FieldCategory   TicketField = "category"
	FieldAssignedTo TicketField = "assignedToId"
)

// TicketHistory is an immutable audit trail entry.
type TicketHistory struct {
	ID          string
	TicketID    string
	ChangedByID string
	Field       TicketField
	OldValue    *string
	NewValue    *string
	CreatedAt   time.Time
}
