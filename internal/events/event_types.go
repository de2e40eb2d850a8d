package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/deskflow/helpdesk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated         EventType = "ticket_created"
	EventTicketStatusChanged   EventType = "ticket_status_changed"
	EventTicketPriorityChanged EventType = "ticket_priority_changed"
	EventTicketAssigned        EventType = "ticket_assigned"
	EventTicketDeleted         EventType = "ticket_deleted"
	EventCommentAdded          EventType = "comment_added"
	EventApplicationSubmitted  EventType = "application_submitted"
	EventApplicationDecided    EventType = "application_decided"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	UserID string      `json:"userId"`
	Role   domain.Role `json:"role"`
}

// Event represents a domain event emitted by services. ResourceID is the
// ticket id for ticket events and the request id for request events.
type Event struct {
	ID         string      `json:"id"`
	Type       EventType   `json:"type"`
	ResourceID string      `json:"resourceId"`
	Actor      Actor       `json:"actor"`
	Timestamp  time.Time   `json:"timestamp"`
	Payload    interface{} `json:"payload"`
}

// New stamps an event with a fresh id.
func New(eventType EventType, resourceID string, actor Actor, at time.Time, payload interface{}) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		ResourceID: resourceID,
		Actor:      actor,
		Timestamp:  at,
		Payload:    payload,
	}
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	TicketNumber string                `json:"ticketNumber"`
	Priority     domain.TicketPriority `json:"priority"`
	Title        string                `json:"title"`
}

// TicketStatusChangedPayload payload. Direction is "forward" or "backward".
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"oldStatus"`
	NewStatus domain.TicketStatus `json:"newStatus"`
	Direction string              `json:"direction"`
}

// TicketPriorityChangedPayload payload.
type TicketPriorityChangedPayload struct {
	OldPriority domain.TicketPriority `json:"oldPriority"`
	NewPriority domain.TicketPriority `json:"newPriority"`
}

// TicketAssignedPayload payload. A nil assignee means the ticket was unassigned.
type TicketAssignedPayload struct {
	AssigneeID *string `json:"assigneeId,omitempty"`
}

// CommentAddedPayload payload.
type CommentAddedPayload struct {
	CommentID   string `json:"commentId"`
	IsInternal  bool   `json:"isInternal"`
	BodyPreview string `json:"bodyPreview"`
}

// ApplicationPayload payload for submitted and decided applications.
type ApplicationPayload struct {
	ApplicationID string                   `json:"applicationId"`
	ApplicantID   string                   `json:"applicantId"`
	Status        domain.ApplicationStatus `json:"status"`
}
