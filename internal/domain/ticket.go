package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
)

// TicketStatuses lists every status in lifecycle order.
var TicketStatuses = []TicketStatus{
	TicketStatusOpen,
	TicketStatusInProgress,
	TicketStatusResolved,
	TicketStatusClosed,
}

// ParseTicketStatus accepts any casing ("CLOSED", "Closed") and returns the canonical value.
func ParseTicketStatus(raw string) (TicketStatus, bool) {
	candidate := TicketStatus(strings.ToLower(strings.TrimSpace(raw)))
	for _, status := range TicketStatuses {
		if status == candidate {
			return status, true
		}
	}
	return "", false
}

// TicketPriority enumerates urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityUrgent TicketPriority = "urgent"
)

// TicketPriorities lists priorities from most to least urgent.
var TicketPriorities = []TicketPriority{
	TicketPriorityUrgent,
	TicketPriorityHigh,
	TicketPriorityMedium,
	TicketPriorityLow,
}

// ParseTicketPriority accepts any casing and returns the canonical value.
func ParseTicketPriority(raw string) (TicketPriority, bool) {
	candidate := TicketPriority(strings.ToLower(strings.TrimSpace(raw)))
	for _, priority := range TicketPriorities {
		if priority == candidate {
			return priority, true
		}
	}
	return "", false
}

// Rank orders priorities; higher is more urgent.
func (p TicketPriority) Rank() int {
	switch p {
	case TicketPriorityUrgent:
		return 4
	case TicketPriorityHigh:
		return 3
	case TicketPriorityMedium:
		return 2
	case TicketPriorityLow:
		return 1
	}
	return 0
}

// DefaultTicketSource is recorded when the creator does not name a channel.
const DefaultTicketSource = "WEB"

const ticketNumberPrefix = "TKT-"

// FormatTicketNumber renders the human-readable number for the n-th ticket.
func FormatTicketNumber(n int64) string {
	return fmt.Sprintf("%s%06d", ticketNumberPrefix, n)
}

// ParseTicketNumber returns the numeric part of a "TKT-" number.
func ParseTicketNumber(number string) (int64, bool) {
	digits, ok := strings.CutPrefix(number, ticketNumberPrefix)
	if !ok || digits == "" {
		return 0, false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Ticket is the aggregate for support cases.
type Ticket struct {
	ID              string
	TicketNumber    string
	Title           string
	Description     string
	Status          TicketStatus
	Priority        TicketPriority
	Category        *string
	Source          string
	CreatedByID     string
	AssignedToID    *string
	FirstResponseAt *time.Time
	ResolvedAt      *time.Time
	ClosedAt        *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time

	// Read-side projections, filled by list/get queries.
	CreatedBy    *UserSummary
	AssignedTo   *UserSummary
	CommentCount int
}

// IsClosed reports whether the ticket reached the terminal status.
func (t *Ticket) IsClosed() bool {
	return t.Status == TicketStatusClosed
}
