package policy

import (
	"time"

	"github.com/deskflow/helpdesk/internal/domain"
)

// TransitionKind classifies a status change against the canonical order.
type TransitionKind string

const (
	TransitionUnchanged TransitionKind = "unchanged"
	TransitionForward   TransitionKind = "forward"
	TransitionBackward  TransitionKind = "backward"
)

var lifecycleOrder = map[domain.TicketStatus]int{
	domain.TicketStatusOpen:       0,
	domain.TicketStatusInProgress: 1,
	domain.TicketStatusResolved:   2,
	domain.TicketStatusClosed:     3,
}

// Stamp is a lifecycle timestamp on a ticket.
type Stamp string

const (
	StampFirstResponse Stamp = "firstResponseAt"
	StampResolved      Stamp = "resolvedAt"
	StampClosed        Stamp = "closedAt"
)

// statusStamps lists the timestamps a ticket receives on entering a status.
var statusStamps = map[domain.TicketStatus][]Stamp{
	domain.TicketStatusInProgress: {StampFirstResponse},
	domain.TicketStatusResolved:   {StampResolved},
	domain.TicketStatusClosed:     {StampClosed},
}

// ClassifyTransition compares two statuses in lifecycle order. Agents may
// move a ticket in either direction; the kind is informational.
func ClassifyTransition(from, to domain.TicketStatus) TransitionKind {
	if from == to {
		return TransitionUnchanged
	}
	if lifecycleOrder[to] > lifecycleOrder[from] {
		return TransitionForward
	}
	return TransitionBackward
}

// ApplyStatus moves t to next and fills each stamp that is still unset.
// It returns the stamps it actually set.
func ApplyStatus(t *domain.Ticket, next domain.TicketStatus, now time.Time) []Stamp {
	t.Status = next
	var applied []Stamp
	for _, stamp := range statusStamps[next] {
		if setStamp(t, stamp, now) {
			applied = append(applied, stamp)
		}
	}
	return applied
}

// ApplyAgentResponse stamps firstResponseAt for an agent reply if unset.
func ApplyAgentResponse(t *domain.Ticket, now time.Time) bool {
	return setStamp(t, StampFirstResponse, now)
}

func setStamp(t *domain.Ticket, stamp Stamp, now time.Time) bool {
	var field **time.Time
	switch stamp {
	case StampFirstResponse:
		field = &t.FirstResponseAt
	case StampResolved:
		field = &t.ResolvedAt
	case StampClosed:
		field = &t.ClosedAt
	default:
		return false
	}
	if *field != nil {
		return false
	}
	at := now
	*field = &at
	return true
}
