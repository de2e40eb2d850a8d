// Package policy holds the authorization rules and ticket lifecycle tables
// shared by every mutation path.
package policy

import (
	"github.com/deskflow/helpdesk/internal/domain"
	apperrors "github.com/deskflow/helpdesk/pkg/util/errorutil"
)

// Caller is the authenticated identity a decision is made for.
type Caller struct {
	ID   string
	Role domain.Role
}

// CallerFromUser builds a Caller from a loaded user.
func CallerFromUser(user *domain.User) Caller {
	if user == nil {
		return Caller{}
	}
	return Caller{ID: user.ID, Role: user.Role}
}

// IsAgent reports whether the caller holds the agent role.
func (c Caller) IsAgent() bool {
	return c.Role == domain.RoleAgent
}

// Owns reports whether the caller is the owner of the resource.
func (c Caller) Owns(r Resource) bool {
	return c.ID != "" && c.ID == r.OwnerID
}

// Resource is the minimum a rule needs to know about its target.
type Resource struct {
	OwnerID string
	// Locked marks a resource whose content can no longer be edited by its owner.
	Locked bool
}

// TicketResource describes a ticket for policy checks.
func TicketResource(t *domain.Ticket) Resource {
	if t == nil {
		return Resource{}
	}
	return Resource{OwnerID: t.CreatedByID, Locked: t.IsClosed()}
}

// Action names an operation guarded by the rules table.
type Action string

const (
	ActionTicketView        Action = "ticket.view"
	ActionTicketEditContent Action = "ticket.edit_content"
	ActionTicketTriage      Action = "ticket.triage"
	ActionTicketDelete      Action = "ticket.delete"
	ActionTicketExport      Action = "ticket.export"
	ActionCommentCreate     Action = "comment.create"
	ActionCommentInternal   Action = "comment.internal"
	ActionCommentDelete     Action = "comment.delete"
	ActionStatsMetrics      Action = "stats.metrics"
	ActionUserDirectory     Action = "user.directory"
	ActionRequestManage     Action = "request.manage"
	ActionApplicationCreate Action = "application.create"
	ActionApplicationReview Action = "application.review"
	ActionApplicationView   Action = "application.view"
)

type rule func(Caller, Resource) bool

func agentOnly(c Caller, _ Resource) bool { return c.IsAgent() }

func agentOrOwner(c Caller, r Resource) bool { return c.IsAgent() || c.Owns(r) }

func nonAgent(c Caller, _ Resource) bool { return c.ID != "" && !c.IsAgent() }

func unlockedOwner(c Caller, r Resource) bool { return c.Owns(r) && !r.Locked }

var rules = map[Action]rule{
	ActionTicketView:        agentOrOwner,
	ActionTicketEditContent: unlockedOwner,
	ActionTicketTriage:      agentOnly,
	ActionTicketDelete:      agentOnly,
	ActionTicketExport:      agentOnly,
	ActionCommentCreate:     agentOrOwner,
	ActionCommentInternal:   agentOnly,
	ActionCommentDelete:     agentOnly,
	ActionStatsMetrics:      agentOnly,
	ActionUserDirectory:     agentOnly,
	ActionRequestManage:     agentOnly,
	ActionApplicationCreate: nonAgent,
	ActionApplicationReview: agentOnly,
	ActionApplicationView:   agentOrOwner,
}

var denyMessages = map[Action]string{
	ActionTicketView:        "you do not have access to this ticket",
	ActionTicketEditContent: "only the owner can edit an open ticket",
	ActionTicketTriage:      "only agents can triage tickets",
	ActionTicketDelete:      "only agents can delete tickets",
	ActionTicketExport:      "only agents can export tickets",
	ActionCommentCreate:     "you cannot comment on this ticket",
	ActionCommentInternal:   "only agents can post internal comments",
	ActionCommentDelete:     "only agents can delete comments",
	ActionStatsMetrics:      "only agents can view metrics",
	ActionUserDirectory:     "only agents can access this",
	ActionRequestManage:     "only agents can manage requests",
	ActionApplicationCreate: "agents cannot apply to requests",
	ActionApplicationReview: "only agents can review applications",
	ActionApplicationView:   "you do not have access to this application",
}

// Allowed evaluates the rule for action. Unknown actions are denied.
func Allowed(c Caller, action Action, r Resource) bool {
	check, ok := rules[action]
	if !ok {
		return false
	}
	return check(c, r)
}

// Authorize returns a Forbidden error when the caller may not perform action.
func Authorize(c Caller, action Action, r Resource) error {
	if c.ID == "" {
		return apperrors.NewUnauthorized("authentication required")
	}
	if Allowed(c, action, r) {
		return nil
	}
	msg, ok := denyMessages[action]
	if !ok {
		msg = "forbidden"
	}
	return apperrors.NewForbidden(msg)
}
