package policy

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskflow/helpdesk/internal/domain"
	apperrors "github.com/deskflow/helpdesk/pkg/util/errorutil"
)

var (
	agent    = Caller{ID: "agent-1", Role: domain.RoleAgent}
	owner    = Caller{ID: "client-1", Role: domain.RoleClient}
	stranger = Caller{ID: "client-2", Role: domain.RoleClient}
)

func TestAllowed_RulesTable(t *testing.T) {
	open := Resource{OwnerID: owner.ID}
	closed := Resource{OwnerID: owner.ID, Locked: true}

	tests := []struct {
		name   string
		caller Caller
		action Action
		res    Resource
		want   bool
	}{
		{"agent views any ticket", agent, ActionTicketView, open, true},
		{"owner views own ticket", owner, ActionTicketView, open, true},
		{"stranger cannot view", stranger, ActionTicketView, open, false},
		{"owner edits open ticket", owner, ActionTicketEditContent, open, true},
		{"owner cannot edit closed ticket", owner, ActionTicketEditContent, closed, false},
		{"agent is not owner for content", agent, ActionTicketEditContent, open, false},
		{"agent triages closed ticket", agent, ActionTicketTriage, closed, true},
		{"owner cannot triage", owner, ActionTicketTriage, open, false},
		{"owner cannot delete", owner, ActionTicketDelete, open, false},
		{"agent deletes", agent, ActionTicketDelete, open, true},
		{"owner comments", owner, ActionCommentCreate, open, true},
		{"stranger cannot comment", stranger, ActionCommentCreate, open, false},
		{"owner cannot post internal", owner, ActionCommentInternal, open, false},
		{"agent posts internal", agent, ActionCommentInternal, open, true},
		{"client cannot delete comment", owner, ActionCommentDelete, open, false},
		{"client cannot see metrics", owner, ActionStatsMetrics, Resource{}, false},
		{"client cannot list users", owner, ActionUserDirectory, Resource{}, false},
		{"client applies", owner, ActionApplicationCreate, Resource{}, true},
		{"agent cannot apply", agent, ActionApplicationCreate, Resource{}, false},
		{"anonymous cannot apply", Caller{}, ActionApplicationCreate, Resource{}, false},
		{"agent reviews", agent, ActionApplicationReview, Resource{}, true},
		{"unknown action denied", agent, Action("nope"), open, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Allowed(tt.caller, tt.action, tt.res))
		})
	}
}

func TestAuthorize_ErrorKinds(t *testing.T) {
	err := Authorize(Caller{}, ActionTicketView, Resource{OwnerID: "x"})
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, apperrors.StatusOf(err))

	err = Authorize(stranger, ActionTicketView, Resource{OwnerID: owner.ID})
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, apperrors.StatusOf(err))

	assert.NoError(t, Authorize(owner, ActionTicketView, Resource{OwnerID: owner.ID}))
}

func TestEveryActionHasMessage(t *testing.T) {
	for action := range rules {
		_, ok := denyMessages[action]
		assert.True(t, ok, "missing deny message for %s", action)
	}
}

func TestTicketResource(t *testing.T) {
	ticket := &domain.Ticket{CreatedByID: "u1", Status: domain.TicketStatusClosed}
	res := TicketResource(ticket)
	assert.Equal(t, "u1", res.OwnerID)
	assert.True(t, res.Locked)
	assert.Equal(t, Resource{}, TicketResource(nil))
}
