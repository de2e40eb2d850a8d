package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskflow/helpdesk/internal/domain"
	"github.com/deskflow/helpdesk/internal/testutil"
)

func TestUserService_DirectoryIsAgentOnly(t *testing.T) {
	f := newTicketFixture(t)
	users := NewUserService(f.store.Users())

	_, err := users.List(f.ctx, testutil.Caller(f.client), 1, 10)
	requireCode(t, err, "FORBIDDEN")
	_, err = users.Get(f.ctx, testutil.Caller(f.client), f.other.ID)
	requireCode(t, err, "FORBIDDEN")

	me, err := users.Me(f.ctx, testutil.Caller(f.client))
	require.NoError(t, err)
	assert.Equal(t, f.client.Email, me.Email)
}

func TestUserService_ListPaginates(t *testing.T) {
	f := newTicketFixture(t)
	users := NewUserService(f.store.Users())
	for i := 0; i < 12; i++ {
		f.clock.Advance(time.Second)
		f.store.AddUser(t, fmt.Sprintf("User %02d", i), fmt.Sprintf("user%02d@example.com", i), "secret1", domain.RoleClient)
	}
	agent := testutil.Caller(f.agent)

	page, err := users.List(f.ctx, agent, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 10, page.Limit)
	assert.Equal(t, 15, page.Total)
	assert.Equal(t, 2, page.Pages)
	require.Len(t, page.Items, 10)
	assert.Equal(t, "User 11", page.Items[0].Name)

	second, err := users.List(f.ctx, agent, 2, 10)
	require.NoError(t, err)
	assert.Len(t, second.Items, 5)

	capped, err := users.List(f.ctx, agent, 1, 500)
	require.NoError(t, err)
	assert.Equal(t, 100, capped.Limit)
	assert.Len(t, capped.Items, 15)

	beyond, err := users.List(f.ctx, agent, 9, 10)
	require.NoError(t, err)
	assert.Empty(t, beyond.Items)
}

func TestUserService_Update(t *testing.T) {
	f := newTicketFixture(t)
	users := NewUserService(f.store.Users())
	agent := testutil.Caller(f.agent)

	updated, err := users.Update(f.ctx, agent, f.client.ID, UserUpdateInput{
		Name:       str("  Renamed Client "),
		ClientType: NullableString{Set: true, Value: str("internal")},
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed Client", updated.Name)
	require.NotNil(t, updated.ClientType)
	assert.Equal(t, domain.ClientTypeInternal, *updated.ClientType)

	cleared, err := users.Update(f.ctx, agent, f.client.ID, UserUpdateInput{ClientType: NullableString{Set: true}})
	require.NoError(t, err)
	assert.Nil(t, cleared.ClientType)

	promoted, err := users.Update(f.ctx, agent, f.other.ID, UserUpdateInput{Role: str("agent")})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAgent, promoted.Role)

	_, err = users.Update(f.ctx, agent, f.client.ID, UserUpdateInput{Role: str("admin")})
	requireCode(t, err, "VALIDATION_FAILED")
	_, err = users.Update(f.ctx, agent, f.client.ID, UserUpdateInput{Name: str(" ")})
	requireCode(t, err, "VALIDATION_FAILED")
	_, err = users.Update(f.ctx, agent, "missing", UserUpdateInput{Name: str("x")})
	requireCode(t, err, "NOT_FOUND")
}

func TestUserService_DeleteRules(t *testing.T) {
	f := newTicketFixture(t)
	users := NewUserService(f.store.Users())
	agent := testutil.Caller(f.agent)
	second := f.store.AddUser(t, "Second Agent", "agent2@example.com", "agent456", domain.RoleAgent)
	ticket := f.create(t, f.client, "Cascades")

	err := users.Delete(f.ctx, agent, second.ID)
	requireCode(t, err, "FORBIDDEN")
	err = users.Delete(f.ctx, agent, f.agent.ID)
	requireCode(t, err, "FORBIDDEN")
	err = users.Delete(f.ctx, testutil.Caller(f.other), f.client.ID)
	requireCode(t, err, "FORBIDDEN")

	require.NoError(t, users.Delete(f.ctx, agent, f.client.ID))
	_, err = users.Get(f.ctx, agent, f.client.ID)
	requireCode(t, err, "NOT_FOUND")
	_, err = f.store.Tickets().GetByID(f.ctx, ticket.ID)
	assert.Error(t, err, "tickets of a deleted user go with it")
}
