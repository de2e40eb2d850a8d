package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskflow/helpdesk/internal/domain"
	"github.com/deskflow/helpdesk/internal/events"
	"github.com/deskflow/helpdesk/internal/persistence"
	"github.com/deskflow/helpdesk/internal/policy"
	"github.com/deskflow/helpdesk/internal/repository"
	"github.com/deskflow/helpdesk/internal/testutil"
	apperrors "github.com/deskflow/helpdesk/pkg/util/errorutil"
)

var fixtureStart = time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) types() []events.EventType {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]events.EventType, 0, len(d.events))
	for _, e := range d.events {
		out = append(out, e.Type)
	}
	return out
}

type ticketFixture struct {
	ctx     context.Context
	store   *testutil.Store
	clock   *testutil.Clock
	events  *recordingDispatcher
	service *TicketService

	agent  *domain.User
	client *domain.User
	other  *domain.User
}

func newTicketFixture(t *testing.T) *ticketFixture {
	t.Helper()
	clock := testutil.NewClock(fixtureStart)
	store := testutil.NewStore(clock.Now)
	dispatcher := &recordingDispatcher{}

	f := &ticketFixture{
		ctx:    context.Background(),
		store:  store,
		clock:  clock,
		events: dispatcher,
		service: NewTicketService(TicketDependencies{
			TicketRepo:  store.Tickets(),
			CommentRepo: store.Comments(),
			HistoryRepo: store.History(),
			UserRepo:    store.Users(),
			TxManager:   store,
			Dispatcher:  dispatcher,
			Now:         clock.Now,
		}),
	}
	f.agent = store.AddUser(t, "Agent Smith", "agent@example.com", "agent123", domain.RoleAgent)
	f.client = store.AddUser(t, "Client One", "client@example.com", "client123", domain.RoleClient)
	f.other = store.AddUser(t, "Client Two", "other@example.com", "other123", domain.RoleClient)
	return f
}

func (f *ticketFixture) create(t *testing.T, owner *domain.User, title string) *domain.Ticket {
	t.Helper()
	ticket, err := f.service.Create(f.ctx, testutil.Caller(owner), TicketCreateInput{Title: title, Description: title + " body"})
	require.NoError(t, err)
	return ticket
}

func str(s string) *string { return &s }

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, code), "expected %s, got %v", code, err)
}

func TestTicketService_ListNonAgentSeesOnlyOwnTickets(t *testing.T) {
	f := newTicketFixture(t)
	own := f.create(t, f.client, "Printer jam")
	f.create(t, f.other, "VPN down")
	f.create(t, f.agent, "Internal task")

	inputs := []TicketListInput{
		{},
		{CreatedByID: f.other.ID},
		{CreatedByID: f.agent.ID, Search: "task"},
	}
	for _, input := range inputs {
		tickets, err := f.service.List(f.ctx, testutil.Caller(f.client), input)
		require.NoError(t, err)
		for _, ticket := range tickets {
			assert.Equal(t, f.client.ID, ticket.CreatedByID)
		}
	}

	tickets, err := f.service.List(f.ctx, testutil.Caller(f.client), TicketListInput{})
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	assert.Equal(t, own.ID, tickets[0].ID)
}

func TestTicketService_ListAgentFiltersAndOrdering(t *testing.T) {
	f := newTicketFixture(t)
	low := f.store.AddTicket(t, f.client, "Low thing", domain.TicketPriorityLow)
	f.clock.Advance(time.Minute)
	urgent := f.store.AddTicket(t, f.other, "Server on fire", domain.TicketPriorityUrgent)
	f.clock.Advance(time.Minute)
	mediumOld := f.store.AddTicket(t, f.client, "Email sync", domain.TicketPriorityMedium)
	f.clock.Advance(time.Minute)
	mediumNew := f.store.AddTicket(t, f.client, "Calendar sync", domain.TicketPriorityMedium)

	agent := testutil.Caller(f.agent)
	all, err := f.service.List(f.ctx, agent, TicketListInput{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, []string{urgent.ID, mediumNew.ID, mediumOld.ID, low.ID},
		[]string{all[0].ID, all[1].ID, all[2].ID, all[3].ID})

	_, err = f.service.Update(f.ctx, agent, urgent.ID, TicketUpdateInput{AssignedToID: NullableString{Set: true, Value: &f.agent.ID}})
	require.NoError(t, err)

	unassigned, err := f.service.List(f.ctx, agent, TicketListInput{AssignedToID: "unassigned"})
	require.NoError(t, err)
	assert.Len(t, unassigned, 3)

	assigned, err := f.service.List(f.ctx, agent, TicketListInput{AssignedToID: f.agent.ID})
	require.NoError(t, err)
	require.Len(t, assigned, 1)
	assert.Equal(t, urgent.ID, assigned[0].ID)
	require.NotNil(t, assigned[0].AssignedTo)
	assert.Equal(t, "Agent Smith", assigned[0].AssignedTo.Name)

	search, err := f.service.List(f.ctx, agent, TicketListInput{Search: "SYNC"})
	require.NoError(t, err)
	assert.Len(t, search, 2)

	byNumber, err := f.service.List(f.ctx, agent, TicketListInput{Search: urgent.TicketNumber})
	require.NoError(t, err)
	assert.Len(t, byNumber, 1)

	byStatus, err := f.service.List(f.ctx, agent, TicketListInput{Status: "OPEN", Priority: "Medium"})
	require.NoError(t, err)
	assert.Len(t, byStatus, 2)

	_, err = f.service.List(f.ctx, agent, TicketListInput{Status: "pending"})
	requireCode(t, err, "VALIDATION_FAILED")
}

func TestTicketService_ListHidesInternalCommentsFromCount(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.create(t, f.client, "Slow laptop")
	_, err := f.service.AddComment(f.ctx, testutil.Caller(f.agent), ticket.ID, CommentCreateInput{Message: "checking", IsInternal: true})
	require.NoError(t, err)
	_, err = f.service.AddComment(f.ctx, testutil.Caller(f.agent), ticket.ID, CommentCreateInput{Message: "on it"})
	require.NoError(t, err)

	clientView, err := f.service.List(f.ctx, testutil.Caller(f.client), TicketListInput{})
	require.NoError(t, err)
	require.Len(t, clientView, 1)
	assert.Equal(t, 1, clientView[0].CommentCount)

	agentView, err := f.service.List(f.ctx, testutil.Caller(f.agent), TicketListInput{})
	require.NoError(t, err)
	require.Len(t, agentView, 1)
	assert.Equal(t, 2, agentView[0].CommentCount)
}

func TestTicketService_ListRequiresCaller(t *testing.T) {
	f := newTicketFixture(t)
	_, err := f.service.List(f.ctx, policy.Caller{}, TicketListInput{})
	requireCode(t, err, "UNAUTHORIZED")
}

func TestTicketService_ListPersistenceFailureIsInternal(t *testing.T) {
	f := newTicketFixture(t)
	f.store.FailNext(errors.New("connection reset"))

	_, err := f.service.List(f.ctx, testutil.Caller(f.agent), TicketListInput{})
	requireCode(t, err, "INTERNAL_ERROR")
	assert.Equal(t, 500, apperrors.StatusOf(err))
	assert.Equal(t, "internal server error", apperrors.ToDomainError(err).Message)
}

func TestTicketService_GetAccess(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.create(t, f.client, "Broken chair")

	_, err := f.service.Get(f.ctx, testutil.Caller(f.other), ticket.ID)
	requireCode(t, err, "FORBIDDEN")

	_, err = f.service.Get(f.ctx, testutil.Caller(f.client), "00000000-0000-0000-0000-000000000000")
	requireCode(t, err, "NOT_FOUND")

	detail, err := f.service.Get(f.ctx, testutil.Caller(f.client), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, ticket.ID, detail.Ticket.ID)
	assert.Nil(t, detail.History)
}

func TestTicketService_CreateAssignsSequentialNumbers(t *testing.T) {
	f := newTicketFixture(t)
	f.store.AddTicket(t, f.other, "Seed one", domain.TicketPriorityLow)
	f.store.AddTicket(t, f.other, "Seed two", domain.TicketPriorityLow)

	first := f.create(t, f.client, "Keyboard")
	second := f.create(t, f.client, "Mouse")

	assert.Equal(t, "TKT-000003", first.TicketNumber)
	assert.Equal(t, "TKT-000004", second.TicketNumber)
	assert.Less(t, first.TicketNumber, second.TicketNumber)

	assert.Equal(t, domain.TicketStatusOpen, first.Status)
	assert.Equal(t, domain.TicketPriorityMedium, first.Priority)
	assert.Equal(t, domain.DefaultTicketSource, first.Source)
	assert.Equal(t, f.client.ID, first.CreatedByID)
	require.NotNil(t, first.CreatedBy)
	assert.Equal(t, "Client One", first.CreatedBy.Name)
	assert.Contains(t, f.events.types(), events.EventTicketCreated)
}

func TestTicketService_CreateHonoursOptionalFields(t *testing.T) {
	f := newTicketFixture(t)
	ticket, err := f.service.Create(f.ctx, testutil.Caller(f.client), TicketCreateInput{
		Title:       "  Outage  ",
		Description: "Site unreachable",
		Priority:    str("URGENT"),
		Category:    str("network"),
		Source:      str("EMAIL"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Outage", ticket.Title)
	assert.Equal(t, domain.TicketPriorityUrgent, ticket.Priority)
	require.NotNil(t, ticket.Category)
	assert.Equal(t, "network", *ticket.Category)
	assert.Equal(t, "EMAIL", ticket.Source)

	_, err = f.service.Create(f.ctx, testutil.Caller(f.client), TicketCreateInput{Title: "x", Description: "y", Priority: str("critical")})
	requireCode(t, err, "VALIDATION_FAILED")
}

func TestTicketService_CreateRequiresTitleAndDescription(t *testing.T) {
	f := newTicketFixture(t)
	_, err := f.service.Create(f.ctx, testutil.Caller(f.client), TicketCreateInput{Title: "   ", Description: "body"})
	requireCode(t, err, "VALIDATION_FAILED")
	assert.Equal(t, "required", apperrors.ToDomainError(err).Details["title"])

	last, err := f.store.Tickets().LastNumber(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, last)
}

// staleNumbers reports the highest number as it was before a concurrent
// creation committed.
type staleNumbers struct {
	repository.TicketRepository
	last int64
}

func (r staleNumbers) LastNumber(context.Context) (int64, error) { return r.last, nil }

func (f *ticketFixture) serviceWith(tickets repository.TicketRepository, tx persistence.TxManager) *TicketService {
	return NewTicketService(TicketDependencies{
		TicketRepo:  tickets,
		CommentRepo: f.store.Comments(),
		HistoryRepo: f.store.History(),
		UserRepo:    f.store.Users(),
		TxManager:   tx,
		Dispatcher:  f.events,
		Now:         f.clock.Now,
	})
}

func TestTicketService_CreateNumberCollisionIsConflict(t *testing.T) {
	f := newTicketFixture(t)
	f.create(t, f.other, "raced")

	racing := f.serviceWith(staleNumbers{TicketRepository: f.store.Tickets(), last: 0}, f.store)
	_, err := racing.Create(f.ctx, testutil.Caller(f.client), TicketCreateInput{Title: "mine", Description: "mine"})
	requireCode(t, err, "TICKET_NUMBER_TAKEN")
	assert.Equal(t, 409, apperrors.StatusOf(err))

	retried, err := f.service.Create(f.ctx, testutil.Caller(f.client), TicketCreateInput{Title: "mine", Description: "mine"})
	require.NoError(t, err)
	assert.Equal(t, "TKT-000002", retried.TicketNumber)
}

func TestTicketService_CreateAfterDeletingMiddleTicket(t *testing.T) {
	f := newTicketFixture(t)
	f.create(t, f.client, "first")
	middle := f.create(t, f.client, "second")
	f.create(t, f.client, "third")

	require.NoError(t, f.service.Delete(f.ctx, testutil.Caller(f.agent), middle.ID))

	next := f.create(t, f.client, "fourth")
	assert.Equal(t, "TKT-000004", next.TicketNumber)
	again := f.create(t, f.client, "fifth")
	assert.Equal(t, "TKT-000005", again.TicketNumber)
}

// racingTx commits a competing write just before the next transaction
// starts, after any reads the caller made up front.
type racingTx struct {
	persistence.TxManager
	before func()
}

func (r *racingTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if before := r.before; before != nil {
		r.before = nil
		before()
	}
	return r.TxManager.WithinTx(ctx, fn)
}

func TestTicketService_OwnerEditLosesToConcurrentClose(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.create(t, f.client, "Printer")

	tx := &racingTx{TxManager: f.store}
	tx.before = func() {
		_, err := f.service.Update(f.ctx, testutil.Caller(f.agent), ticket.ID, TicketUpdateInput{Status: str("closed")})
		require.NoError(t, err)
	}

	_, err := f.serviceWith(f.store.Tickets(), tx).Update(f.ctx, testutil.Caller(f.client), ticket.ID,
		TicketUpdateInput{Title: str("edited after close")})
	requireCode(t, err, "FORBIDDEN")

	stored, err := f.store.Tickets().GetByID(f.ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusClosed, stored.Status)
	assert.Equal(t, "Printer", stored.Title)
	assert.NotNil(t, stored.ClosedAt)
}

func TestTicketService_InProgressStampsFirstResponseOnce(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.create(t, f.client, "Login fails")
	agent := testutil.Caller(f.agent)

	f.clock.Advance(30 * time.Minute)
	updated, err := f.service.Update(f.ctx, agent, ticket.ID, TicketUpdateInput{Status: str("in_progress")})
	require.NoError(t, err)
	require.NotNil(t, updated.FirstResponseAt)
	stamped := *updated.FirstResponseAt
	assert.Equal(t, fixtureStart.Add(30*time.Minute), stamped)

	f.clock.Advance(time.Hour)
	_, err = f.service.Update(f.ctx, agent, ticket.ID, TicketUpdateInput{Status: str("open")})
	require.NoError(t, err)
	again, err := f.service.Update(f.ctx, agent, ticket.ID, TicketUpdateInput{Status: str("IN_PROGRESS")})
	require.NoError(t, err)
	assert.Equal(t, stamped, *again.FirstResponseAt)
	assert.Equal(t, domain.TicketStatusInProgress, again.Status)
}

func TestTicketService_ResolveAndCloseStampOnce(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.create(t, f.client, "Monitor flicker")
	agent := testutil.Caller(f.agent)

	f.clock.Advance(2 * time.Hour)
	resolved, err := f.service.Update(f.ctx, agent, ticket.ID, TicketUpdateInput{Status: str("resolved")})
	require.NoError(t, err)
	require.NotNil(t, resolved.ResolvedAt)
	assert.Nil(t, resolved.ClosedAt)
	resolvedAt := *resolved.ResolvedAt

	f.clock.Advance(time.Hour)
	closed, err := f.service.Update(f.ctx, agent, ticket.ID, TicketUpdateInput{Status: str("closed")})
	require.NoError(t, err)
	require.NotNil(t, closed.ClosedAt)
	closedAt := *closed.ClosedAt

	f.clock.Advance(time.Hour)
	_, err = f.service.Update(f.ctx, agent, ticket.ID, TicketUpdateInput{Status: str("resolved")})
	require.NoError(t, err)
	final, err := f.service.Update(f.ctx, agent, ticket.ID, TicketUpdateInput{Status: str("closed")})
	require.NoError(t, err)
	assert.Equal(t, resolvedAt, *final.ResolvedAt)
	assert.Equal(t, closedAt, *final.ClosedAt)
}

func TestTicketService_OwnerCannotEditClosedTicket(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.create(t, f.client, "Original title")
	_, err := f.service.Update(f.ctx, testutil.Caller(f.agent), ticket.ID, TicketUpdateInput{Status: str("closed")})
	require.NoError(t, err)

	_, err = f.service.Update(f.ctx, testutil.Caller(f.client), ticket.ID, TicketUpdateInput{Title: str("Changed")})
	requireCode(t, err, "FORBIDDEN")

	stored, err := f.store.Tickets().GetByID(f.ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, "Original title", stored.Title)
}

func TestTicketService_UpdateFieldPermissions(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.create(t, f.client, "Original")
	owner := testutil.Caller(f.client)

	t.Run("owner edits content", func(t *testing.T) {
		updated, err := f.service.Update(f.ctx, owner, ticket.ID, TicketUpdateInput{Title: str("Renamed"), Description: str("More detail")})
		require.NoError(t, err)
		assert.Equal(t, "Renamed", updated.Title)
		assert.Equal(t, "More detail", updated.Description)
	})

	t.Run("owner status only is forbidden", func(t *testing.T) {
		_, err := f.service.Update(f.ctx, owner, ticket.ID, TicketUpdateInput{Status: str("closed")})
		requireCode(t, err, "FORBIDDEN")
	})

	t.Run("owner mixed request drops triage fields", func(t *testing.T) {
		updated, err := f.service.Update(f.ctx, owner, ticket.ID, TicketUpdateInput{Title: str("Mixed"), Priority: str("urgent")})
		require.NoError(t, err)
		assert.Equal(t, "Mixed", updated.Title)
		assert.Equal(t, domain.TicketPriorityMedium, updated.Priority)
	})

	t.Run("agent mixed request drops content fields", func(t *testing.T) {
		updated, err := f.service.Update(f.ctx, testutil.Caller(f.agent), ticket.ID, TicketUpdateInput{Title: str("Agent title"), Priority: str("high")})
		require.NoError(t, err)
		assert.Equal(t, "Mixed", updated.Title)
		assert.Equal(t, domain.TicketPriorityHigh, updated.Priority)
	})

	t.Run("agent content only is forbidden", func(t *testing.T) {
		_, err := f.service.Update(f.ctx, testutil.Caller(f.agent), ticket.ID, TicketUpdateInput{Description: str("nope")})
		requireCode(t, err, "FORBIDDEN")
	})

	t.Run("other client is forbidden", func(t *testing.T) {
		_, err := f.service.Update(f.ctx, testutil.Caller(f.other), ticket.ID, TicketUpdateInput{Title: str("Hijack")})
		requireCode(t, err, "FORBIDDEN")
	})

	t.Run("empty request is invalid", func(t *testing.T) {
		_, err := f.service.Update(f.ctx, owner, ticket.ID, TicketUpdateInput{})
		requireCode(t, err, "VALIDATION_FAILED")
	})

	t.Run("blank title is invalid", func(t *testing.T) {
		_, err := f.service.Update(f.ctx, owner, ticket.ID, TicketUpdateInput{Title: str("  ")})
		requireCode(t, err, "VALIDATION_FAILED")
	})

	t.Run("missing ticket", func(t *testing.T) {
		_, err := f.service.Update(f.ctx, owner, "missing", TicketUpdateInput{Title: str("x")})
		requireCode(t, err, "NOT_FOUND")
	})
}

func TestTicketService_TriageRecordsHistoryAndEvents(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.create(t, f.client, "Triage me")
	agent := testutil.Caller(f.agent)

	updated, err := f.service.Update(f.ctx, agent, ticket.ID, TicketUpdateInput{
		Status:       str("in_progress"),
		Priority:     str("high"),
		Category:     NullableString{Set: true, Value: str("hardware")},
		AssignedToID: NullableString{Set: true, Value: &f.agent.ID},
	})
	require.NoError(t, err)
	require.NotNil(t, updated.AssignedToID)
	assert.Equal(t, f.agent.ID, *updated.AssignedToID)
	assert.Equal(t, "hardware", *updated.Category)

	detail, err := f.service.Get(f.ctx, agent, ticket.ID)
	require.NoError(t, err)
	fields := map[domain.TicketField]domain.TicketHistory{}
	for _, h := range detail.History {
		fields[h.Field] = h
		assert.Equal(t, f.agent.ID, h.ChangedByID)
	}
	require.Len(t, fields, 4)
	assert.Equal(t, "open", *fields[domain.FieldStatus].OldValue)
	assert.Equal(t, "in_progress", *fields[domain.FieldStatus].NewValue)
	assert.Nil(t, fields[domain.FieldAssignedTo].OldValue)

	types := f.events.types()
	assert.Contains(t, types, events.EventTicketStatusChanged)
	assert.Contains(t, types, events.EventTicketPriorityChanged)
	assert.Contains(t, types, events.EventTicketAssigned)

	unassigned, err := f.service.Update(f.ctx, agent, ticket.ID, TicketUpdateInput{
		AssignedToID: NullableString{Set: true},
		Category:     NullableString{Set: true, Value: str("")},
	})
	require.NoError(t, err)
	assert.Nil(t, unassigned.AssignedToID)
	assert.Nil(t, unassigned.Category)
}

func TestTicketService_BackwardTransitionIsAllowedAndClassified(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.create(t, f.client, "Reopen me")
	agent := testutil.Caller(f.agent)

	_, err := f.service.Update(f.ctx, agent, ticket.ID, TicketUpdateInput{Status: str("resolved")})
	require.NoError(t, err)
	reopened, err := f.service.Update(f.ctx, agent, ticket.ID, TicketUpdateInput{Status: str("open")})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, reopened.Status)

	var last events.TicketStatusChangedPayload
	for _, e := range f.events.events {
		if e.Type == events.EventTicketStatusChanged {
			last = e.Payload.(events.TicketStatusChangedPayload)
		}
	}
	assert.Equal(t, "backward", last.Direction)
}

func TestTicketService_AssigneeMustBeAgent(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.create(t, f.client, "Assign me")
	agent := testutil.Caller(f.agent)

	_, err := f.service.Update(f.ctx, agent, ticket.ID, TicketUpdateInput{AssignedToID: NullableString{Set: true, Value: &f.other.ID}})
	requireCode(t, err, "VALIDATION_FAILED")

	_, err = f.service.Update(f.ctx, agent, ticket.ID, TicketUpdateInput{AssignedToID: NullableString{Set: true, Value: str("nobody")}})
	requireCode(t, err, "VALIDATION_FAILED")

	stored, err := f.store.Tickets().GetByID(f.ctx, ticket.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.AssignedToID)
}

func TestTicketService_DeleteIsAgentOnly(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.create(t, f.client, "Delete me")

	err := f.service.Delete(f.ctx, testutil.Caller(f.client), ticket.ID)
	requireCode(t, err, "FORBIDDEN")

	require.NoError(t, f.service.Delete(f.ctx, testutil.Caller(f.agent), ticket.ID))
	_, err = f.service.Get(f.ctx, testutil.Caller(f.agent), ticket.ID)
	requireCode(t, err, "NOT_FOUND")

	err = f.service.Delete(f.ctx, testutil.Caller(f.agent), ticket.ID)
	requireCode(t, err, "NOT_FOUND")
}

func TestTicketService_AgentCommentStampsFirstResponseOnce(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.create(t, f.client, "No reply yet")

	f.clock.Advance(10 * time.Minute)
	_, err := f.service.AddComment(f.ctx, testutil.Caller(f.client), ticket.ID, CommentCreateInput{Message: "any update?"})
	require.NoError(t, err)
	stored, err := f.store.Tickets().GetByID(f.ctx, ticket.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.FirstResponseAt)

	f.clock.Advance(5 * time.Minute)
	_, err = f.service.AddComment(f.ctx, testutil.Caller(f.agent), ticket.ID, CommentCreateInput{Message: "looking now"})
	require.NoError(t, err)
	stored, err = f.store.Tickets().GetByID(f.ctx, ticket.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.FirstResponseAt)
	first := *stored.FirstResponseAt
	assert.Equal(t, fixtureStart.Add(15*time.Minute), first)

	f.clock.Advance(time.Hour)
	_, err = f.service.AddComment(f.ctx, testutil.Caller(f.agent), ticket.ID, CommentCreateInput{Message: "fixed"})
	require.NoError(t, err)
	stored, err = f.store.Tickets().GetByID(f.ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, first, *stored.FirstResponseAt)
}

func TestTicketService_AddCommentRules(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.create(t, f.client, "Rules")

	comment, err := f.service.AddComment(f.ctx, testutil.Caller(f.client), ticket.ID, CommentCreateInput{Message: " secret? ", IsInternal: true})
	require.NoError(t, err)
	assert.False(t, comment.IsInternal)
	assert.Equal(t, "secret?", comment.Message)
	require.NotNil(t, comment.User)
	assert.Equal(t, f.client.ID, comment.User.ID)

	_, err = f.service.AddComment(f.ctx, testutil.Caller(f.client), ticket.ID, CommentCreateInput{Message: "   "})
	requireCode(t, err, "VALIDATION_FAILED")

	_, err = f.service.AddComment(f.ctx, testutil.Caller(f.other), ticket.ID, CommentCreateInput{Message: "hi"})
	requireCode(t, err, "FORBIDDEN")

	_, err = f.service.AddComment(f.ctx, testutil.Caller(f.client), "missing", CommentCreateInput{Message: "hi"})
	requireCode(t, err, "NOT_FOUND")

	note, err := f.service.AddComment(f.ctx, testutil.Caller(f.agent), ticket.ID, CommentCreateInput{Message: "note", IsInternal: true})
	require.NoError(t, err)
	assert.True(t, note.IsInternal)
	assert.Contains(t, f.events.types(), events.EventCommentAdded)
}

func TestTicketService_DeleteComment(t *testing.T) {
	f := newTicketFixture(t)
	first := f.create(t, f.client, "First")
	second := f.create(t, f.client, "Second")
	comment, err := f.service.AddComment(f.ctx, testutil.Caller(f.client), first.ID, CommentCreateInput{Message: "on first"})
	require.NoError(t, err)
	agent := testutil.Caller(f.agent)

	err = f.service.DeleteComment(f.ctx, testutil.Caller(f.client), first.ID, comment.ID)
	requireCode(t, err, "FORBIDDEN")

	err = f.service.DeleteComment(f.ctx, agent, first.ID, "")
	requireCode(t, err, "VALIDATION_FAILED")

	err = f.service.DeleteComment(f.ctx, agent, first.ID, "missing")
	requireCode(t, err, "NOT_FOUND")

	err = f.service.DeleteComment(f.ctx, agent, second.ID, comment.ID)
	requireCode(t, err, "COMMENT_TICKET_MISMATCH")
	assert.Equal(t, 400, apperrors.StatusOf(err))
	_, err = f.store.Comments().GetByID(f.ctx, comment.ID)
	require.NoError(t, err, "comment must survive a mismatched delete")

	require.NoError(t, f.service.DeleteComment(f.ctx, agent, first.ID, comment.ID))
	_, err = f.store.Comments().GetByID(f.ctx, comment.ID)
	assert.Error(t, err)
}

func TestTicketService_InternalCommentVisibilityScenario(t *testing.T) {
	f := newTicketFixture(t)
	agent := testutil.Caller(f.agent)
	client := testutil.Caller(f.client)

	ticket := f.create(t, f.client, "Scenario")
	_, err := f.service.Update(f.ctx, agent, ticket.ID, TicketUpdateInput{AssignedToID: NullableString{Set: true, Value: &f.agent.ID}})
	require.NoError(t, err)
	note, err := f.service.AddComment(f.ctx, agent, ticket.ID, CommentCreateInput{Message: "customer is on legacy plan", IsInternal: true})
	require.NoError(t, err)

	clientView, err := f.service.Get(f.ctx, client, ticket.ID)
	require.NoError(t, err)
	for _, c := range clientView.Comments {
		assert.NotEqual(t, note.ID, c.ID)
		assert.False(t, c.IsInternal)
	}
	assert.Equal(t, 0, clientView.Ticket.CommentCount)

	agentView, err := f.service.Get(f.ctx, agent, ticket.ID)
	require.NoError(t, err)
	require.Len(t, agentView.Comments, 1)
	assert.Equal(t, note.ID, agentView.Comments[0].ID)
	assert.True(t, agentView.Comments[0].IsInternal)
	assert.NotEmpty(t, agentView.History)
}
