package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/deskflow/helpdesk/internal/domain"
	"github.com/deskflow/helpdesk/internal/events"
	"github.com/deskflow/helpdesk/internal/persistence"
	"github.com/deskflow/helpdesk/internal/policy"
	"github.com/deskflow/helpdesk/internal/repository"
	apperrors "github.com/deskflow/helpdesk/pkg/util/errorutil"
)

// UnassignedFilter is the assignedToId value that selects tickets without an assignee.
const UnassignedFilter = "unassigned"

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets    repository.TicketRepository
	comments   repository.CommentRepository
	history    repository.TicketHistoryRepository
	users      repository.UserRepository
	tx         persistence.TxManager
	dispatcher events.Dispatcher
	now        func() time.Time
}

// TicketDependencies bundles repositories for ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	CommentRepo repository.CommentRepository
	HistoryRepo repository.TicketHistoryRepository
	UserRepo    repository.UserRepository
	TxManager   persistence.TxManager
	Dispatcher  events.Dispatcher
	Now         func() time.Time
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		comments:   deps.CommentRepo,
		history:    deps.HistoryRepo,
		users:      deps.UserRepo,
		tx:         deps.TxManager,
		dispatcher: deps.Dispatcher,
		now:        now,
	}
}

// TicketListInput carries raw list filters as received from the caller.
type TicketListInput struct {
	Status       string
	Priority     string
	AssignedToID string
	CreatedByID  string
	Category     string
	Search       string
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Description string
	Priority    *string
	Category    *string
	Source      *string
}

// NullableString is a patch field that can be absent, set, or cleared.
type NullableString struct {
	Set   bool
	Value *string
}

// TicketUpdateInput lists the fields a PATCH may carry. Nil means absent.
type TicketUpdateInput struct {
	Title        *string
	Description  *string
	Status       *string
	Priority     *string
	Category     NullableString
	AssignedToID NullableString
}

func (in TicketUpdateInput) hasContent() bool {
	return in.Title != nil || in.Description != nil
}

func (in TicketUpdateInput) hasTriage() bool {
	return in.Status != nil || in.Priority != nil || in.Category.Set || in.AssignedToID.Set
}

// TicketDetail is a ticket with the thread visible to the caller.
type TicketDetail struct {
	Ticket   *domain.Ticket
	Comments []domain.Comment
	History  []domain.TicketHistory
}

// List returns tickets visible to the caller. Non-agents only ever see
// tickets they created, whatever creator filter they pass.
func (s *TicketService) List(ctx context.Context, caller policy.Caller, input TicketListInput) ([]domain.Ticket, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	filter, err := buildTicketFilter(input)
	if err != nil {
		return nil, err
	}
	if !caller.IsAgent() {
		filter.CreatedByID = &caller.ID
		filter.PublicCommentsOnly = true
	}
	tickets, err := s.tickets.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

func buildTicketFilter(input TicketListInput) (repository.TicketFilter, error) {
	var filter repository.TicketFilter
	if raw := strings.TrimSpace(input.Status); raw != "" {
		status, ok := domain.ParseTicketStatus(raw)
		if !ok {
			return filter, apperrors.NewValidationError("invalid status", map[string]any{"status": raw})
		}
		filter.Status = &status
	}
	if raw := strings.TrimSpace(input.Priority); raw != "" {
		priority, ok := domain.ParseTicketPriority(raw)
		if !ok {
			return filter, apperrors.NewValidationError("invalid priority", map[string]any{"priority": raw})
		}
		filter.Priority = &priority
	}
	if raw := strings.TrimSpace(input.AssignedToID); raw != "" {
		if strings.EqualFold(raw, UnassignedFilter) {
			filter.Unassigned = true
		} else {
			filter.AssignedToID = &raw
		}
	}
	filter.CreatedByID = trimmedOrNil(&input.CreatedByID)
	filter.Category = trimmedOrNil(&input.Category)
	filter.Search = trimmedOrNil(&input.Search)
	return filter, nil
}

// Get loads a ticket with its thread. Internal notes are removed for
// non-agents; agents also receive the change history.
func (s *TicketService) Get(ctx context.Context, caller policy.Caller, id string) (*TicketDetail, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "ticket", id)
	}
	if err := policy.Authorize(caller, policy.ActionTicketView, policy.TicketResource(ticket)); err != nil {
		return nil, err
	}

	comments, err := s.comments.ListByTicket(ctx, ticket.ID, caller.IsAgent())
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	ticket.CommentCount = len(comments)

	detail := &TicketDetail{Ticket: ticket, Comments: comments}
	if caller.IsAgent() {
		history, err := s.history.ListByTicket(ctx, ticket.ID)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		detail.History = history
	}
	return detail, nil
}

// Create opens a ticket owned by the caller. The number follows the highest
// existing one; a concurrent creation that picked the same number fails with
// TICKET_NUMBER_TAKEN and may be retried by the client.
func (s *TicketService) Create(ctx context.Context, caller policy.Caller, input TicketCreateInput) (*domain.Ticket, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	missing := map[string]any{}
	if title == "" {
		missing["title"] = "required"
	}
	if description == "" {
		missing["description"] = "required"
	}
	if len(missing) > 0 {
		return nil, apperrors.NewValidationError("title and description are required", missing)
	}

	priority := domain.TicketPriorityMedium
	if raw := trimmedOrNil(input.Priority); raw != nil {
		parsed, ok := domain.ParseTicketPriority(*raw)
		if !ok {
			return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": *raw})
		}
		priority = parsed
	}
	source := domain.DefaultTicketSource
	if raw := trimmedOrNil(input.Source); raw != nil {
		source = *raw
	}

	ticket := &domain.Ticket{
		Title:       title,
		Description: description,
		Status:      domain.TicketStatusOpen,
		Priority:    priority,
		Category:    trimmedOrNil(input.Category),
		Source:      source,
		CreatedByID: caller.ID,
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		last, err := s.tickets.LastNumber(ctx)
		if err != nil {
			return err
		}
		ticket.TicketNumber = domain.FormatTicketNumber(last + 1)
		return s.tickets.Create(ctx, ticket)
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflictCode("TICKET_NUMBER_TAKEN",
				"ticket number already taken, retry the request",
				map[string]any{"ticketNumber": ticket.TicketNumber})
		}
		return nil, apperrors.MapError(err)
	}

	created, err := s.tickets.GetByID(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.EventTicketCreated, created.ID, caller, events.TicketCreatedPayload{
		TicketNumber: created.TicketNumber,
		Priority:     created.Priority,
		Title:        created.Title,
	})
	return created, nil
}

type ticketChange struct {
	field    domain.TicketField
	old, new *string
}

// Update applies a partial update. Agents change triage fields, the owner
// changes content while the ticket is not closed. Fields the caller may not
// change are dropped; a request made only of such fields is rejected.
func (s *TicketService) Update(ctx context.Context, caller policy.Caller, id string, input TicketUpdateInput) (*domain.Ticket, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	if !input.hasContent() && !input.hasTriage() {
		return nil, apperrors.NewValidationError("no fields to update", nil)
	}

	var (
		ticket    *domain.Ticket
		changes   []ticketChange
		oldStatus domain.TicketStatus
	)
	// Permissions are checked against the locked row.
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		ticket, err = s.tickets.GetByIDForUpdate(ctx, id)
		if err != nil {
			return lookupErr(err, "ticket", id)
		}
		oldStatus = ticket.Status
		changes, err = s.patch(ctx, caller, ticket, input)
		if err != nil {
			return err
		}
		if err := s.tickets.Update(ctx, ticket); err != nil {
			return err
		}
		now := s.now()
		for _, change := range changes {
			entry := &domain.TicketHistory{
				TicketID:    ticket.ID,
				ChangedByID: caller.ID,
				Field:       change.field,
				OldValue:    change.old,
				NewValue:    change.new,
				CreatedAt:   now,
			}
			if err := s.history.Create(ctx, entry); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	updated, err := s.tickets.GetByID(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publishChanges(ctx, caller, updated, oldStatus, changes)
	return updated, nil
}

// patch applies the parts of input the caller may change to ticket and
// returns the triage changes to record.
func (s *TicketService) patch(ctx context.Context, caller policy.Caller, ticket *domain.Ticket, input TicketUpdateInput) ([]ticketChange, error) {
	resource := policy.TicketResource(ticket)
	if err := policy.Authorize(caller, policy.ActionTicketView, resource); err != nil {
		return nil, err
	}

	applyContent := input.hasContent() && policy.Allowed(caller, policy.ActionTicketEditContent, resource)
	applyTriage := input.hasTriage() && policy.Allowed(caller, policy.ActionTicketTriage, resource)
	if !applyContent && !applyTriage {
		if input.hasContent() {
			return nil, policy.Authorize(caller, policy.ActionTicketEditContent, resource)
		}
		return nil, policy.Authorize(caller, policy.ActionTicketTriage, resource)
	}

	if applyContent {
		if err := applyContentPatch(ticket, input); err != nil {
			return nil, err
		}
	}
	if !applyTriage {
		return nil, nil
	}
	return s.applyTriagePatch(ctx, ticket, input)
}

func applyContentPatch(ticket *domain.Ticket, input TicketUpdateInput) error {
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return apperrors.NewValidationError("title cannot be empty", map[string]any{"title": "required"})
		}
		ticket.Title = title
	}
	if input.Description != nil {
		description := strings.TrimSpace(*input.Description)
		if description == "" {
			return apperrors.NewValidationError("description cannot be empty", map[string]any{"description": "required"})
		}
		ticket.Description = description
	}
	return nil
}

// applyTriagePatch mutates ticket and returns the field changes to record.
// Status changes go through the lifecycle table so stamps are set once.
func (s *TicketService) applyTriagePatch(ctx context.Context, ticket *domain.Ticket, input TicketUpdateInput) ([]ticketChange, error) {
	var changes []ticketChange

	if input.Status != nil {
		next, ok := domain.ParseTicketStatus(*input.Status)
		if !ok {
			return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": *input.Status})
		}
		if next != ticket.Status {
			changes = append(changes, ticketChange{
				field: domain.FieldStatus,
				old:   strPtr(string(ticket.Status)),
				new:   strPtr(string(next)),
			})
		}
		policy.ApplyStatus(ticket, next, s.now())
	}

	if input.Priority != nil {
		next, ok := domain.ParseTicketPriority(*input.Priority)
		if !ok {
			return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": *input.Priority})
		}
		if next != ticket.Priority {
			changes = append(changes, ticketChange{
				field: domain.FieldPriority,
				old:   strPtr(string(ticket.Priority)),
				new:   strPtr(string(next)),
			})
			ticket.Priority = next
		}
	}

	if input.Category.Set {
		next := trimmedOrNil(input.Category.Value)
		if !eqStrPtr(next, ticket.Category) {
			changes = append(changes, ticketChange{field: domain.FieldCategory, old: ticket.Category, new: next})
			ticket.Category = next
		}
	}

	if input.AssignedToID.Set {
		next := trimmedOrNil(input.AssignedToID.Value)
		if next != nil {
			if err := s.checkAssignee(ctx, *next); err != nil {
				return nil, err
			}
		}
		if !eqStrPtr(next, ticket.AssignedToID) {
			changes = append(changes, ticketChange{field: domain.FieldAssignedTo, old: ticket.AssignedToID, new: next})
			ticket.AssignedToID = next
		}
	}
	return changes, nil
}

func (s *TicketService) checkAssignee(ctx context.Context, id string) error {
	assignee, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewValidationError("assignee not found", map[string]any{"assignedToId": id})
		}
		return apperrors.MapError(err)
	}
	if !assignee.IsAgent() {
		return apperrors.NewValidationError("tickets can only be assigned to agents", map[string]any{"assignedToId": id})
	}
	return nil
}

// Delete removes a ticket with its comments and history.
func (s *TicketService) Delete(ctx context.Context, caller policy.Caller, id string) error {
	if err := requireCaller(caller); err != nil {
		return err
	}
	if err := policy.Authorize(caller, policy.ActionTicketDelete, policy.Resource{}); err != nil {
		return err
	}
	if err := s.tickets.Delete(ctx, id); err != nil {
		return lookupErr(err, "ticket", id)
	}
	s.publish(ctx, events.EventTicketDeleted, id, caller, nil)
	return nil
}

func (s *TicketService) publishChanges(ctx context.Context, caller policy.Caller, ticket *domain.Ticket, oldStatus domain.TicketStatus, changes []ticketChange) {
	for _, change := range changes {
		switch change.field {
		case domain.FieldStatus:
			s.publish(ctx, events.EventTicketStatusChanged, ticket.ID, caller, events.TicketStatusChangedPayload{
				OldStatus: oldStatus,
				NewStatus: ticket.Status,
				Direction: string(policy.ClassifyTransition(oldStatus, ticket.Status)),
			})
		case domain.FieldPriority:
			s.publish(ctx, events.EventTicketPriorityChanged, ticket.ID, caller, events.TicketPriorityChangedPayload{
				OldPriority: domain.TicketPriority(*change.old),
				NewPriority: ticket.Priority,
			})
		case domain.FieldAssignedTo:
			s.publish(ctx, events.EventTicketAssigned, ticket.ID, caller, events.TicketAssignedPayload{
				AssigneeID: ticket.AssignedToID,
			})
		}
	}
}

func (s *TicketService) publish(ctx context.Context, eventType events.EventType, resourceID string, caller policy.Caller, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	actor := events.Actor{UserID: caller.ID, Role: caller.Role}
	_ = s.dispatcher.Publish(ctx, events.New(eventType, resourceID, actor, s.now(), payload))
}
