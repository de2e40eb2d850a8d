// Package testutil provides in-memory stand-ins for the Postgres and Redis
// backed collaborators so service and handler tests run without servers.
package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/deskflow/helpdesk/internal/auth"
	"github.com/deskflow/helpdesk/internal/domain"
	"github.com/deskflow/helpdesk/internal/repository"
)

// Store keeps every table in maps. It enforces the same unique constraints
// and delete cascades as the schema, and reports missing rows with
// pgx.ErrNoRows like the real repositories.
type Store struct {
	mu    sync.Mutex
	now   func() time.Time
	seq   int64
	fail  error
	order map[string]int64

	users        map[string]domain.User
	tickets      map[string]domain.Ticket
	comments     map[string]domain.Comment
	history      map[string]domain.TicketHistory
	requests     map[string]domain.Request
	applications map[string]domain.Application
	sessions     map[string]domain.Session

	// TxCount counts WithinTx calls.
	TxCount int
}

// NewStore returns an empty store stamping rows with now.
func NewStore(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		now:          now,
		order:        map[string]int64{},
		users:        map[string]domain.User{},
		tickets:      map[string]domain.Ticket{},
		comments:     map[string]domain.Comment{},
		history:      map[string]domain.TicketHistory{},
		requests:     map[string]domain.Request{},
		applications: map[string]domain.Application{},
		sessions:     map[string]domain.Session{},
	}
}

// FailNext makes the next repository call return err.
func (s *Store) FailNext(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = err
}

func (s *Store) fault() error {
	err := s.fail
	s.fail = nil
	return err
}

func (s *Store) newID() string {
	id := uuid.NewString()
	s.seq++
	s.order[id] = s.seq
	return id
}

// before orders rows created at the same instant by insertion.
func (s *Store) before(aID string, aAt time.Time, bID string, bAt time.Time) bool {
	if !aAt.Equal(bAt) {
		return aAt.Before(bAt)
	}
	return s.order[aID] < s.order[bID]
}

func (s *Store) summary(id string) *domain.UserSummary {
	user, ok := s.users[id]
	if !ok {
		return nil
	}
	return user.Summary()
}

// Users returns the user repository view.
func (s *Store) Users() repository.UserRepository { return userRepo{s} }

// Tickets returns the ticket repository view.
func (s *Store) Tickets() repository.TicketRepository { return ticketRepo{s} }

// Comments returns the comment repository view.
func (s *Store) Comments() repository.CommentRepository { return commentRepo{s} }

// History returns the ticket history repository view.
func (s *Store) History() repository.TicketHistoryRepository { return historyRepo{s} }

// Requests returns the request repository view.
func (s *Store) Requests() repository.RequestRepository { return requestRepo{s} }

// Applications returns the application repository view.
func (s *Store) Applications() repository.ApplicationRepository { return applicationRepo{s} }

// Sessions returns the session store view.
func (s *Store) Sessions() auth.SessionStore { return sessionStore{s} }

// WithinTx snapshots the tables and restores them when fn fails.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	s.TxCount++
	snap := s.snapshot()
	s.mu.Unlock()

	if err := fn(ctx); err != nil {
		s.mu.Lock()
		s.restore(snap)
		s.mu.Unlock()
		return err
	}
	return nil
}

type snapshot struct {
	users        map[string]domain.User
	tickets      map[string]domain.Ticket
	comments     map[string]domain.Comment
	history      map[string]domain.TicketHistory
	requests     map[string]domain.Request
	applications map[string]domain.Application
}

func (s *Store) snapshot() snapshot {
	return snapshot{
		users:        copyMap(s.users),
		tickets:      copyMap(s.tickets),
		comments:     copyMap(s.comments),
		history:      copyMap(s.history),
		requests:     copyMap(s.requests),
		applications: copyMap(s.applications),
	}
}

func (s *Store) restore(snap snapshot) {
	s.users = snap.users
	s.tickets = snap.tickets
	s.comments = snap.comments
	s.history = snap.history
	s.requests = snap.requests
	s.applications = snap.applications
}

func copyMap[V any](in map[string]V) map[string]V {
	out := make(map[string]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// users

type userRepo struct{ s *Store }

func (r userRepo) Create(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault(); err != nil {
		return err
	}
	for _, existing := range r.s.users {
		if existing.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	user.ID = r.s.newID()
	user.CreatedAt = r.s.now()
	user.UpdatedAt = user.CreatedAt
	r.s.users[user.ID] = *user
	return nil
}

func (r userRepo) Update(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault(); err != nil {
		return err
	}
	if _, ok := r.s.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	for id, existing := range r.s.users {
		if id != user.ID && existing.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	user.UpdatedAt = r.s.now()
	r.s.users[user.ID] = *user
	return nil
}

func (r userRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault(); err != nil {
		return err
	}
	if _, ok := r.s.users[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.s.users, id)

	for tid, t := range r.s.tickets {
		if t.CreatedByID == id {
			r.s.deleteTicket(tid)
			continue
		}
		if t.AssignedToID != nil && *t.AssignedToID == id {
			t.AssignedToID = nil
			r.s.tickets[tid] = t
		}
	}
	for cid, c := range r.s.comments {
		if c.UserID == id {
			delete(r.s.comments, cid)
		}
	}
	for hid, h := range r.s.history {
		if h.ChangedByID == id {
			delete(r.s.history, hid)
		}
	}
	for rid, req := range r.s.requests {
		if req.CreatedByID == id {
			r.s.deleteRequest(rid)
		}
	}
	for aid, app := range r.s.applications {
		if app.UserID == id {
			delete(r.s.applications, aid)
			continue
		}
		if app.DecidedByID != nil && *app.DecidedByID == id {
			app.DecidedByID = nil
			r.s.applications[aid] = app
		}
	}
	return nil
}

func (r userRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault(); err != nil {
		return nil, err
	}
	user, ok := r.s.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &user, nil
}

func (r userRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault(); err != nil {
		return nil, err
	}
	for _, user := range r.s.users {
		if user.Email == email {
			u := user
			return &u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r userRepo) List(_ context.Context, limit, offset int) ([]domain.User, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault(); err != nil {
		return nil, 0, err
	}
	all := make([]domain.User, 0, len(r.s.users))
	for _, user := range r.s.users {
		all = append(all, user)
	}
	sort.Slice(all, func(i, j int) bool {
		return r.s.before(all[j].ID, all[j].CreatedAt, all[i].ID, all[i].CreatedAt)
	})
	total := len(all)
	if offset >= total {
		return []domain.User{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

// tickets

type ticketRepo struct{ s *Store }

func (s *Store) deleteTicket(id string) {
	delete(s.tickets, id)
	for cid, c := range s.comments {
		if c.TicketID == id {
			delete(s.comments, cid)
		}
	}
	for hid, h := range s.history {
		if h.TicketID == id {
			delete(s.history, hid)
		}
	}
}

func (s *Store) projectTicket(t domain.Ticket, publicOnly bool) domain.Ticket {
	t.CreatedBy = s.summary(t.CreatedByID)
	t.AssignedTo = nil
	if t.AssignedToID != nil {
		t.AssignedTo = s.summary(*t.AssignedToID)
	}
	t.CommentCount = 0
	for _, c := range s.comments {
		if c.TicketID == t.ID && (!publicOnly || !c.IsInternal) {
			t.CommentCount++
		}
	}
	return t
}

func stripTicket(t domain.Ticket) domain.Ticket {
	t.CreatedBy = nil
	t.AssignedTo = nil
	t.CommentCount = 0
	return t
}

func (r ticketRepo) LastNumber(_ context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault(); err != nil {
		return 0, err
	}
	var last int64
	for _, stored := range r.s.tickets {
		if n, ok := domain.ParseTicketNumber(stored.TicketNumber); ok && n > last {
			last = n
		}
	}
	return last, nil
}

func (r ticketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault(); err != nil {
		return err
	}
	for _, existing := range r.s.tickets {
		if existing.TicketNumber == ticket.TicketNumber {
			return repository.ErrDuplicate
		}
	}
	ticket.ID = r.s.newID()
	ticket.CreatedAt = r.s.now()
	ticket.UpdatedAt = ticket.CreatedAt
	r.s.tickets[ticket.ID] = stripTicket(*ticket)
	return nil
}

func (r ticketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault(); err != nil {
		return err
	}
	stored, ok := r.s.tickets[ticket.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.Title = ticket.Title
	stored.Description = ticket.Description
	stored.Status = ticket.Status
	stored.Priority = ticket.Priority
	stored.Category = ticket.Category
	stored.AssignedToID = ticket.AssignedToID
	stored.FirstResponseAt = coalesce(stored.FirstResponseAt, ticket.FirstResponseAt)
	stored.ResolvedAt = coalesce(stored.ResolvedAt, ticket.ResolvedAt)
	stored.ClosedAt = coalesce(stored.ClosedAt, ticket.ClosedAt)
	stored.UpdatedAt = r.s.now()
	r.s.tickets[ticket.ID] = stored

	ticket.FirstResponseAt = stored.FirstResponseAt
	ticket.ResolvedAt = stored.ResolvedAt
	ticket.ClosedAt = stored.ClosedAt
	ticket.UpdatedAt = stored.UpdatedAt
	return nil
}

func coalesce(existing, next *time.Time) *time.Time {
	if existing != nil {
		return existing
	}
	return next
}

func (r ticketRepo) StampFirstResponse(_ context.Context, id string, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault(); err != nil {
		return false, err
	}
	stored, ok := r.s.tickets[id]
	if !ok {
		return false, pgx.ErrNoRows
	}
	if stored.FirstResponseAt != nil {
		return false, nil
	}
	stored.FirstResponseAt = &at
	stored.UpdatedAt = r.s.now()
	r.s.tickets[id] = stored
	return true, nil
}

func (r ticketRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault(); err != nil {
		return err
	}
	if _, ok := r.s.tickets[id]; !ok {
		return pgx.ErrNoRows
	}
	r.s.deleteTicket(id)
	return nil
}

func (r ticketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault(); err != nil {
		return nil, err
	}
	stored, ok := r.s.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	t := r.s.projectTicket(stored, false)
	return &t, nil
}

// GetByIDForUpdate has no lock to take; the store serialises every call.
func (r ticketRepo) GetByIDForUpdate(ctx context.Context, id string) (*domain.Ticket, error) {
	return r.GetByID(ctx, id)
}

func (r ticketRepo) GetByNumber(_ context.Context, number string) (*domain.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault(); err != nil {
		return nil, err
	}
	for _, stored := range r.s.tickets {
		if stored.TicketNumber == number {
			t := r.s.projectTicket(stored, false)
			return &t, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r ticketRepo) List(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault(); err != nil {
		return nil, err
	}
	result := []domain.Ticket{}
	for _, stored := range r.s.tickets {
		if matchTicket(stored, filter) {
			result = append(result, r.s.projectTicket(stored, filter.PublicCommentsOnly))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.Priority.Rank() != b.Priority.Rank() {
			return a.Priority.Rank() > b.Priority.Rank()
		}
		return r.s.before(b.ID, b.CreatedAt, a.ID, a.CreatedAt)
	})
	return result, nil
}

func matchTicket(t domain.Ticket, f repository.TicketFilter) bool {
	if f.Status != nil && t.Status != *f.Status {
		return false
	}
	if f.Priority != nil && t.Priority != *f.Priority {
		return false
	}
	if f.Unassigned && t.AssignedToID != nil {
		return false
	}
	if !f.Unassigned && f.AssignedToID != nil && (t.AssignedToID == nil || *t.AssignedToID != *f.AssignedToID) {
		return false
	}
	if f.CreatedByID != nil && t.CreatedByID != *f.CreatedByID {
		return false
	}
	if f.Category != nil && (t.Category == nil || *t.Category != *f.Category) {
		return false
	}
	if f.Search != nil && strings.TrimSpace(*f.Search) != "" {
		term := strings.ToLower(strings.TrimSpace(*f.Search))
		if !strings.Contains(strings.ToLower(t.Title), term) &&
			!strings.Contains(strings.ToLower(t.Description), term) &&
			!strings.Contains(strings.ToLower(t.TicketNumber), term) {
			return false
		}
	}
	return true
}

func (r ticketRepo) Aggregate(_ context.Context, createdByID *string) (*domain.TicketAggregate, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault(); err != nil {
		return nil, err
	}
	agg := &domain.TicketAggregate{
		ByStatus:   map[domain.TicketStatus]int{},
		ByPriority: map[domain.TicketPriority]int{},
	}
	var (
		responseSum, resolutionSum float64
		responseN, resolutionN     int
	)
	for _, t := range r.s.tickets {
		if createdByID != nil && t.CreatedByID != *createdByID {
			continue
		}
		agg.ByStatus[t.Status]++
		agg.ByPriority[t.Priority]++
		if t.AssignedToID == nil && t.Status != domain.TicketStatusClosed {
			agg.Unassigned++
		}
		if t.FirstResponseAt == nil && t.Status != domain.TicketStatusClosed {
			agg.AwaitingAnswer++
		}
		if t.FirstResponseAt != nil {
			responseSum += t.FirstResponseAt.Sub(t.CreatedAt).Seconds()
			responseN++
		}
		if t.ResolvedAt != nil {
			resolutionSum += t.ResolvedAt.Sub(t.CreatedAt).Seconds()
			resolutionN++
		}
	}
	if responseN > 0 {
		avg := responseSum / float64(responseN)
		agg.AvgResponseSeconds = &avg
	}
	if resolutionN > 0 {
		avg := resolutionSum / float64(resolutionN)
		agg.AvgResolutionSeconds = &avg
	}
	return agg, nil
}

// comments

type commentRepo struct{ s *Store }

func (r commentRepo) Create(_ context.Context, comment *domain.Comment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault(); err != nil {
		return err
	}
	if _, ok := r.s.tickets[comment.TicketID]; !ok {
		return pgx.ErrNoRows
	}
	comment.ID = r.s.newID()
	comment.CreatedAt = r.s.now()
	stored := *comment
	stored.User = nil
	r.s.comments[comment.ID] = stored
	return nil
}

func (r commentRepo) GetByID(_ context.Context, id string) (*domain.Comment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault(); err != nil {
		return nil, err
	}
	stored, ok := r.s.comments[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	stored.User = r.s.summary(stored.UserID)
	return &stored, nil
}

func (r commentRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault(); err != nil {
		return err
	}
	if _, ok := r.s.comments[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.s.comments, id)
	return nil
}

func (r commentRepo) ListByTicket(_ context.Context, ticketID string, includeInternal bool) ([]domain.Comment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault(); err != nil {
		return nil, err
	}
	result := []domain.Comment{}
	for _, c := range r.s.comments {
		if c.TicketID != ticketID || (c.IsInternal && !includeInternal) {
			continue
		}
		c.User = r.s.summary(c.UserID)
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool {
		return r.s.before(result[i].ID, result[i].CreatedAt, result[j].ID, result[j].CreatedAt)
	})
	return result, nil
}

// history

type historyRepo struct{ s *Store }

func (r historyRepo) Create(_ context.Context, entry *domain.TicketHistory) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault(); err != nil {
		return err
	}
	entry.ID = r.s.newID()
	entry.CreatedAt = r.s.now()
	r.s.history[entry.ID] = *entry
	return nil
}

func (r historyRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketHistory, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault(); err != nil {
		return nil, err
	}
	result := []domain.TicketHistory{}
	for _, h := range r.s.history {
		if h.TicketID == ticketID {
			result = append(result, h)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return r.s.before(result[i].ID, result[i].CreatedAt, result[j].ID, result[j].CreatedAt)
	})
	return result, nil
}

// requests

type requestRepo struct{ s *Store }

func (s *Store) deleteRequest(id string) {
	delete(s.requests, id)
	for aid, app := range s.applications {
		if app.RequestID == id {
			delete(s.applications, aid)
		}
	}
}

func (s *Store) projectRequest(req domain.Request) domain.Request {
	req.CreatedBy = s.summary(req.CreatedByID)
	req.ApplicationCount = 0
	req.Applications = nil
	for _, app := range s.applications {
		if app.RequestID == req.ID {
			req.ApplicationCount++
		}
	}
	return req
}

func (r requestRepo) Create(_ context.Context, request *domain.Request) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault(); err != nil {
		return err
	}
	request.ID = r.s.newID()
	request.CreatedAt = r.s.now()
	request.UpdatedAt = request.CreatedAt
	stored := *request
	stored.CreatedBy = nil
	stored.Applications = nil
	r.s.requests[request.ID] = stored
	return nil
}

func (r requestRepo) Update(_ context.Context, request *domain.Request) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault(); err != nil {
		return err
	}
	stored, ok := r.s.requests[request.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.Title = request.Title
	stored.Description = request.Description
	stored.Status = request.Status
	stored.UpdatedAt = r.s.now()
	r.s.requests[request.ID] = stored
	request.UpdatedAt = stored.UpdatedAt
	return nil
}

func (r requestRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault(); err != nil {
		return err
	}
	if _, ok := r.s.requests[id]; !ok {
		return pgx.ErrNoRows
	}
	r.s.deleteRequest(id)
	return nil
}

func (r requestRepo) GetByID(_ context.Context, id string) (*domain.Request, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault(); err != nil {
		return nil, err
	}
	stored, ok := r.s.requests[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	req := r.s.projectRequest(stored)
	return &req, nil
}

func (r requestRepo) List(_ context.Context, status *domain.RequestStatus) ([]domain.Request, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault(); err != nil {
		return nil, err
	}
	result := []domain.Request{}
	for _, stored := range r.s.requests {
		if status != nil && stored.Status != *status {
			continue
		}
		result = append(result, r.s.projectRequest(stored))
	}
	sort.Slice(result, func(i, j int) bool {
		return r.s.before(result[j].ID, result[j].CreatedAt, result[i].ID, result[i].CreatedAt)
	})
	return result, nil
}

// applications

type applicationRepo struct{ s *Store }

func (r applicationRepo) Create(_ context.Context, app *domain.Application) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault(); err != nil {
		return err
	}
	for _, existing := range r.s.applications {
		if existing.UserID == app.UserID && existing.RequestID == app.RequestID {
			return repository.ErrDuplicate
		}
	}
	app.ID = r.s.newID()
	app.CreatedAt = r.s.now()
	app.UpdatedAt = app.CreatedAt
	stored := *app
	stored.User = nil
	r.s.applications[app.ID] = stored
	return nil
}

func (r applicationRepo) Decide(_ context.Context, app *domain.Application) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault(); err != nil {
		return false, err
	}
	stored, ok := r.s.applications[app.ID]
	if !ok {
		return false, pgx.ErrNoRows
	}
	if stored.IsDecided() {
		return false, nil
	}
	stored.Status = app.Status
	stored.DecidedByID = app.DecidedByID
	stored.DecidedAt = app.DecidedAt
	stored.UpdatedAt = r.s.now()
	r.s.applications[app.ID] = stored
	app.UpdatedAt = stored.UpdatedAt
	return true, nil
}

func (r applicationRepo) GetByID(_ context.Context, id string) (*domain.Application, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault(); err != nil {
		return nil, err
	}
	stored, ok := r.s.applications[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	stored.User = r.s.summary(stored.UserID)
	return &stored, nil
}

func (r applicationRepo) ListByRequest(_ context.Context, requestID string) ([]domain.Application, error) {
	return r.list(func(a domain.Application) bool { return a.RequestID == requestID }, true)
}

func (r applicationRepo) ListByUser(_ context.Context, userID string, requestID *string) ([]domain.Application, error) {
	return r.list(func(a domain.Application) bool {
		return a.UserID == userID && (requestID == nil || a.RequestID == *requestID)
	}, false)
}

func (r applicationRepo) list(match func(domain.Application) bool, ascending bool) ([]domain.Application, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault(); err != nil {
		return nil, err
	}
	result := []domain.Application{}
	for _, app := range r.s.applications {
		if match(app) {
			app.User = r.s.summary(app.UserID)
			result = append(result, app)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		earlier := r.s.before(result[i].ID, result[i].CreatedAt, result[j].ID, result[j].CreatedAt)
		if ascending {
			return earlier
		}
		return !earlier
	})
	return result, nil
}

// sessions

type sessionStore struct{ s *Store }

func (m sessionStore) Save(_ context.Context, session *domain.Session) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.sessions[session.ID] = *session
	return nil
}

func (m sessionStore) Get(_ context.Context, id string) (*domain.Session, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	session, ok := m.s.sessions[id]
	if !ok || !m.s.now().Before(session.ExpiresAt) {
		return nil, auth.ErrSessionNotFound
	}
	return &session, nil
}

func (m sessionStore) Delete(_ context.Context, id string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	delete(m.s.sessions, id)
	return nil
}
