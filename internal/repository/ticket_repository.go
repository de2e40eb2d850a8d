package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deskflow/helpdesk/internal/domain"
	"github.com/deskflow/helpdesk/internal/persistence"
)

// TicketFilter captures list parameters. Nil fields do not filter.
type TicketFilter struct {
	Status       *domain.TicketStatus
	Priority     *domain.TicketPriority
	AssignedToID *string
	Unassigned   bool
	CreatedByID  *string
	Category     *string
	Search       *string
	// PublicCommentsOnly excludes internal notes from CommentCount.
	PublicCommentsOnly bool
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	LastNumber(ctx context.Context) (int64, error)
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	StampFirstResponse(ctx context.Context, id string, at time.Time) (bool, error)
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Ticket, error)
	GetByNumber(ctx context.Context, number string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	Aggregate(ctx context.Context, createdByID *string) (*domain.TicketAggregate, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketSelect = `
        SELECT t.id, t.ticket_number, t.title, t.description, t.status, t.priority, t.category, t.source,
               t.created_by_id, t.assigned_to_id, t.first_response_at, t.resolved_at, t.closed_at,
               t.created_at, t.updated_at,
               cb.name, cb.email, cb.role,
               ab.name, ab.email, ab.role,
               (SELECT COUNT(*) FROM comments c WHERE c.ticket_id = t.id AND (NOT $1 OR NOT c.is_internal))
        FROM tickets t
        JOIN users cb ON cb.id = t.created_by_id
        LEFT JOIN users ab ON ab.id = t.assigned_to_id`

const priorityOrder = `CASE t.priority WHEN 'urgent' THEN 4 WHEN 'high' THEN 3 WHEN 'medium' THEN 2 ELSE 1 END`

// LastNumber returns the highest numeric suffix among ticket numbers, or 0.
// Gaps left by deleted tickets are never reused.
func (r *ticketRepository) LastNumber(ctx context.Context) (int64, error) {
	const query = `
        SELECT COALESCE(MAX(CAST(SUBSTRING(ticket_number FROM 5) AS BIGINT)), 0)
        FROM tickets
        WHERE ticket_number ~ '^TKT-[0-9]+$'`
	var last int64
	err := persistence.Conn(ctx, r.pool).QueryRow(ctx, query).Scan(&last)
	return last, err
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (ticket_number, title, description, status, priority, category, source,
                             created_by_id, assigned_to_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, created_at, updated_at`
	err := persistence.Conn(ctx, r.pool).QueryRow(ctx, query,
		ticket.TicketNumber,
		ticket.Title,
		ticket.Description,
		string(ticket.Status),
		string(ticket.Priority),
		ticket.Category,
		ticket.Source,
		ticket.CreatedByID,
		ticket.AssignedToID,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
	return translate(err)
}

// Update writes every mutable column. Lifecycle stamps keep their stored
// value when already set, so concurrent writers cannot overwrite them.
func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET title=$1, description=$2, status=$3, priority=$4, category=$5, assigned_to_id=$6,
            first_response_at=COALESCE(first_response_at, $7),
            resolved_at=COALESCE(resolved_at, $8),
            closed_at=COALESCE(closed_at, $9),
            updated_at=NOW()
        WHERE id=$10
        RETURNING first_response_at, resolved_at, closed_at, updated_at`
	if !validID(ticket.ID) {
		return pgx.ErrNoRows
	}
	err := persistence.Conn(ctx, r.pool).QueryRow(ctx, query,
		ticket.Title,
		ticket.Description,
		string(ticket.Status),
		string(ticket.Priority),
		ticket.Category,
		ticket.AssignedToID,
		ticket.FirstResponseAt,
		ticket.ResolvedAt,
		ticket.ClosedAt,
		ticket.ID,
	).Scan(&ticket.FirstResponseAt, &ticket.ResolvedAt, &ticket.ClosedAt, &ticket.UpdatedAt)
	return translate(err)
}

// StampFirstResponse sets first_response_at when it is still null and
// reports whether this call set it.
func (r *ticketRepository) StampFirstResponse(ctx context.Context, id string, at time.Time) (bool, error) {
	if !validID(id) {
		return false, pgx.ErrNoRows
	}
	cmd, err := persistence.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE tickets SET first_response_at=$2, updated_at=NOW() WHERE id=$1 AND first_response_at IS NULL`, id, at)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *ticketRepository) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return pgx.ErrNoRows
	}
	cmd, err := persistence.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM tickets WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	if !validID(id) {
		return nil, pgx.ErrNoRows
	}
	return scanTicket(persistence.Conn(ctx, r.pool).QueryRow(ctx, ticketSelect+` WHERE t.id=$2`, false, id))
}

// GetByIDForUpdate reads the ticket and locks its row until the surrounding
// transaction ends. Outside a transaction the lock is released immediately.
func (r *ticketRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Ticket, error) {
	if !validID(id) {
		return nil, pgx.ErrNoRows
	}
	return scanTicket(persistence.Conn(ctx, r.pool).QueryRow(ctx, ticketSelect+` WHERE t.id=$2 FOR UPDATE OF t`, false, id))
}

func (r *ticketRepository) GetByNumber(ctx context.Context, number string) (*domain.Ticket, error) {
	return scanTicket(persistence.Conn(ctx, r.pool).QueryRow(ctx, ticketSelect+` WHERE t.ticket_number=$2`, false, number))
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{filter.PublicCommentsOnly}

	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		clauses = append(clauses, fmt.Sprintf("t.status=$%d", len(args)))
	}
	if filter.Priority != nil {
		args = append(args, string(*filter.Priority))
		clauses = append(clauses, fmt.Sprintf("t.priority=$%d", len(args)))
	}
	if filter.Unassigned {
		clauses = append(clauses, "t.assigned_to_id IS NULL")
	} else if filter.AssignedToID != nil {
		if !validID(*filter.AssignedToID) {
			return []domain.Ticket{}, nil
		}
		args = append(args, *filter.AssignedToID)
		clauses = append(clauses, fmt.Sprintf("t.assigned_to_id=$%d", len(args)))
	}
	if filter.CreatedByID != nil {
		if !validID(*filter.CreatedByID) {
			return []domain.Ticket{}, nil
		}
		args = append(args, *filter.CreatedByID)
		clauses = append(clauses, fmt.Sprintf("t.created_by_id=$%d", len(args)))
	}
	if filter.Category != nil {
		args = append(args, *filter.Category)
		clauses = append(clauses, fmt.Sprintf("t.category=$%d", len(args)))
	}
	if filter.Search != nil && strings.TrimSpace(*filter.Search) != "" {
		args = append(args, likePattern(*filter.Search))
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf(
			"(t.title ILIKE %[1]s OR t.description ILIKE %[1]s OR t.ticket_number ILIKE %[1]s)", placeholder))
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY %s DESC, t.created_at DESC`,
		ticketSelect, strings.Join(clauses, " AND "), priorityOrder)

	rows, err := persistence.Conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tickets := []domain.Ticket{}
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, *ticket)
	}
	return tickets, rows.Err()
}

func (r *ticketRepository) Aggregate(ctx context.Context, createdByID *string) (*domain.TicketAggregate, error) {
	agg := &domain.TicketAggregate{
		ByStatus:   map[domain.TicketStatus]int{},
		ByPriority: map[domain.TicketPriority]int{},
	}
	if createdByID != nil && !validID(*createdByID) {
		return agg, nil
	}

	where := ""
	args := []any{}
	if createdByID != nil {
		where = " WHERE created_by_id=$1"
		args = append(args, *createdByID)
	}

	conn := persistence.Conn(ctx, r.pool)
	rows, err := conn.Query(ctx, `SELECT status, priority, COUNT(*) FROM tickets`+where+` GROUP BY status, priority`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var status, priority string
		var count int
		if err := rows.Scan(&status, &priority, &count); err != nil {
			return nil, err
		}
		agg.ByStatus[domain.TicketStatus(status)] += count
		agg.ByPriority[domain.TicketPriority(priority)] += count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	const metrics = `
        SELECT COUNT(*) FILTER (WHERE assigned_to_id IS NULL AND status <> 'closed'),
               COUNT(*) FILTER (WHERE first_response_at IS NULL AND status <> 'closed'),
               (AVG(EXTRACT(EPOCH FROM first_response_at - created_at)) FILTER (WHERE first_response_at IS NOT NULL))::float8,
               (AVG(EXTRACT(EPOCH FROM resolved_at - created_at)) FILTER (WHERE resolved_at IS NOT NULL))::float8
        FROM tickets`
	err = conn.QueryRow(ctx, metrics+where, args...).Scan(
		&agg.Unassigned,
		&agg.AwaitingAnswer,
		&agg.AvgResponseSeconds,
		&agg.AvgResolutionSeconds,
	)
	if err != nil {
		return nil, err
	}
	return agg, nil
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var (
		ticket                                    domain.Ticket
		status, priority                          string
		creatorName, creatorEmail, creatorRole    string
		assigneeName, assigneeEmail, assigneeRole *string
	)
	if err := row.Scan(
		&ticket.ID,
		&ticket.TicketNumber,
		&ticket.Title,
		&ticket.Description,
		&status,
		&priority,
		&ticket.Category,
		&ticket.Source,
		&ticket.CreatedByID,
		&ticket.AssignedToID,
		&ticket.FirstResponseAt,
		&ticket.ResolvedAt,
		&ticket.ClosedAt,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&creatorName,
		&creatorEmail,
		&creatorRole,
		&assigneeName,
		&assigneeEmail,
		&assigneeRole,
		&ticket.CommentCount,
	); err != nil {
		return nil, err
	}
	ticket.Status = domain.TicketStatus(status)
	ticket.Priority = domain.TicketPriority(priority)
	ticket.CreatedBy = &domain.UserSummary{
		ID:    ticket.CreatedByID,
		Name:  creatorName,
		Email: creatorEmail,
		Role:  domain.Role(creatorRole),
	}
	if ticket.AssignedToID != nil && assigneeName != nil {
		summary := &domain.UserSummary{ID: *ticket.AssignedToID, Name: *assigneeName}
		if assigneeEmail != nil {
			summary.Email = *assigneeEmail
		}
		if assigneeRole != nil {
			summary.Role = domain.Role(*assigneeRole)
		}
		ticket.AssignedTo = summary
	}
	return &ticket, nil
}
