package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deskflow/helpdesk/internal/domain"
	"github.com/deskflow/helpdesk/internal/persistence"
)

// CommentRepository manages ticket thread comments.
type CommentRepository interface {
	Create(ctx context.Context, comment *domain.Comment) error
	GetByID(ctx context.Context, id string) (*domain.Comment, error)
	Delete(ctx context.Context, id string) error
	ListByTicket(ctx context.Context, ticketID string, includeInternal bool) ([]domain.Comment, error)
}

type commentRepository struct {
	pool *pgxpool.Pool
}

// NewCommentRepository builds repository.
func NewCommentRepository(pool *pgxpool.Pool) CommentRepository {
	return &commentRepository{pool: pool}
}

const commentSelect = `
        SELECT c.id, c.ticket_id, c.user_id, c.message, c.is_internal, c.created_at,
               u.name, u.email, u.role
        FROM comments c
        JOIN users u ON u.id = c.user_id`

func (r *commentRepository) Create(ctx context.Context, comment *domain.Comment) error {
	const query = `
        INSERT INTO comments (ticket_id, user_id, message, is_internal)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return persistence.Conn(ctx, r.pool).QueryRow(ctx, query,
		comment.TicketID,
		comment.UserID,
		comment.Message,
		comment.IsInternal,
	).Scan(&comment.ID, &comment.CreatedAt)
}

func (r *commentRepository) GetByID(ctx context.Context, id string) (*domain.Comment, error) {
	if !validID(id) {
		return nil, pgx.ErrNoRows
	}
	return scanComment(persistence.Conn(ctx, r.pool).QueryRow(ctx, commentSelect+` WHERE c.id=$1`, id))
}

func (r *commentRepository) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return pgx.ErrNoRows
	}
	cmd, err := persistence.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM comments WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *commentRepository) ListByTicket(ctx context.Context, ticketID string, includeInternal bool) ([]domain.Comment, error) {
	if !validID(ticketID) {
		return []domain.Comment{}, nil
	}
	query := commentSelect + ` WHERE c.ticket_id=$1 AND ($2 OR NOT c.is_internal) ORDER BY c.created_at ASC`
	rows, err := persistence.Conn(ctx, r.pool).Query(ctx, query, ticketID, includeInternal)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Comment{}
	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *comment)
	}
	return result, rows.Err()
}

func scanComment(row pgx.Row) (*domain.Comment, error) {
	var (
		comment           domain.Comment
		name, email, role string
	)
	if err := row.Scan(
		&comment.ID,
		&comment.TicketID,
		&comment.UserID,
		&comment.Message,
		&comment.IsInternal,
		&comment.CreatedAt,
		&name,
		&email,
		&role,
	); err != nil {
		return nil, err
	}
	comment.User = &domain.UserSummary{ID: comment.UserID, Name: name, Email: email, Role: domain.Role(role)}
	return &comment, nil
}
