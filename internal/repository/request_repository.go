package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deskflow/helpdesk/internal/domain"
	"github.com/deskflow/helpdesk/internal/persistence"
)

// RequestRepository manages agent-published requests.
type RequestRepository interface {
	Create(ctx context.Context, request *domain.Request) error
	Update(ctx context.Context, request *domain.Request) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Request, error)
	List(ctx context.Context, status *domain.RequestStatus) ([]domain.Request, error)
}

type requestRepository struct {
	pool *pgxpool.Pool
}

// NewRequestRepository builds repository.
func NewRequestRepository(pool *pgxpool.Pool) RequestRepository {
	return &requestRepository{pool: pool}
}

const requestSelect = `
        SELECT r.id, r.title, r.description, r.status, r.created_by_id, r.created_at, r.updated_at,
               u.name, u.email, u.role,
               (SELECT COUNT(*) FROM applications a WHERE a.request_id = r.id)
        FROM requests r
        JOIN users u ON u.id = r.created_by_id`

func (r *requestRepository) Create(ctx context.Context, request *domain.Request) error {
	const query = `
        INSERT INTO requests (title, description, status, created_by_id)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at, updated_at`
	return persistence.Conn(ctx, r.pool).QueryRow(ctx, query,
		request.Title,
		request.Description,
		string(request.Status),
		request.CreatedByID,
	).Scan(&request.ID, &request.CreatedAt, &request.UpdatedAt)
}

func (r *requestRepository) Update(ctx context.Context, request *domain.Request) error {
	if !validID(request.ID) {
		return pgx.ErrNoRows
	}
	const query = `
        UPDATE requests SET title=$1, description=$2, status=$3, updated_at=NOW()
        WHERE id=$4
        RETURNING updated_at`
	return persistence.Conn(ctx, r.pool).QueryRow(ctx, query,
		request.Title,
		request.Description,
		string(request.Status),
		request.ID,
	).Scan(&request.UpdatedAt)
}

func (r *requestRepository) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return pgx.ErrNoRows
	}
	cmd, err := persistence.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM requests WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *requestRepository) GetByID(ctx context.Context, id string) (*domain.Request, error) {
	if !validID(id) {
		return nil, pgx.ErrNoRows
	}
	return scanRequest(persistence.Conn(ctx, r.pool).QueryRow(ctx, requestSelect+` WHERE r.id=$1`, id))
}

func (r *requestRepository) List(ctx context.Context, status *domain.RequestStatus) ([]domain.Request, error) {
	query := requestSelect
	args := []any{}
	if status != nil {
		args = append(args, string(*status))
		query += fmt.Sprintf(" WHERE r.status=$%d", len(args))
	}
	query += " ORDER BY r.created_at DESC"

	rows, err := persistence.Conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Request{}
	for rows.Next() {
		request, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *request)
	}
	return result, rows.Err()
}

func scanRequest(row pgx.Row) (*domain.Request, error) {
	var (
		request                   domain.Request
		status, name, email, role string
	)
	if err := row.Scan(
		&request.ID,
		&request.Title,
		&request.Description,
		&status,
		&request.CreatedByID,
		&request.CreatedAt,
		&request.UpdatedAt,
		&name,
		&email,
		&role,
		&request.ApplicationCount,
	); err != nil {
		return nil, err
	}
	request.Status = domain.RequestStatus(status)
	request.CreatedBy = &domain.UserSummary{ID: request.CreatedByID, Name: name, Email: email, Role: domain.Role(role)}
	return &request, nil
}
