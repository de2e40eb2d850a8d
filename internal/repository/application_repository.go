package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deskflow/helpdesk/internal/domain"
	"github.com/deskflow/helpdesk/internal/persistence"
)

// ApplicationRepository stores user applications to requests.
type ApplicationRepository interface {
	Create(ctx context.Context, application *domain.Application) error
	Decide(ctx context.Context, application *domain.Application) (bool, error)
	GetByID(ctx context.Context, id string) (*domain.Application, error)
	ListByRequest(ctx context.Context, requestID string) ([]domain.Application, error)
	ListByUser(ctx context.Context, userID string, requestID *string) ([]domain.Application, error)
}

type applicationRepository struct {
	pool *pgxpool.Pool
}

// NewApplicationRepository builds repository.
func NewApplicationRepository(pool *pgxpool.Pool) ApplicationRepository {
	return &applicationRepository{pool: pool}
}

const applicationSelect = `
        SELECT a.id, a.request_id, a.user_id, a.status, a.decided_by_id, a.decided_at, a.created_at, a.updated_at,
               u.name, u.email, u.role
        FROM applications a
        JOIN users u ON u.id = a.user_id`

// Create returns ErrDuplicate when the user already applied to the request.
func (r *applicationRepository) Create(ctx context.Context, application *domain.Application) error {
	const query = `
        INSERT INTO applications (request_id, user_id, status)
        VALUES ($1,$2,$3)
        RETURNING id, created_at, updated_at`
	err := persistence.Conn(ctx, r.pool).QueryRow(ctx, query,
		application.RequestID,
		application.UserID,
		string(application.Status),
	).Scan(&application.ID, &application.CreatedAt, &application.UpdatedAt)
	return translate(err)
}

// Decide records the decision only while the application is still pending.
// It reports false when another decision got there first.
func (r *applicationRepository) Decide(ctx context.Context, application *domain.Application) (bool, error) {
	if !validID(application.ID) {
		return false, pgx.ErrNoRows
	}
	const query = `
        UPDATE applications SET status=$1, decided_by_id=$2, decided_at=$3, updated_at=NOW()
        WHERE id=$4 AND status='PENDING'
        RETURNING updated_at`
	err := persistence.Conn(ctx, r.pool).QueryRow(ctx, query,
		string(application.Status),
		application.DecidedByID,
		application.DecidedAt,
		application.ID,
	).Scan(&application.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (r *applicationRepository) GetByID(ctx context.Context, id string) (*domain.Application, error) {
	if !validID(id) {
		return nil, pgx.ErrNoRows
	}
	return scanApplication(persistence.Conn(ctx, r.pool).QueryRow(ctx, applicationSelect+` WHERE a.id=$1`, id))
}

func (r *applicationRepository) ListByRequest(ctx context.Context, requestID string) ([]domain.Application, error) {
	if !validID(requestID) {
		return []domain.Application{}, nil
	}
	return r.list(ctx, applicationSelect+` WHERE a.request_id=$1 ORDER BY a.created_at ASC`, requestID)
}

func (r *applicationRepository) ListByUser(ctx context.Context, userID string, requestID *string) ([]domain.Application, error) {
	if !validID(userID) || (requestID != nil && !validID(*requestID)) {
		return []domain.Application{}, nil
	}
	if requestID != nil {
		return r.list(ctx, applicationSelect+` WHERE a.user_id=$1 AND a.request_id=$2 ORDER BY a.created_at DESC`, userID, *requestID)
	}
	return r.list(ctx, applicationSelect+` WHERE a.user_id=$1 ORDER BY a.created_at DESC`, userID)
}

func (r *applicationRepository) list(ctx context.Context, query string, args ...any) ([]domain.Application, error) {
	rows, err := persistence.Conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Application{}
	for rows.Next() {
		application, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *application)
	}
	return result, rows.Err()
}

func scanApplication(row pgx.Row) (*domain.Application, error) {
	var (
		application               domain.Application
		status, name, email, role string
	)
	if err := row.Scan(
		&application.ID,
		&application.RequestID,
		&application.UserID,
		&status,
		&application.DecidedByID,
		&application.DecidedAt,
		&application.CreatedAt,
		&application.UpdatedAt,
		&name,
		&email,
		&role,
	); err != nil {
		return nil, err
	}
	application.Status = domain.ApplicationStatus(status)
	application.User = &domain.UserSummary{ID: application.UserID, Name: name, Email: email, Role: domain.Role(role)}
	return &application, nil
}
