package service

import (
	"context"
	"errors"
	"strings"

	"github.com/deskflow/helpdesk/internal/domain"
	"github.com/deskflow/helpdesk/internal/policy"
	"github.com/deskflow/helpdesk/internal/repository"
	apperrors "github.com/deskflow/helpdesk/pkg/util/errorutil"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

// UserService backs the agent-only user directory.
type UserService struct {
	users repository.UserRepository
}

// NewUserService constructs the service.
func NewUserService(users repository.UserRepository) *UserService {
	return &UserService{users: users}
}

// UserPage is one page of the directory.
type UserPage struct {
	Items []domain.User
	Total int
	Page  int
	Limit int
	Pages int
}

// UserUpdateInput lists the fields an agent may change on an account.
type UserUpdateInput struct {
	Name       *string
	Role       *string
	ClientType NullableString
}

// Me returns the caller's own account.
func (s *UserService) Me(ctx context.Context, caller policy.Caller) (*domain.User, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, caller.ID)
	if err != nil {
		return nil, lookupErr(err, "user", caller.ID)
	}
	return user, nil
}

// List pages through accounts, newest first. page defaults to 1 and limit
// to 10, capped at 100.
func (s *UserService) List(ctx context.Context, caller policy.Caller, page, limit int) (*UserPage, error) {
	if err := s.authorize(caller); err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	users, total, err := s.users.List(ctx, limit, (page-1)*limit)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return &UserPage{
		Items: users,
		Total: total,
		Page:  page,
		Limit: limit,
		Pages: (total + limit - 1) / limit,
	}, nil
}

// Get returns one account.
func (s *UserService) Get(ctx context.Context, caller policy.Caller, id string) (*domain.User, error) {
	if err := s.authorize(caller); err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "user", id)
	}
	return user, nil
}

// Update changes name, role or client type.
func (s *UserService) Update(ctx context.Context, caller policy.Caller, id string, input UserUpdateInput) (*domain.User, error) {
	if err := s.authorize(caller); err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "user", id)
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.NewValidationError("name cannot be empty", map[string]any{"name": "required"})
		}
		user.Name = name
	}
	if input.Role != nil {
		role, ok := domain.ParseRole(*input.Role)
		if !ok {
			return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": *input.Role})
		}
		user.Role = role
	}
	if input.ClientType.Set {
		user.ClientType = nil
		if raw := trimmedOrNil(input.ClientType.Value); raw != nil {
			ct, ok := domain.ParseClientType(*raw)
			if !ok {
				return nil, apperrors.NewValidationError("invalid client type", map[string]any{"clientType": *raw})
			}
			user.ClientType = &ct
		}
	}

	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflict("email already in use", nil)
		}
		return nil, lookupErr(err, "user", id)
	}
	return user, nil
}

// Delete removes a client account. Agents and the caller's own account are protected.
func (s *UserService) Delete(ctx context.Context, caller policy.Caller, id string) error {
	if err := s.authorize(caller); err != nil {
		return err
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return lookupErr(err, "user", id)
	}
	if user.IsAgent() {
		return apperrors.NewForbidden("cannot delete agent users")
	}
	if user.ID == caller.ID {
		return apperrors.NewForbidden("cannot delete yourself")
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return lookupErr(err, "user", id)
	}
	return nil
}

func (s *UserService) authorize(caller policy.Caller) error {
	return policy.Authorize(caller, policy.ActionUserDirectory, policy.Resource{})
}
