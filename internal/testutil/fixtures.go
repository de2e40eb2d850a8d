package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/deskflow/helpdesk/internal/auth"
	"github.com/deskflow/helpdesk/internal/domain"
	"github.com/deskflow/helpdesk/internal/policy"
)

// Fixture passwords are hashed with the cheapest cost to keep tests fast.
const FixtureBcryptCost = bcrypt.MinCost

// AddUser inserts an account with the given password.
func (s *Store) AddUser(t testing.TB, name, email, password string, role domain.Role) *domain.User {
	t.Helper()
	hash, err := auth.HashPassword(password, FixtureBcryptCost)
	require.NoError(t, err)
	user := &domain.User{Name: name, Email: email, PasswordHash: hash, Role: role}
	require.NoError(t, s.Users().Create(context.Background(), user))
	return user
}

// AddTicket inserts a ticket directly, bypassing the service.
func (s *Store) AddTicket(t testing.TB, owner *domain.User, title string, priority domain.TicketPriority) *domain.Ticket {
	t.Helper()
	last, err := s.Tickets().LastNumber(context.Background())
	require.NoError(t, err)
	ticket := &domain.Ticket{
		TicketNumber: domain.FormatTicketNumber(last + 1),
		Title:        title,
		Description:  title + " details",
		Status:       domain.TicketStatusOpen,
		Priority:     priority,
		Source:       domain.DefaultTicketSource,
		CreatedByID:  owner.ID,
	}
	require.NoError(t, s.Tickets().Create(context.Background(), ticket))
	return ticket
}

// Caller returns the policy identity of user.
func Caller(user *domain.User) policy.Caller {
	return policy.CallerFromUser(user)
}
