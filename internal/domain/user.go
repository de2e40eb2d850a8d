package domain

import (
	"strings"
	"time"
)

// Role is the permission tier of a user.
type Role string

const (
	RoleAgent  Role = "AGENT"
	RoleClient Role = "CLIENT"
)

// ParseRole normalises a role string. The legacy value USER maps to CLIENT.
func ParseRole(raw string) (Role, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case string(RoleAgent):
		return RoleAgent, true
	case string(RoleClient), "USER":
		return RoleClient, true
	}
	return "", false
}

// ClientType distinguishes staff-internal requesters from customers.
type ClientType string

const (
	ClientTypeInternal ClientType = "INTERNAL"
	ClientTypeExternal ClientType = "EXTERNAL"
)

// ParseClientType normalises a client type string.
func ParseClientType(raw string) (ClientType, bool) {
	switch ClientType(strings.ToUpper(strings.TrimSpace(raw))) {
	case ClientTypeInternal:
		return ClientTypeInternal, true
	case ClientTypeExternal:
		return ClientTypeExternal, true
	}
	return "", false
}

// User is an account that can sign in, either a client or an agent.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Role         Role
	ClientType   *ClientType
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsAgent reports whether the user holds the agent role.
func (u *User) IsAgent() bool {
	return u != nil && u.Role == RoleAgent
}

// Summary returns the public projection embedded in tickets and comments.
func (u *User) Summary() *UserSummary {
	if u == nil {
		return nil
	}
	return &UserSummary{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

// UserSummary is the public projection of a user attached to other entities.
type UserSummary struct {
	ID    string
	Name  string
	Email string
	Role  Role
}
