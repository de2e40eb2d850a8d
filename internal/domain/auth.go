package domain

import "time"

// Session is a server-side login record; revoking it logs the user out.
type Session struct {
	ID        string
	UserID    string
	Role      Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}
