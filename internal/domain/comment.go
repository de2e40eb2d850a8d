package domain

import "time"

// Comment is a message in a ticket thread. Internal comments are agent-only notes.
type Comment struct {
	ID         string
	TicketID   string
	UserID     string
	Message    string
	IsInternal bool
	CreatedAt  time.Time

	User *UserSummary
}
