package dto

import (
	"encoding/json"
	"time"

	"github.com/deskflow/helpdesk/internal/domain"
)

// OptionalString tells an absent field apart from an explicit null.
type OptionalString struct {
	Set   bool
	Value *string
}

// UnmarshalJSON marks the field as present; null clears it.
func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Priority    *string `json:"priority"`
	Category    *string `json:"category"`
	Source      *string `json:"source"`
}

// UpdateTicketRequest is a partial update. category and assignedToId accept null.
type UpdateTicketRequest struct {
	Title        *string        `json:"title"`
	Description  *string        `json:"description"`
	Status       *string        `json:"status"`
	Priority     *string        `json:"priority"`
	Category     OptionalString `json:"category"`
	AssignedToID OptionalString `json:"assignedToId"`
}

// CreateCommentRequest payload.
type CreateCommentRequest struct {
	Message    string `json:"message"`
	IsInternal bool   `json:"isInternal"`
}

// DeleteCommentRequest payload.
type DeleteCommentRequest struct {
	CommentID string `json:"commentId"`
}

// UserSummary is the public projection embedded in other resources.
type UserSummary struct {
	ID    string      `json:"id"`
	Name  string      `json:"name"`
	Email string      `json:"email"`
	Role  domain.Role `json:"role"`
}

// TicketResponse is a ticket as returned by list and mutation endpoints.
type TicketResponse struct {
	ID              string                `json:"id"`
	TicketNumber    string                `json:"ticketNumber"`
	Title           string                `json:"title"`
	Description     string                `json:"description"`
	Status          domain.TicketStatus   `json:"status"`
	Priority        domain.TicketPriority `json:"priority"`
	Category        *string               `json:"category"`
	Source          string                `json:"source"`
	CreatedByID     string                `json:"createdById"`
	AssignedToID    *string               `json:"assignedToId"`
	FirstResponseAt *time.Time            `json:"firstResponseAt"`
	ResolvedAt      *time.Time            `json:"resolvedAt"`
	ClosedAt        *time.Time            `json:"closedAt"`
	CreatedAt       time.Time             `json:"createdAt"`
	UpdatedAt       time.Time             `json:"updatedAt"`
	CreatedBy       *UserSummary          `json:"createdBy"`
	AssignedTo      *UserSummary          `json:"assignedTo"`
	CommentCount    int                   `json:"commentCount"`
}

// CommentResponse is one message in the thread.
type CommentResponse struct {
	ID         string       `json:"id"`
	TicketID   string       `json:"ticketId"`
	UserID     string       `json:"userId"`
	Message    string       `json:"message"`
	IsInternal bool         `json:"isInternal"`
	CreatedAt  time.Time    `json:"createdAt"`
	User       *UserSummary `json:"user"`
}

// HistoryResponse is an audit entry.
type HistoryResponse struct {
	ID          string             `json:"id"`
	Field       domain.TicketField `json:"field"`
	OldValue    *string            `json:"oldValue"`
	NewValue    *string            `json:"newValue"`
	ChangedByID string             `json:"changedById"`
	CreatedAt   time.Time          `json:"createdAt"`
}

// TicketDetailResponse is a ticket with its thread. History is sent to agents only.
type TicketDetailResponse struct {
	TicketResponse
	Comments []CommentResponse `json:"comments"`
	History  []HistoryResponse `json:"history,omitempty"`
}

// StatsResponse is the dashboard payload.
type StatsResponse struct {
	ByStatus struct {
		Open       int `json:"open"`
		InProgress int `json:"inProgress"`
		Resolved   int `json:"resolved"`
		Closed     int `json:"closed"`
		Total      int `json:"total"`
	} `json:"byStatus"`
	ByPriority struct {
		Urgent int `json:"urgent"`
		High   int `json:"high"`
		Medium int `json:"medium"`
		Low    int `json:"low"`
	} `json:"byPriority"`
	Metrics struct {
		Unassigned        int    `json:"unassigned"`
		NoResponse        int    `json:"noResponse"`
		AvgResponseTime   *int64 `json:"avgResponseTime"`
		AvgResolutionTime *int64 `json:"avgResolutionTime"`
	} `json:"metrics"`
}

// NewUserSummary maps the embedded projection.
func NewUserSummary(u *domain.UserSummary) *UserSummary {
	if u == nil {
		return nil
	}
	return &UserSummary{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

// NewTicketResponse maps a ticket.
func NewTicketResponse(t *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:              t.ID,
		TicketNumber:    t.TicketNumber,
		Title:           t.Title,
		Description:     t.Description,
		Status:          t.Status,
		Priority:        t.Priority,
		Category:        t.Category,
		Source:          t.Source,
		CreatedByID:     t.CreatedByID,
		AssignedToID:    t.AssignedToID,
		FirstResponseAt: t.FirstResponseAt,
		ResolvedAt:      t.ResolvedAt,
		ClosedAt:        t.ClosedAt,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
		CreatedBy:       NewUserSummary(t.CreatedBy),
		AssignedTo:      NewUserSummary(t.AssignedTo),
		CommentCount:    t.CommentCount,
	}
}

// NewTicketList maps a list.
func NewTicketList(tickets []domain.Ticket) []TicketResponse {
	items := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, NewTicketResponse(&tickets[i]))
	}
	return items
}

// NewCommentResponse maps a comment.
func NewCommentResponse(c *domain.Comment) CommentResponse {
	return CommentResponse{
		ID:         c.ID,
		TicketID:   c.TicketID,
		UserID:     c.UserID,
		Message:    c.Message,
		IsInternal: c.IsInternal,
		CreatedAt:  c.CreatedAt,
		User:       NewUserSummary(c.User),
	}
}

// NewTicketDetailResponse maps a ticket with its thread.
func NewTicketDetailResponse(t *domain.Ticket, comments []domain.Comment, history []domain.TicketHistory) TicketDetailResponse {
	resp := TicketDetailResponse{
		TicketResponse: NewTicketResponse(t),
		Comments:       make([]CommentResponse, 0, len(comments)),
	}
	for i := range comments {
		resp.Comments = append(resp.Comments, NewCommentResponse(&comments[i]))
	}
	for _, h := range history {
		resp.History = append(resp.History, HistoryResponse{
			ID:          h.ID,
			Field:       h.Field,
			OldValue:    h.OldValue,
			NewValue:    h.NewValue,
			ChangedByID: h.ChangedByID,
			CreatedAt:   h.CreatedAt,
		})
	}
	return resp
}

// NewStatsResponse nests the flat stats into the dashboard shape.
func NewStatsResponse(s *domain.TicketStats) StatsResponse {
	var resp StatsResponse
	resp.ByStatus.Open = s.Open
	resp.ByStatus.InProgress = s.InProgress
	resp.ByStatus.Resolved = s.Resolved
	resp.ByStatus.Closed = s.Closed
	resp.ByStatus.Total = s.Total
	resp.ByPriority.Urgent = s.Urgent
	resp.ByPriority.High = s.High
	resp.ByPriority.Medium = s.Medium
	resp.ByPriority.Low = s.Low
	resp.Metrics.Unassigned = s.Unassigned
	resp.Metrics.NoResponse = s.NoResponse
	resp.Metrics.AvgResponseTime = s.AvgResponseTime
	resp.Metrics.AvgResolutionTime = s.AvgResolutionTime
	return resp
}
