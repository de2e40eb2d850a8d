package dto

import (
	"time"

	"github.com/deskflow/helpdesk/internal/domain"
)

// RequestPayload is used for both create and edit.
type RequestPayload struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
}

// ApplyRequest payload.
type ApplyRequest struct {
	RequestID string `json:"requestId"`
}

// DecideApplicationRequest payload.
type DecideApplicationRequest struct {
	Status string `json:"status"`
}

// ApplicationResponse is one application.
type ApplicationResponse struct {
	ID          string                   `json:"id"`
	RequestID   string                   `json:"requestId"`
	UserID      string                   `json:"userId"`
	Status      domain.ApplicationStatus `json:"status"`
	DecidedByID *string                  `json:"decidedById"`
	DecidedAt   *time.Time               `json:"decidedAt"`
	CreatedAt   time.Time                `json:"createdAt"`
	UpdatedAt   time.Time                `json:"updatedAt"`
	User        *UserSummary             `json:"user,omitempty"`
}

// RequestResponse is a request with the applications the caller may see.
type RequestResponse struct {
	ID               string                `json:"id"`
	Title            string                `json:"title"`
	Description      string                `json:"description"`
	Status           domain.RequestStatus  `json:"status"`
	CreatedByID      string                `json:"createdById"`
	CreatedAt        time.Time             `json:"createdAt"`
	UpdatedAt        time.Time             `json:"updatedAt"`
	CreatedBy        *UserSummary          `json:"createdBy"`
	ApplicationCount int                   `json:"applicationCount"`
	Applications     []ApplicationResponse `json:"applications"`
}

// NewApplicationResponse maps an application.
func NewApplicationResponse(a *domain.Application) ApplicationResponse {
	return ApplicationResponse{
		ID:          a.ID,
		RequestID:   a.RequestID,
		UserID:      a.UserID,
		Status:      a.Status,
		DecidedByID: a.DecidedByID,
		DecidedAt:   a.DecidedAt,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
		User:        NewUserSummary(a.User),
	}
}

// NewApplicationList maps a list.
func NewApplicationList(apps []domain.Application) []ApplicationResponse {
	items := make([]ApplicationResponse, 0, len(apps))
	for i := range apps {
		items = append(items, NewApplicationResponse(&apps[i]))
	}
	return items
}

// NewRequestResponse maps a request.
func NewRequestResponse(r *domain.Request) RequestResponse {
	return RequestResponse{
		ID:               r.ID,
		Title:            r.Title,
		Description:      r.Description,
		Status:           r.Status,
		CreatedByID:      r.CreatedByID,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
		CreatedBy:        NewUserSummary(r.CreatedBy),
		ApplicationCount: r.ApplicationCount,
		Applications:     NewApplicationList(r.Applications),
	}
}
