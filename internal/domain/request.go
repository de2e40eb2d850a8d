package domain

import (
	"strings"
	"time"
)

// RequestStatus tells whether a request still accepts applications.
type RequestStatus string

const (
	RequestStatusOpen   RequestStatus = "OPEN"
	RequestStatusClosed RequestStatus = "CLOSED"
)

// ParseRequestStatus normalises a request status string.
func ParseRequestStatus(raw string) (RequestStatus, bool) {
	switch RequestStatus(strings.ToUpper(strings.TrimSpace(raw))) {
	case RequestStatusOpen:
		return RequestStatusOpen, true
	case RequestStatusClosed:
		return RequestStatusClosed, true
	}
	return "", false
}

// Request is an agent-published opening that users can apply to.
type Request struct {
	ID          string
	Title       string
	Description string
	Status      RequestStatus
	CreatedByID string
	CreatedAt   time.Time
	UpdatedAt   time.Time

	CreatedBy        *UserSummary
	ApplicationCount int
	Applications     []Application
}

// ApplicationStatus tracks the review decision.
type ApplicationStatus string

const (
	ApplicationStatusPending  ApplicationStatus = "PENDING"
	ApplicationStatusApproved ApplicationStatus = "APPROVED"
	ApplicationStatusRejected ApplicationStatus = "REJECTED"
)

// ParseDecision accepts only the two terminal decisions.
func ParseDecision(raw string) (ApplicationStatus, bool) {
	switch ApplicationStatus(strings.ToUpper(strings.TrimSpace(raw))) {
	case ApplicationStatusApproved:
		return ApplicationStatusApproved, true
	case ApplicationStatusRejected:
		return ApplicationStatusRejected, true
	}
	return "", false
}

// Application is a user's bid on a request; one per (user, request).
type Application struct {
	ID          string
	RequestID   string
	UserID      string
	Status      ApplicationStatus
	DecidedByID *string
	DecidedAt   *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time

	User *UserSummary
}

// IsDecided reports whether a reviewer already approved or rejected it.
func (a *Application) IsDecided() bool {
	return a.Status != ApplicationStatusPending
}
