package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/deskflow/helpdesk/internal/domain"
	"github.com/deskflow/helpdesk/internal/events"
	"github.com/deskflow/helpdesk/internal/policy"
	"github.com/deskflow/helpdesk/internal/repository"
	apperrors "github.com/deskflow/helpdesk/pkg/util/errorutil"
)

// RequestService runs the request/application workflow.
type RequestService struct {
	requests     repository.RequestRepository
	applications repository.ApplicationRepository
	dispatcher   events.Dispatcher
	now          func() time.Time
}

// RequestDependencies bundles repositories for request service.
type RequestDependencies struct {
	RequestRepo     repository.RequestRepository
	ApplicationRepo repository.ApplicationRepository
	Dispatcher      events.Dispatcher
	Now             func() time.Time
}

// NewRequestService constructs the service.
func NewRequestService(deps RequestDependencies) *RequestService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &RequestService{
		requests:     deps.RequestRepo,
		applications: deps.ApplicationRepo,
		dispatcher:   deps.Dispatcher,
		now:          now,
	}
}

// RequestInput is the create/edit payload. Nil fields are left unchanged on edit.
type RequestInput struct {
	Title       *string
	Description *string
	Status      *string
}

// CreateRequest publishes a new open request.
func (s *RequestService) CreateRequest(ctx context.Context, caller policy.Caller, input RequestInput) (*domain.Request, error) {
	if err := policy.Authorize(caller, policy.ActionRequestManage, policy.Resource{}); err != nil {
		return nil, err
	}
	title := trimmedOrNil(input.Title)
	description := trimmedOrNil(input.Description)
	if title == nil || description == nil {
		return nil, apperrors.NewValidationError("title and description are required", nil)
	}

	request := &domain.Request{
		Title:       *title,
		Description: *description,
		Status:      domain.RequestStatusOpen,
		CreatedByID: caller.ID,
	}
	if err := s.requests.Create(ctx, request); err != nil {
		return nil, apperrors.MapError(err)
	}
	return s.loadRequest(ctx, request.ID)
}

// UpdateRequest edits title, description or status.
func (s *RequestService) UpdateRequest(ctx context.Context, caller policy.Caller, id string, input RequestInput) (*domain.Request, error) {
	if err := policy.Authorize(caller, policy.ActionRequestManage, policy.Resource{}); err != nil {
		return nil, err
	}
	if input.Title == nil && input.Description == nil && input.Status == nil {
		return nil, apperrors.NewValidationError("no fields to update", nil)
	}
	request, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "request", id)
	}

	if input.Title != nil {
		title := trimmedOrNil(input.Title)
		if title == nil {
			return nil, apperrors.NewValidationError("title cannot be empty", nil)
		}
		request.Title = *title
	}
	if input.Description != nil {
		description := trimmedOrNil(input.Description)
		if description == nil {
			return nil, apperrors.NewValidationError("description cannot be empty", nil)
		}
		request.Description = *description
	}
	if input.Status != nil {
		status, ok := domain.ParseRequestStatus(*input.Status)
		if !ok {
			return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": *input.Status})
		}
		request.Status = status
	}

	if err := s.requests.Update(ctx, request); err != nil {
		return nil, lookupErr(err, "request", id)
	}
	return s.loadRequest(ctx, id)
}

// DeleteRequest removes a request and its applications.
func (s *RequestService) DeleteRequest(ctx context.Context, caller policy.Caller, id string) error {
	if err := policy.Authorize(caller, policy.ActionRequestManage, policy.Resource{}); err != nil {
		return err
	}
	if err := s.requests.Delete(ctx, id); err != nil {
		return lookupErr(err, "request", id)
	}
	return nil
}

// ListRequests returns requests, optionally by status. Agents get the
// application count; other callers get their own application attached.
func (s *RequestService) ListRequests(ctx context.Context, caller policy.Caller, status string) ([]domain.Request, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	var filter *domain.RequestStatus
	if raw := strings.TrimSpace(status); raw != "" {
		parsed, ok := domain.ParseRequestStatus(raw)
		if !ok {
			return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": raw})
		}
		filter = &parsed
	}

	requests, err := s.requests.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if caller.IsAgent() {
		return requests, nil
	}

	own, err := s.applications.ListByUser(ctx, caller.ID, nil)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	byRequest := make(map[string]domain.Application, len(own))
	for _, app := range own {
		byRequest[app.RequestID] = app
	}
	for i := range requests {
		requests[i].ApplicationCount = 0
		requests[i].Applications = nil
		if app, ok := byRequest[requests[i].ID]; ok {
			requests[i].Applications = []domain.Application{app}
		}
	}
	return requests, nil
}

// GetRequest returns one request with the applications the caller may see.
func (s *RequestService) GetRequest(ctx context.Context, caller policy.Caller, id string) (*domain.Request, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	request, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "request", id)
	}

	var apps []domain.Application
	if caller.IsAgent() {
		apps, err = s.applications.ListByRequest(ctx, id)
	} else {
		request.ApplicationCount = 0
		apps, err = s.applications.ListByUser(ctx, caller.ID, &id)
	}
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	request.Applications = apps
	return request, nil
}

// Apply records the caller's application to an open request.
func (s *RequestService) Apply(ctx context.Context, caller policy.Caller, requestID string) (*domain.Application, error) {
	if err := policy.Authorize(caller, policy.ActionApplicationCreate, policy.Resource{}); err != nil {
		return nil, err
	}
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return nil, apperrors.NewValidationError("requestId is required", map[string]any{"requestId": "required"})
	}
	request, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, lookupErr(err, "request", requestID)
	}
	if request.Status != domain.RequestStatusOpen {
		return nil, apperrors.NewValidationCode("REQUEST_CLOSED", "request is not accepting applications",
			map[string]any{"requestId": requestID})
	}

	app := &domain.Application{
		RequestID: request.ID,
		UserID:    caller.ID,
		Status:    domain.ApplicationStatusPending,
	}
	if err := s.applications.Create(ctx, app); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflict("you already applied to this request", map[string]any{"requestId": requestID})
		}
		return nil, apperrors.MapError(err)
	}

	created, err := s.applications.GetByID(ctx, app.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publish(ctx, events.EventApplicationSubmitted, request.ID, caller, created)
	return created, nil
}

// ListApplications lists applicants of a request for agents, or the
// caller's own applications otherwise.
func (s *RequestService) ListApplications(ctx context.Context, caller policy.Caller, requestID string) ([]domain.Application, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	requestID = strings.TrimSpace(requestID)

	if caller.IsAgent() {
		if requestID == "" {
			return nil, apperrors.NewValidationError("requestId is required", map[string]any{"requestId": "required"})
		}
		if _, err := s.requests.GetByID(ctx, requestID); err != nil {
			return nil, lookupErr(err, "request", requestID)
		}
		apps, err := s.applications.ListByRequest(ctx, requestID)
		return apps, apperrors.MapError(err)
	}

	var scope *string
	if requestID != "" {
		scope = &requestID
	}
	apps, err := s.applications.ListByUser(ctx, caller.ID, scope)
	return apps, apperrors.MapError(err)
}

// Decide approves or rejects an application. Repeating the recorded
// decision is a no-op; changing it is a conflict.
func (s *RequestService) Decide(ctx context.Context, caller policy.Caller, applicationID, decision string) (*domain.Application, error) {
	if err := policy.Authorize(caller, policy.ActionApplicationReview, policy.Resource{}); err != nil {
		return nil, err
	}
	status, ok := domain.ParseDecision(decision)
	if !ok {
		return nil, apperrors.NewValidationError("status must be APPROVED or REJECTED", map[string]any{"status": decision})
	}

	app, err := s.applications.GetByID(ctx, applicationID)
	if err != nil {
		return nil, lookupErr(err, "application", applicationID)
	}
	if app.IsDecided() {
		return settledDecision(app, status)
	}

	now := s.now()
	app.Status = status
	app.DecidedByID = &caller.ID
	app.DecidedAt = &now
	written, err := s.applications.Decide(ctx, app)
	if err != nil {
		return nil, lookupErr(err, "application", applicationID)
	}
	if !written {
		current, err := s.applications.GetByID(ctx, applicationID)
		if err != nil {
			return nil, lookupErr(err, "application", applicationID)
		}
		return settledDecision(current, status)
	}

	s.publish(ctx, events.EventApplicationDecided, app.RequestID, caller, app)
	return app, nil
}

// settledDecision answers a decision on an application that is no longer pending.
func settledDecision(app *domain.Application, status domain.ApplicationStatus) (*domain.Application, error) {
	if app.Status == status {
		return app, nil
	}
	return nil, apperrors.NewConflict("application already decided", map[string]any{"status": string(app.Status)})
}

func (s *RequestService) loadRequest(ctx context.Context, id string) (*domain.Request, error) {
	request, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return request, nil
}

func (s *RequestService) publish(ctx context.Context, eventType events.EventType, requestID string, caller policy.Caller, app *domain.Application) {
	if s.dispatcher == nil {
		return
	}
	actor := events.Actor{UserID: caller.ID, Role: caller.Role}
	payload := events.ApplicationPayload{ApplicationID: app.ID, ApplicantID: app.UserID, Status: app.Status}
	_ = s.dispatcher.Publish(ctx, events.New(eventType, requestID, actor, s.now(), payload))
}
