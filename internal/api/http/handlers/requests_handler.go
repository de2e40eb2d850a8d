package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/deskflow/helpdesk/internal/api/dto"
	"github.com/deskflow/helpdesk/internal/auth"
	"github.com/deskflow/helpdesk/internal/service"
	apperrors "github.com/deskflow/helpdesk/pkg/util/errorutil"
)

// RequestsHandler serves requests and the applications made to them.
type RequestsHandler struct {
	requests *service.RequestService
}

// NewRequestsHandler constructs handler.
func NewRequestsHandler(requestService *service.RequestService) *RequestsHandler {
	return &RequestsHandler{requests: requestService}
}

// ListRequests GET /requests?status=.
func (h *RequestsHandler) ListRequests(c *fiber.Ctx) error {
	requests, err := h.requests.ListRequests(c.UserContext(), auth.CallerFromContext(c), c.Query("status"))
	if err != nil {
		return err
	}
	items := make([]dto.RequestResponse, 0, len(requests))
	for i := range requests {
		items = append(items, dto.NewRequestResponse(&requests[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// CreateRequest POST /requests.
func (h *RequestsHandler) CreateRequest(c *fiber.Ctx) error {
	var req dto.RequestPayload
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	created, err := h.requests.CreateRequest(c.UserContext(), auth.CallerFromContext(c), requestInput(req))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewRequestResponse(created)})
}

// GetRequest GET /requests/:id.
func (h *RequestsHandler) GetRequest(c *fiber.Ctx) error {
	request, err := h.requests.GetRequest(c.UserContext(), auth.CallerFromContext(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewRequestResponse(request)})
}

// UpdateRequest PATCH /requests/:id.
func (h *RequestsHandler) UpdateRequest(c *fiber.Ctx) error {
	var req dto.RequestPayload
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	updated, err := h.requests.UpdateRequest(c.UserContext(), auth.CallerFromContext(c), c.Params("id"), requestInput(req))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewRequestResponse(updated)})
}

// DeleteRequest DELETE /requests/:id.
func (h *RequestsHandler) DeleteRequest(c *fiber.Ctx) error {
	if err := h.requests.DeleteRequest(c.UserContext(), auth.CallerFromContext(c), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// ListApplications GET /applications?requestId=.
func (h *RequestsHandler) ListApplications(c *fiber.Ctx) error {
	apps, err := h.requests.ListApplications(c.UserContext(), auth.CallerFromContext(c), c.Query("requestId"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewApplicationList(apps)})
}

// Apply POST /applications.
func (h *RequestsHandler) Apply(c *fiber.Ctx) error {
	var req dto.ApplyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	app, err := h.requests.Apply(c.UserContext(), auth.CallerFromContext(c), req.RequestID)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewApplicationResponse(app)})
}

// Decide PATCH /applications/:id.
func (h *RequestsHandler) Decide(c *fiber.Ctx) error {
	var req dto.DecideApplicationRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	app, err := h.requests.Decide(c.UserContext(), auth.CallerFromContext(c), c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewApplicationResponse(app)})
}

func requestInput(req dto.RequestPayload) service.RequestInput {
	return service.RequestInput{Title: req.Title, Description: req.Description, Status: req.Status}
}
