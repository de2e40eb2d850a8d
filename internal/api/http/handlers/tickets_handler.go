package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/deskflow/helpdesk/internal/api/dto"
	"github.com/deskflow/helpdesk/internal/auth"
	"github.com/deskflow/helpdesk/internal/service"
	apperrors "github.com/deskflow/helpdesk/pkg/util/errorutil"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// TicketsHandler manages ticket, comment, stats and export endpoints.
type TicketsHandler struct {
	tickets *service.TicketService
	stats   *service.StatsService
	export  *service.ExportService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(tickets *service.TicketService, stats *service.StatsService, export *service.ExportService) *TicketsHandler {
	return &TicketsHandler{tickets: tickets, stats: stats, export: export}
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	tickets, err := h.tickets.List(c.UserContext(), auth.CallerFromContext(c), listInput(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketList(tickets)})
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.tickets.Create(c.UserContext(), auth.CallerFromContext(c), service.TicketCreateInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Category:    req.Category,
		Source:      req.Source,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	detail, err := h.tickets.Get(c.UserContext(), auth.CallerFromContext(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketDetailResponse(detail.Ticket, detail.Comments, detail.History)})
}

// UpdateTicket PATCH /tickets/:id.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.tickets.Update(c.UserContext(), auth.CallerFromContext(c), c.Params("id"), service.TicketUpdateInput{
		Title:        req.Title,
		Description:  req.Description,
		Status:       req.Status,
		Priority:     req.Priority,
		Category:     service.NullableString{Set: req.Category.Set, Value: req.Category.Value},
		AssignedToID: service.NullableString{Set: req.AssignedToID.Set, Value: req.AssignedToID.Value},
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// DeleteTicket DELETE /tickets/:id.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	if err := h.tickets.Delete(c.UserContext(), auth.CallerFromContext(c), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// AddComment POST /tickets/:id/comments.
func (h *TicketsHandler) AddComment(c *fiber.Ctx) error {
	var req dto.CreateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	comment, err := h.tickets.AddComment(c.UserContext(), auth.CallerFromContext(c), c.Params("id"), service.CommentCreateInput{
		Message:    req.Message,
		IsInternal: req.IsInternal,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewCommentResponse(comment)})
}

// DeleteComment DELETE /tickets/:id/comments. The comment id comes from the
// JSON body, or the commentId query parameter for clients that cannot send one.
func (h *TicketsHandler) DeleteComment(c *fiber.Ctx) error {
	var req dto.DeleteCommentRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}
	if req.CommentID == "" {
		req.CommentID = c.Query("commentId")
	}
	if err := h.tickets.DeleteComment(c.UserContext(), auth.CallerFromContext(c), c.Params("id"), req.CommentID); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Stats GET /tickets/stats.
func (h *TicketsHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.stats.ForCaller(c.UserContext(), auth.CallerFromContext(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewStatsResponse(stats)})
}

// Export GET /tickets/export. Accepts the same filters as the list.
func (h *TicketsHandler) Export(c *fiber.Ctx) error {
	data, filename, err := h.export.ExportTickets(c.UserContext(), auth.CallerFromContext(c), listInput(c))
	if err != nil {
		return err
	}
	c.Attachment(filename)
	c.Set(fiber.HeaderContentType, xlsxContentType)
	return c.Send(data)
}

func listInput(c *fiber.Ctx) service.TicketListInput {
	return service.TicketListInput{
		Status:       c.Query("status"),
		Priority:     c.Query("priority"),
		AssignedToID: c.Query("assignedToId"),
		CreatedByID:  c.Query("createdById"),
		Category:     c.Query("category"),
		Search:       c.Query("search"),
	}
}
