package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"

	"github.com/spec-kit/ticket-chat/internal/api/dto"
	"github.com/spec-kit/ticket-chat/internal/auth"
	"github.com/spec-kit/ticket-chat/internal/domain"
	"github.com/spec-kit/ticket-chat/internal/service"
	apperrors "github.com/spec-kit/ticket-chat/pkg/util/errorutil"
)

// DirectoryHandler serves the company, ticket and message endpoints.
type DirectoryHandler struct {
	service *service.DirectoryService
}

// NewDirectoryHandler constructs handler.
func NewDirectoryHandler(directoryService *service.DirectoryService) *DirectoryHandler {
	return &DirectoryHandler{service: directoryService}
}

// ListCompanies GET /companies.
func (h *DirectoryHandler) ListCompanies(c *fiber.Ctx) error {
	companies, err := h.service.ListCompanies(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": lo.Map(companies, func(co domain.Company, _ int) dto.CompanyResponse {
		return dto.NewCompanyResponse(co)
	})})
}

// ListTickets GET /companies/:id/tickets.
func (h *DirectoryHandler) ListTickets(c *fiber.Ctx) error {
	tickets, err := h.service.ListTickets(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": lo.Map(tickets, func(t domain.Ticket, _ int) dto.TicketResponse {
		return dto.NewTicketResponse(t)
	})})
}

// ListMessages GET /tickets/:id/messages.
func (h *DirectoryHandler) ListMessages(c *fiber.Ctx) error {
	msgs, err := h.service.ListMessages(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": lo.Map(msgs, func(m domain.Message, _ int) dto.MessageResponse {
		return dto.NewMessageResponse(m)
	})})
}

// CreateMessage POST /tickets/:id/messages.
func (h *DirectoryHandler) CreateMessage(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("agent required")
	}
	var req dto.CreateMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	msg, err := h.service.PostMessage(c.UserContext(), principal.Agent.ID, c.Params("id"), req.Body, req.Direction)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": dto.CreateMessageResponse{ID: msg.ID, CreatedAt: msg.CreatedAt},
	})
}
