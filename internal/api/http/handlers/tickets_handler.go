package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/onpoint/ticket-bridge/internal/api/dto"
	"github.com/onpoint/ticket-bridge/internal/domain"
	"github.com/onpoint/ticket-bridge/internal/repository"
	"github.com/onpoint/ticket-bridge/internal/service"
	"github.com/onpoint/ticket-bridge/pkg/util"
)

// TicketsHandler manages ticket CRUD endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}

	input := service.CreateTicketInput{
		Type:            req.Type,
		Title:           req.Title,
		Description:     req.Description,
		Priority:        req.Priority,
		Channel:         req.Channel,
		ProductName:     req.ProductName,
		ModuleName:      req.ModuleName,
		CustomerContext: req.CustomerContext,
		RequesterID:     req.RequesterID,
	}
	for _, att := range req.Attachments {
		input.Attachments = append(input.Attachments, service.AttachmentInput{
			StoragePath: att.StoragePath,
			FileName:    att.FileName,
			MimeType:    att.MimeType,
			SizeBytes:   att.SizeBytes,
		})
	}

	ticket, err := h.service.CreateTicket(c.UserContext(), input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	tickets, err := h.service.ListTickets(c.UserContext(), parseTicketFilter(c))
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketResponse(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	detail, err := h.service.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetailResponse(detail)})
}

// UpdateStatus POST /tickets/:id/status.
func (h *TicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	if req.Status == "" {
		return util.NewValidationError("status required", nil)
	}
	ticket, err := h.service.UpdateStatus(c.UserContext(), c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

func parseTicketFilter(c *fiber.Ctx) repository.TicketFilter {
	filter := repository.TicketFilter{}
	if typeStr := c.Query("type"); typeStr != "" {
		for _, part := range strings.Split(typeStr, ",") {
			filter.Types = append(filter.Types, domain.TicketType(strings.TrimSpace(part)))
		}
	}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.TicketStatus(strings.TrimSpace(part)))
		}
	}
	if requester := c.Query("requester_id"); requester != "" {
		filter.RequesterID = &requester
	}
	if search := c.Query("search"); search != "" {
		filter.SearchTerm = &search
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func parseInt(val string, fallback int) int {
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func ticketResponse(ticket *domain.Ticket) dto.TicketResponse {
	return dto.TicketResponse{
		ID:               ticket.ID,
		Type:             ticket.Type,
		Status:           ticket.Status,
		Title:            ticket.Title,
		Priority:         ticket.Priority,
		Channel:          ticket.Channel,
		ProductName:      ticket.ProductName,
		ModuleName:       ticket.ModuleName,
		RequesterID:      ticket.RequesterID,
		AssigneeID:       ticket.AssigneeID,
		TrackerIssueKey:  ticket.TrackerIssueKey,
		LastUpdateSource: ticket.LastUpdateSource,
		CreatedAt:        ticket.CreatedAt,
		UpdatedAt:        ticket.UpdatedAt,
	}
}

func ticketDetailResponse(detail *service.TicketDetail) dto.TicketDetailResponse {
	resp := dto.TicketDetailResponse{
		TicketResponse:  ticketResponse(detail.Ticket),
		Description:     detail.Ticket.Description,
		CustomerContext: detail.Ticket.CustomerContext,
		History:         make([]dto.StatusHistoryResponse, 0, len(detail.History)),
		Attachments:     make([]dto.AttachmentResponse, 0, len(detail.Attachments)),
	}
	for _, entry := range detail.History {
		resp.History = append(resp.History, dto.StatusHistoryResponse{
			ID:         entry.ID,
			StatusFrom: entry.StatusFrom,
			StatusTo:   entry.StatusTo,
			Source:     entry.Source,
			CreatedAt:  entry.CreatedAt,
		})
	}
	for _, att := range detail.Attachments {
		resp.Attachments = append(resp.Attachments, dto.AttachmentResponse{
			ID:          att.ID,
			StoragePath: att.StoragePath,
			FileName:    att.FileName,
			MimeType:    att.MimeType,
			SizeBytes:   att.SizeBytes,
			CreatedAt:   att.CreatedAt,
		})
	}
	return resp
}
