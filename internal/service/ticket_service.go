package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/onpoint/ticket-bridge/internal/domain"
	"github.com/onpoint/ticket-bridge/internal/events"
	"github.com/onpoint/ticket-bridge/internal/repository"
	"github.com/onpoint/ticket-bridge/pkg/util"
)

// allowedTransitions drives local status changes. Transitions out of
// Transfere are not listed here: once transferred, the tracker owns the
// status and local writes are rejected.
var allowedTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusNew:        {domain.TicketStatusInProgress, domain.TicketStatusResolved},
	domain.TicketStatusInProgress: {domain.TicketStatusResolved, domain.TicketStatusNew},
	domain.TicketStatusResolved:   {domain.TicketStatusInProgress},
}

// CreateTicketInput carries the caller-supplied fields for a new ticket.
type CreateTicketInput struct {
	Type            domain.TicketType
	Title           string
	Description     string
	Priority        domain.TicketPriority
	Channel         *string
	ProductName     *string
	ModuleName      *string
	CustomerContext *string
	RequesterID     string
	Attachments     []AttachmentInput
}

// AttachmentInput references an object already uploaded to the store.
type AttachmentInput struct {
	StoragePath string
	FileName    string
	MimeType    *string
	SizeBytes   int64
}

// TicketDetail bundles a ticket with its history and attachments.
type TicketDetail struct {
	Ticket      *domain.Ticket
	History     []domain.StatusHistoryEntry
	Attachments []domain.Attachment
}

type TicketService struct {
	tickets     repository.TicketRepository
	history     repository.StatusHistoryRepository
	attachments repository.AttachmentRepository
	dispatcher  events.Dispatcher
	logger      *zap.Logger
}

// TicketDependencies bundles everything TicketService needs.
type TicketDependencies struct {
	TicketRepo     repository.TicketRepository
	HistoryRepo    repository.StatusHistoryRepository
	AttachmentRepo repository.AttachmentRepository
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
}

func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:     deps.TicketRepo,
		history:     deps.HistoryRepo,
		attachments: deps.AttachmentRepo,
		dispatcher:  deps.Dispatcher,
		logger:      deps.Logger,
	}
}

// CreateTicket validates the input, persists the ticket with its attachment
// records, and publishes a created event.
func (s *TicketService) CreateTicket(ctx context.Context, input CreateTicketInput) (*domain.Ticket, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, util.NewValidationError("title is required", nil)
	}
	if input.RequesterID == "" {
		return nil, util.NewValidationError("requester_id is required", nil)
	}
	switch input.Type {
	case domain.TicketTypeBug, domain.TicketTypeRequest, domain.TicketTypeAssistance:
	default:
		return nil, util.NewValidationError("unknown ticket type", map[string]any{
			"type": string(input.Type),
		})
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}
	switch priority {
	case domain.TicketPriorityLow, domain.TicketPriorityMedium, domain.TicketPriorityHigh, domain.TicketPriorityCritical:
	default:
		return nil, util.NewValidationError("unknown priority", map[string]any{
			"priority": string(priority),
		})
	}

	ticket := &domain.Ticket{
		Type:             input.Type,
		Status:           domain.TicketStatusNew,
		Title:            input.Title,
		Description:      input.Description,
		Priority:         priority,
		Channel:          input.Channel,
		ProductName:      input.ProductName,
		ModuleName:       input.ModuleName,
		CustomerContext:  input.CustomerContext,
		RequesterID:      input.RequesterID,
		LastUpdateSource: domain.SourceApp,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, util.ToDomainError(err)
	}

	for _, in := range input.Attachments {
		att := &domain.Attachment{
			TicketID:    ticket.ID,
			StoragePath: in.StoragePath,
			FileName:    in.FileName,
			MimeType:    in.MimeType,
			SizeBytes:   in.SizeBytes,
		}
		if err := s.attachments.Create(ctx, att); err != nil {
			s.logger.Error("failed to record attachment",
				zap.String("ticket_id", ticket.ID),
				zap.String("storage_path", in.StoragePath),
				zap.Error(err))
			return nil, util.ToDomainError(err)
		}
	}

	publishEvent(ctx, s.dispatcher, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Payload: events.TicketCreatedPayload{
			TicketType: ticket.Type,
			Priority:   ticket.Priority,
			Title:      ticket.Title,
		},
	})
	return ticket, nil
}

// GetTicket loads a ticket with its status history and attachments.
func (s *TicketService) GetTicket(ctx context.Context, id string) (*TicketDetail, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("ticket", map[string]any{"ticket_id": id})
		}
		return nil, util.ToDomainError(err)
	}
	history, err := s.history.ListByTicket(ctx, id)
	if err != nil {
		return nil, util.ToDomainError(err)
	}
	attachments, err := s.attachments.ListByTicket(ctx, id)
	if err != nil {
		return nil, util.ToDomainError(err)
	}
	return &TicketDetail{Ticket: ticket, History: history, Attachments: attachments}, nil
}

// ListTickets returns tickets matching the filter.
func (s *TicketService) ListTickets(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	tickets, err := s.tickets.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, util.ToDomainError(err)
	}
	return tickets, nil
}

// UpdateStatus applies a local status change. Transferred tickets reject
// local status writes; their status only moves through refresh.
func (s *TicketService) UpdateStatus(ctx context.Context, id string, newStatus domain.TicketStatus) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("ticket", map[string]any{"ticket_id": id})
		}
		return nil, util.ToDomainError(err)
	}
	if ticket.Transferred() {
		return nil, util.NewConflict("ticket status is owned by the external tracker", map[string]any{
			"issue_key": *ticket.TrackerIssueKey,
		})
	}
	if newStatus == ticket.Status {
		return ticket, nil
	}
	if !transitionAllowed(ticket.Status, newStatus) {
		return nil, util.NewConflict(
			fmt.Sprintf("cannot move ticket from %s to %s", ticket.Status, newStatus), nil)
	}

	oldStatus := ticket.Status
	if err := s.tickets.UpdateStatus(ctx, id, newStatus, domain.SourceApp); err != nil {
		return nil, util.ToDomainError(err)
	}
	entry := &domain.StatusHistoryEntry{
		TicketID:   id,
		StatusFrom: oldStatus,
		StatusTo:   newStatus,
		Source:     domain.SourceApp,
	}
	if err := s.history.Create(ctx, entry); err != nil {
		return nil, util.ToDomainError(err)
	}

	ticket.Status = newStatus
	ticket.LastUpdateSource = domain.SourceApp

	publishEvent(ctx, s.dispatcher, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: id,
		Payload: events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: newStatus,
			Source:    domain.SourceApp,
		},
	})
	return ticket, nil
}

func transitionAllowed(from, to domain.TicketStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
