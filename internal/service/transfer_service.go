package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/onpoint/ticket-bridge/internal/domain"
	"github.com/onpoint/ticket-bridge/internal/events"
	"github.com/onpoint/ticket-bridge/internal/observability"
	"github.com/onpoint/ticket-bridge/internal/repository"
	"github.com/onpoint/ticket-bridge/internal/tracker"
	"github.com/onpoint/ticket-bridge/pkg/util"
)

// TransferService drives the one-way promotion of a locally-handled ticket
// into a tracker issue. After a successful transfer the tracker owns status
// progression for the ticket; the local record keeps owning everything else.
type TransferService struct {
	tickets    repository.TicketRepository
	history    repository.StatusHistoryRepository
	sync       repository.SyncRepository
	tracker    tracker.Client
	replicator *Replicator
	locks      *KeyedMutex
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// TransferDependencies bundles collaborators for the transfer service.
type TransferDependencies struct {
	TicketRepo  repository.TicketRepository
	HistoryRepo repository.StatusHistoryRepository
	SyncRepo    repository.SyncRepository
	Tracker     tracker.Client
	Replicator  *Replicator
	Locks       *KeyedMutex
	Dispatcher  events.Dispatcher
	Metrics     *observability.Metrics
	Logger      *zap.Logger
}

// NewTransferService constructs the service.
func NewTransferService(deps TransferDependencies) *TransferService {
	locks := deps.Locks
	if locks == nil {
		locks = NewKeyedMutex()
	}
	return &TransferService{
		tickets:    deps.TicketRepo,
		history:    deps.HistoryRepo,
		sync:       deps.SyncRepo,
		tracker:    deps.Tracker,
		replicator: deps.Replicator,
		locks:      locks,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
	}
}

// Transfer promotes the ticket into the tracker.
//
// The local status flip and its history entry happen before the tracker
// call: local status is authoritative for local UX whether or not the
// external creation lands. Nothing is rolled back when the tracker call
// fails; issue creation is not idempotent, so the error is surfaced and a
// human decides whether to retry.
func (s *TransferService) Transfer(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	s.locks.Lock(ticketID)
	defer s.locks.Unlock(ticketID)

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, err
	}
	if ticket.Type != domain.TicketTypeAssistance {
		return nil, util.NewConflict("only assistance tickets can be transferred",
			map[string]any{"ticket_type": ticket.Type})
	}
	if ticket.Status != domain.TicketStatusInProgress {
		return nil, util.NewConflict("ticket is not in a transferable status",
			map[string]any{"status": ticket.Status})
	}
	if ticket.Transferred() {
		return nil, util.NewConflict("ticket already transferred",
			map[string]any{"issue_key": *ticket.TrackerIssueKey})
	}

	previous := ticket.Status
	if err := s.tickets.UpdateStatus(ctx, ticket.ID, domain.TicketStatusTransferred, domain.SourceApp); err != nil {
		return nil, err
	}
	ticket.Status = domain.TicketStatusTransferred
	ticket.LastUpdateSource = domain.SourceApp

	if err := s.history.Create(ctx, &domain.StatusHistoryEntry{
		TicketID:   ticket.ID,
		StatusFrom: previous,
		StatusTo:   domain.TicketStatusTransferred,
		Source:     domain.SourceApp,
	}); err != nil {
		return nil, err
	}

	created, err := s.tracker.CreateIssue(ctx, buildIssueFields(ticket))
	if err != nil {
		s.metrics.RecordSync("transfer", false)
		s.logger.Error("tracker issue creation failed",
			zap.String("ticket_id", ticket.ID),
			zap.Error(err),
		)
		publishEvent(ctx, s.dispatcher, events.Event{
			Type:     events.EventSyncFailed,
			TicketID: ticket.ID,
			Payload:  events.SyncFailedPayload{Stage: "create_issue", Error: err.Error()},
		})
		return nil, util.NewExternalError("tracker issue creation failed", err)
	}

	if err := s.tickets.SetIssueKey(ctx, ticket.ID, created.Key); err != nil {
		return nil, err
	}
	ticket.TrackerIssueKey = &created.Key

	now := time.Now()
	if err := s.sync.Upsert(ctx, &domain.SyncCorrelation{
		TicketID:     ticket.ID,
		IssueKey:     created.Key,
		Origin:       domain.SourceApp,
		LastSyncedAt: &now,
	}); err != nil {
		return nil, err
	}

	s.metrics.RecordSync("transfer", true)

	if s.replicator != nil {
		if err := s.replicator.Replicate(ctx, created.Key, ticket.ID); err != nil {
			// The issue exists; missing files are recoverable by hand.
			s.logger.Warn("attachment replication incomplete",
				zap.String("ticket_id", ticket.ID),
				zap.String("issue_key", created.Key),
				zap.Error(err),
			)
		}
	}

	publishEvent(ctx, s.dispatcher, events.Event{
		Type:     events.EventTicketTransferred,
		TicketID: ticket.ID,
		Payload:  events.TicketTransferredPayload{IssueKey: created.Key},
	})

	s.logger.Info("ticket transferred",
		zap.String("ticket_id", ticket.ID),
		zap.String("issue_key", created.Key),
	)
	return ticket, nil
}

// buildIssueFields assembles the tracker issue payload from the ticket,
// appending the customer context trailer and taxonomy labels carried over
// from the local record.
func buildIssueFields(ticket *domain.Ticket) tracker.IssueFields {
	description := ticket.Description

	var trailer strings.Builder
	appendLine := func(label string, value *string) {
		if value != nil && *value != "" {
			fmt.Fprintf(&trailer, "*%s*: %s\n", label, *value)
		}
	}
	appendLine("Customer context", ticket.CustomerContext)
	appendLine("Channel", ticket.Channel)
	appendLine("Product", ticket.ProductName)
	appendLine("Module", ticket.ModuleName)
	if trailer.Len() > 0 {
		description += "\n\n---\n" + trailer.String()
	}

	var labels []string
	appendLabel := func(prefix string, value *string) {
		if value != nil && *value != "" {
			labels = append(labels, prefix+":"+strings.ReplaceAll(*value, " ", "_"))
		}
	}
	appendLabel("canal", ticket.Channel)
	appendLabel("product", ticket.ProductName)
	appendLabel("module", ticket.ModuleName)

	return tracker.IssueFields{
		Summary:     ticket.Title,
		Description: description,
		IssueType:   tracker.IssueTypeFor(ticket.Type),
		Priority:    tracker.PriorityFor(ticket.Priority),
		Labels:      labels,
		TicketID:    ticket.ID,
	}
}
