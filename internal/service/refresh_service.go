package service

import (
	"context"
	"errors"
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

// RefreshResult reports the outcome of one inbound refresh.
type RefreshResult struct {
	TicketID       string
	IssueKey       string
	PreviousStatus domain.TicketStatus
	NewStatus      domain.TicketStatus
	Changed        bool
}

// RefreshAllResult summarizes a bulk refresh run.
type RefreshAllResult struct {
	Total   int
	Changed int
	Failed  int
}

// RefreshService pulls the current tracker state for transferred tickets and
// reconciles the local record. Once transferred, the tracker's status and
// priority are always accepted as authoritative; a failed fetch only records
// last_error and never touches the ticket itself.
type RefreshService struct {
	tickets    repository.TicketRepository
	history    repository.StatusHistoryRepository
	sync       repository.SyncRepository
	tracker    tracker.Client
	locks      *KeyedMutex
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	bulkDelay  time.Duration
}

// RefreshDependencies bundles collaborators for the refresh service.
type RefreshDependencies struct {
	TicketRepo  repository.TicketRepository
	HistoryRepo repository.StatusHistoryRepository
	SyncRepo    repository.SyncRepository
	Tracker     tracker.Client
	Locks       *KeyedMutex
	Dispatcher  events.Dispatcher
	Metrics     *observability.Metrics
	Logger      *zap.Logger
	BulkDelay   time.Duration
}

// NewRefreshService constructs the service.
func NewRefreshService(deps RefreshDependencies) *RefreshService {
	locks := deps.Locks
	if locks == nil {
		locks = NewKeyedMutex()
	}
	return &RefreshService{
		tickets:    deps.TicketRepo,
		history:    deps.HistoryRepo,
		sync:       deps.SyncRepo,
		tracker:    deps.Tracker,
		locks:      locks,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		bulkDelay:  deps.BulkDelay,
	}
}

// RefreshOne reconciles a single ticket against the tracker. Calling it
// repeatedly with no external change is safe: the second call reports
// Changed=false and appends nothing to the history.
func (s *RefreshService) RefreshOne(ctx context.Context, ticketID string) (*RefreshResult, error) {
	s.locks.Lock(ticketID)
	defer s.locks.Unlock(ticketID)

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, err
	}
	if !ticket.Transferred() {
		return nil, util.NewConflict("ticket is not tracked externally", nil)
	}
	issueKey := *ticket.TrackerIssueKey

	issue, err := s.tracker.GetIssue(ctx, issueKey, []string{"status", "priority"})
	if err != nil {
		s.metrics.RecordSync("refresh", false)
		// Failure to observe the tracker must never corrupt local state:
		// record it on the correlation row and leave the ticket alone.
		if serr := s.sync.SetError(ctx, ticket.ID, err.Error()); serr != nil {
			s.logger.Error("failed to record sync error",
				zap.String("ticket_id", ticket.ID),
				zap.Error(serr),
			)
		}
		publishEvent(ctx, s.dispatcher, events.Event{
			Type:     events.EventSyncFailed,
			TicketID: ticket.ID,
			Payload:  events.SyncFailedPayload{Stage: "fetch_issue", IssueKey: &issueKey, Error: err.Error()},
		})
		return nil, util.NewExternalError("tracker fetch failed", err)
	}

	newStatus := tracker.StatusFromTracker(issue.Status)
	statusChanged := newStatus != ticket.Status
	newPriority, priorityKnown := tracker.PriorityFromTracker(issue.Priority)
	priorityChanged := priorityKnown && newPriority != ticket.Priority

	result := &RefreshResult{
		TicketID:       ticket.ID,
		IssueKey:       issueKey,
		PreviousStatus: ticket.Status,
		NewStatus:      newStatus,
	}

	if !statusChanged && !priorityChanged {
		if err := s.sync.MarkSynced(ctx, ticket.ID, issueKey, issue.Status); err != nil {
			return nil, err
		}
		s.metrics.RecordSync("refresh", true)
		return result, nil
	}

	if priorityChanged {
		if err := s.tickets.UpdatePriority(ctx, ticket.ID, newPriority, domain.SourceTracker); err != nil {
			return nil, err
		}
	}
	if statusChanged {
		if err := s.tickets.UpdateStatus(ctx, ticket.ID, newStatus, domain.SourceTracker); err != nil {
			return nil, err
		}
		if err := s.history.Create(ctx, &domain.StatusHistoryEntry{
			TicketID:   ticket.ID,
			StatusFrom: result.PreviousStatus,
			StatusTo:   newStatus,
			Source:     domain.SourceTracker,
		}); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	trackerStatus := issue.Status
	if err := s.sync.Upsert(ctx, &domain.SyncCorrelation{
		TicketID:      ticket.ID,
		IssueKey:      issueKey,
		TrackerStatus: &trackerStatus,
		Origin:        domain.SourceTracker,
		LastSyncedAt:  &now,
	}); err != nil {
		return nil, err
	}

	result.Changed = true
	s.metrics.RecordSync("refresh", true)

	if statusChanged {
		publishEvent(ctx, s.dispatcher, events.Event{
			Type:     events.EventTicketStatusSynced,
			TicketID: ticket.ID,
			Payload: events.TicketStatusSyncedPayload{
				IssueKey:  issueKey,
				OldStatus: result.PreviousStatus,
				NewStatus: newStatus,
			},
		})
	}

	s.logger.Info("ticket refreshed from tracker",
		zap.String("ticket_id", ticket.ID),
		zap.String("issue_key", issueKey),
		zap.String("old_status", string(result.PreviousStatus)),
		zap.String("new_status", string(newStatus)),
		zap.Bool("priority_changed", priorityChanged),
	)
	return result, nil
}

// RefreshAll reconciles up to limit correlated tickets, oldest sync first,
// pausing between tickets so the tracker is not hammered. Per-ticket
// failures are counted and logged but do not stop the run.
func (s *RefreshService) RefreshAll(ctx context.Context, limit int) (*RefreshAllResult, error) {
	ids, err := s.sync.ListCorrelatedTicketIDs(ctx, limit)
	if err != nil {
		return nil, err
	}

	result := &RefreshAllResult{Total: len(ids)}
	for i, id := range ids {
		if i > 0 && s.bulkDelay > 0 {
			select {
			case <-ctx.Done():
				return result, ctx.Err()
			case <-time.After(s.bulkDelay):
			}
		}

		refreshed, err := s.RefreshOne(ctx, id)
		if err != nil {
			result.Failed++
			s.logger.Warn("bulk refresh: ticket failed",
				zap.String("ticket_id", id),
				zap.Error(err),
			)
			continue
		}
		if refreshed.Changed {
			result.Changed++
		}
	}

	s.logger.Info("bulk refresh finished",
		zap.Int("total", result.Total),
		zap.Int("changed", result.Changed),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}
