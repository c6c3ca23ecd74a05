package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/onpoint/ticket-bridge/internal/domain"
	"github.com/onpoint/ticket-bridge/internal/events"
	"github.com/onpoint/ticket-bridge/internal/observability"
	"github.com/onpoint/ticket-bridge/internal/service"
	"github.com/onpoint/ticket-bridge/internal/tracker"
	"github.com/onpoint/ticket-bridge/pkg/util"
)

func strptr(s string) *string { return &s }

func assistanceTicket(id string) *domain.Ticket {
	return &domain.Ticket{
		ID:               id,
		Type:             domain.TicketTypeAssistance,
		Status:           domain.TicketStatusInProgress,
		Title:            "printer offline",
		Description:      "the office printer stopped responding",
		Priority:         domain.TicketPriorityHigh,
		Channel:          strptr("phone"),
		ProductName:      strptr("Print Suite"),
		ModuleName:       strptr("spooler"),
		CustomerContext:  strptr("branch 12"),
		RequesterID:      "user-1",
		LastUpdateSource: domain.SourceApp,
	}
}

type transferFixture struct {
	tickets    *fakeTicketRepo
	history    *fakeHistoryRepo
	sync       *fakeSyncRepo
	tracker    *fakeTracker
	dispatcher *recordingDispatcher
	service    *service.TransferService
}

func newTransferFixture(tickets ...*domain.Ticket) *transferFixture {
	f := &transferFixture{
		tickets:    newFakeTicketRepo(tickets...),
		history:    &fakeHistoryRepo{},
		sync:       newFakeSyncRepo(),
		tracker:    &fakeTracker{},
		dispatcher: &recordingDispatcher{},
	}
	f.service = service.NewTransferService(service.TransferDependencies{
		TicketRepo:  f.tickets,
		HistoryRepo: f.history,
		SyncRepo:    f.sync,
		Tracker:     f.tracker,
		Dispatcher:  f.dispatcher,
		Metrics:     observability.NewMetrics(),
		Logger:      zap.NewNop(),
	})
	return f
}

func TestTransfer(t *testing.T) {
	ctx := context.Background()

	t.Run("transfers an eligible ticket", func(t *testing.T) {
		f := newTransferFixture(assistanceTicket("t1"))

		ticket, err := f.service.Transfer(ctx, "t1")
		require.NoError(t, err)

		assert.Equal(t, domain.TicketStatusTransferred, ticket.Status)
		require.NotNil(t, ticket.TrackerIssueKey)
		assert.Equal(t, "OD-1", *ticket.TrackerIssueKey)

		stored, err := f.tickets.GetByID(ctx, "t1")
		require.NoError(t, err)
		assert.Equal(t, domain.TicketStatusTransferred, stored.Status)
		assert.Equal(t, domain.SourceApp, stored.LastUpdateSource)

		corr, err := f.sync.GetByTicketID(ctx, "t1")
		require.NoError(t, err)
		assert.Equal(t, "OD-1", corr.IssueKey)
		assert.Equal(t, domain.SourceApp, corr.Origin)
		assert.True(t, corr.Healthy())
		require.NotNil(t, corr.LastSyncedAt)

		require.Len(t, f.history.entries, 1)
		assert.Equal(t, domain.TicketStatusInProgress, f.history.entries[0].StatusFrom)
		assert.Equal(t, domain.TicketStatusTransferred, f.history.entries[0].StatusTo)
		assert.Equal(t, domain.SourceApp, f.history.entries[0].Source)

		transferred := f.dispatcher.byType(events.EventTicketTransferred)
		require.Len(t, transferred, 1)
		assert.Equal(t, "t1", transferred[0].TicketID)
	})

	t.Run("keeps local status when issue creation fails", func(t *testing.T) {
		f := newTransferFixture(assistanceTicket("t1"))
		f.tracker.createFunc = func(ctx context.Context, fields tracker.IssueFields) (*tracker.CreatedIssue, error) {
			return nil, &tracker.APIError{StatusCode: 503, Body: "maintenance"}
		}

		_, err := f.service.Transfer(ctx, "t1")
		require.Error(t, err)
		var domainErr *util.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "EXTERNAL_CALL_FAILED", domainErr.Code)

		// Local write sticks: the status flip is not rolled back.
		stored, err := f.tickets.GetByID(ctx, "t1")
		require.NoError(t, err)
		assert.Equal(t, domain.TicketStatusTransferred, stored.Status)
		assert.Nil(t, stored.TrackerIssueKey)

		// No correlation row for an issue that was never created.
		_, err = f.sync.GetByTicketID(ctx, "t1")
		require.Error(t, err)

		failed := f.dispatcher.byType(events.EventSyncFailed)
		require.Len(t, failed, 1)
		payload, ok := failed[0].Payload.(events.SyncFailedPayload)
		require.True(t, ok)
		assert.Equal(t, "create_issue", payload.Stage)
	})

	t.Run("rejects non-assistance tickets", func(t *testing.T) {
		bug := assistanceTicket("t1")
		bug.Type = domain.TicketTypeBug
		f := newTransferFixture(bug)

		_, err := f.service.Transfer(ctx, "t1")
		var domainErr *util.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "CONFLICT", domainErr.Code)
		assert.Empty(t, f.tracker.createCalls)
	})

	t.Run("rejects tickets not in progress", func(t *testing.T) {
		fresh := assistanceTicket("t1")
		fresh.Status = domain.TicketStatusNew
		f := newTransferFixture(fresh)

		_, err := f.service.Transfer(ctx, "t1")
		var domainErr *util.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "CONFLICT", domainErr.Code)
	})

	t.Run("rejects a second transfer", func(t *testing.T) {
		f := newTransferFixture(assistanceTicket("t1"))

		_, err := f.service.Transfer(ctx, "t1")
		require.NoError(t, err)

		_, err = f.service.Transfer(ctx, "t1")
		var domainErr *util.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "CONFLICT", domainErr.Code)
		assert.Len(t, f.tracker.createCalls, 1)
	})

	t.Run("returns not found for unknown ticket", func(t *testing.T) {
		f := newTransferFixture()

		_, err := f.service.Transfer(ctx, "missing")
		var domainErr *util.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "NOT_FOUND", domainErr.Code)
	})

	t.Run("builds issue fields with trailer and labels", func(t *testing.T) {
		f := newTransferFixture(assistanceTicket("t1"))

		_, err := f.service.Transfer(ctx, "t1")
		require.NoError(t, err)

		require.Len(t, f.tracker.createCalls, 1)
		fields := f.tracker.createCalls[0]
		assert.Equal(t, "printer offline", fields.Summary)
		assert.Equal(t, "Request", fields.IssueType)
		assert.Equal(t, "High", fields.Priority)
		assert.Equal(t, "t1", fields.TicketID)

		assert.Contains(t, fields.Description, "the office printer stopped responding")
		assert.Contains(t, fields.Description, "---")
		assert.Contains(t, fields.Description, "*Customer context*: branch 12")
		assert.Contains(t, fields.Description, "*Channel*: phone")
		assert.Contains(t, fields.Description, "*Product*: Print Suite")
		assert.Contains(t, fields.Description, "*Module*: spooler")

		assert.ElementsMatch(t, []string{"canal:phone", "product:Print_Suite", "module:spooler"}, fields.Labels)
	})

	t.Run("succeeds even when attachment replication fails", func(t *testing.T) {
		f := newTransferFixture(assistanceTicket("t1"))
		attachments := &fakeAttachmentRepo{}
		require.NoError(t, attachments.Create(ctx, &domain.Attachment{
			ID: "a1", TicketID: "t1", StoragePath: "t1/broken.png", FileName: "broken.png",
		}))
		store := &fakeStore{err: errors.New("store down")}
		replicator := service.NewReplicator(attachments, store, f.tracker, zap.NewNop())

		f.service = service.NewTransferService(service.TransferDependencies{
			TicketRepo:  f.tickets,
			HistoryRepo: f.history,
			SyncRepo:    f.sync,
			Tracker:     f.tracker,
			Replicator:  replicator,
			Dispatcher:  f.dispatcher,
			Metrics:     observability.NewMetrics(),
			Logger:      zap.NewNop(),
		})

		ticket, err := f.service.Transfer(ctx, "t1")
		require.NoError(t, err)
		require.NotNil(t, ticket.TrackerIssueKey)
	})
}
