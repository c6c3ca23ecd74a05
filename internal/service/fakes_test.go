package service_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/onpoint/ticket-bridge/internal/domain"
	"github.com/onpoint/ticket-bridge/internal/events"
	"github.com/onpoint/ticket-bridge/internal/repository"
	"github.com/onpoint/ticket-bridge/internal/tracker"
)

type fakeTicketRepo struct {
	mu      sync.Mutex
	tickets map[string]*domain.Ticket
}

func newFakeTicketRepo(tickets ...*domain.Ticket) *fakeTicketRepo {
	repo := &fakeTicketRepo{tickets: make(map[string]*domain.Ticket)}
	for _, t := range tickets {
		clone := *t
		repo.tickets[t.ID] = &clone
	}
	return repo
}

func (r *fakeTicketRepo) Create(ctx context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ticket.ID == "" {
		ticket.ID = uuid.NewString()
	}
	now := time.Now()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	clone := *ticket
	r.tickets[ticket.ID] = &clone
	return nil
}

func (r *fakeTicketRepo) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *ticket
	return &clone, nil
}

func (r *fakeTicketRepo) UpdateStatus(ctx context.Context, id string, status domain.TicketStatus, source domain.UpdateSource) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return pgx.ErrNoRows
	}
	ticket.Status = status
	ticket.LastUpdateSource = source
	ticket.UpdatedAt = time.Now()
	return nil
}

func (r *fakeTicketRepo) UpdatePriority(ctx context.Context, id string, priority domain.TicketPriority, source domain.UpdateSource) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return pgx.ErrNoRows
	}
	ticket.Priority = priority
	ticket.LastUpdateSource = source
	ticket.UpdatedAt = time.Now()
	return nil
}

func (r *fakeTicketRepo) SetIssueKey(ctx context.Context, id, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return pgx.ErrNoRows
	}
	if ticket.TrackerIssueKey != nil {
		return repository.ErrIssueKeyAssigned
	}
	ticket.TrackerIssueKey = &key
	return nil
}

func (r *fakeTicketRepo) ListWithFilter(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Ticket
	for _, ticket := range r.tickets {
		out = append(out, *ticket)
	}
	return out, nil
}

type fakeHistoryRepo struct {
	mu        sync.Mutex
	entries   []domain.StatusHistoryEntry
	createErr error
}

func (r *fakeHistoryRepo) Create(ctx context.Context, entry *domain.StatusHistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	entry.CreatedAt = time.Now()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeHistoryRepo) ListByTicket(ctx context.Context, ticketID string) ([]domain.StatusHistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.StatusHistoryEntry
	for _, entry := range r.entries {
		if entry.TicketID == ticketID {
			out = append(out, entry)
		}
	}
	return out, nil
}

type fakeSyncRepo struct {
	mu      sync.Mutex
	rows    map[string]*domain.SyncCorrelation
	nowFunc func() time.Time
}

func newFakeSyncRepo() *fakeSyncRepo {
	return &fakeSyncRepo{rows: make(map[string]*domain.SyncCorrelation), nowFunc: time.Now}
}

func (r *fakeSyncRepo) Upsert(ctx context.Context, corr *domain.SyncCorrelation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *corr
	r.rows[corr.TicketID] = &clone
	return nil
}

func (r *fakeSyncRepo) GetByTicketID(ctx context.Context, ticketID string) (*domain.SyncCorrelation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[ticketID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *row
	return &clone, nil
}

func (r *fakeSyncRepo) MarkSynced(ctx context.Context, ticketID, issueKey, trackerStatus string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.nowFunc()
	row, ok := r.rows[ticketID]
	if !ok {
		row = &domain.SyncCorrelation{TicketID: ticketID, Origin: domain.SourceTracker}
		r.rows[ticketID] = row
	}
	row.IssueKey = issueKey
	row.TrackerStatus = &trackerStatus
	row.LastSyncedAt = &now
	row.LastError = nil
	return nil
}

func (r *fakeSyncRepo) SetError(ctx context.Context, ticketID, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[ticketID]
	if !ok {
		return pgx.ErrNoRows
	}
	row.LastError = &message
	return nil
}

func (r *fakeSyncRepo) ListCorrelatedTicketIDs(ctx context.Context, limit int) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for id := range r.rows {
		if limit > 0 && len(ids) >= limit {
			break
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *fakeSyncRepo) CountAll(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.rows)), nil
}

func (r *fakeSyncRepo) CountSyncedSince(ctx context.Context, since time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, row := range r.rows {
		if row.LastSyncedAt != nil && !row.LastSyncedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (r *fakeSyncRepo) CountErrors(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, row := range r.rows {
		if row.LastError != nil {
			n++
		}
	}
	return n, nil
}

func (r *fakeSyncRepo) LastSyncedAt(ctx context.Context) (*time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *time.Time
	for _, row := range r.rows {
		if row.LastSyncedAt == nil {
			continue
		}
		if latest == nil || row.LastSyncedAt.After(*latest) {
			ts := *row.LastSyncedAt
			latest = &ts
		}
	}
	return latest, nil
}

func (r *fakeSyncRepo) CountByOrigin(ctx context.Context) (map[domain.UpdateSource]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[domain.UpdateSource]int64)
	for _, row := range r.rows {
		out[row.Origin]++
	}
	return out, nil
}

func (r *fakeSyncRepo) CountByTrackerStatus(ctx context.Context) ([]repository.StatusCount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[string]int64)
	for _, row := range r.rows {
		if row.TrackerStatus != nil {
			counts[*row.TrackerStatus]++
		}
	}
	var out []repository.StatusCount
	for status, count := range counts {
		out = append(out, repository.StatusCount{Status: status, Count: count})
	}
	return out, nil
}

func (r *fakeSyncRepo) ListErrors(ctx context.Context, limit int) ([]repository.SyncRow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []repository.SyncRow
	for _, row := range r.rows {
		if row.LastError == nil {
			continue
		}
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, repository.SyncRow{Correlation: *row})
	}
	return out, nil
}

func (r *fakeSyncRepo) ListRecent(ctx context.Context, limit int) ([]repository.SyncRow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []repository.SyncRow
	for _, row := range r.rows {
		if row.LastSyncedAt == nil {
			continue
		}
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, repository.SyncRow{Correlation: *row})
	}
	return out, nil
}

type fakeAttachmentRepo struct {
	mu          sync.Mutex
	attachments []domain.Attachment
}

func (r *fakeAttachmentRepo) Create(ctx context.Context, attachment *domain.Attachment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if attachment.ID == "" {
		attachment.ID = uuid.NewString()
	}
	attachment.CreatedAt = time.Now()
	r.attachments = append(r.attachments, *attachment)
	return nil
}

func (r *fakeAttachmentRepo) ListByTicket(ctx context.Context, ticketID string) ([]domain.Attachment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Attachment
	for _, attachment := range r.attachments {
		if attachment.TicketID == ticketID {
			out = append(out, attachment)
		}
	}
	return out, nil
}

type uploadedFile struct {
	IssueKey string
	FileName string
	MimeType string
	Data     []byte
}

type fakeTracker struct {
	mu sync.Mutex

	createFunc func(ctx context.Context, fields tracker.IssueFields) (*tracker.CreatedIssue, error)
	getFunc    func(ctx context.Context, key string) (*tracker.Issue, error)
	uploadErr  error

	createCalls []tracker.IssueFields
	getCalls    []string
	uploads     []uploadedFile
}

func (f *fakeTracker) CreateIssue(ctx context.Context, fields tracker.IssueFields) (*tracker.CreatedIssue, error) {
	f.mu.Lock()
	f.createCalls = append(f.createCalls, fields)
	f.mu.Unlock()
	if f.createFunc != nil {
		return f.createFunc(ctx, fields)
	}
	return &tracker.CreatedIssue{Key: "OD-1", ID: "10001"}, nil
}

func (f *fakeTracker) GetIssue(ctx context.Context, key string, fieldNames []string) (*tracker.Issue, error) {
	f.mu.Lock()
	f.getCalls = append(f.getCalls, key)
	f.mu.Unlock()
	if f.getFunc != nil {
		return f.getFunc(ctx, key)
	}
	return &tracker.Issue{Key: key, Status: "To Do"}, nil
}

func (f *fakeTracker) UploadAttachment(ctx context.Context, key, fileName, mimeType string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return f.uploadErr
	}
	f.uploads = append(f.uploads, uploadedFile{IssueKey: key, FileName: fileName, MimeType: mimeType, Data: data})
	return nil
}

type fakeStore struct {
	objects map[string][]byte
	err     error
}

func (f *fakeStore) Download(ctx context.Context, path string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	data, ok := f.objects[path]
	if !ok {
		return nil, errors.New("object not found")
	}
	return data, nil
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(ctx context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(eventType events.EventType, handler events.EventHandler) {}

func (d *recordingDispatcher) byType(eventType events.EventType) []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []events.Event
	for _, event := range d.events {
		if event.Type == eventType {
			out = append(out, event)
		}
	}
	return out
}
