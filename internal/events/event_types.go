package events

import (
	"time"

	"github.com/onpoint/ticket-bridge/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketTransferred   EventType = "ticket_transferred"
	EventTicketStatusSynced  EventType = "ticket_status_synced"
	EventSyncFailed          EventType = "sync_failed"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	TicketType domain.TicketType     `json:"ticket_type"`
	Priority   domain.TicketPriority `json:"priority"`
	Title      string                `json:"title"`
}

// TicketStatusChangedPayload payload for local status changes.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	Source    domain.UpdateSource `json:"source"`
}

// TicketTransferredPayload payload.
type TicketTransferredPayload struct {
	IssueKey string `json:"issue_key"`
}

// TicketStatusSyncedPayload payload for statuses pulled from the tracker.
type TicketStatusSyncedPayload struct {
	IssueKey  string              `json:"issue_key"`
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// SyncFailedPayload payload. Stage identifies which external call failed.
type SyncFailedPayload struct {
	Stage    string  `json:"stage"`
	IssueKey *string `json:"issue_key,omitempty"`
	Error    string  `json:"error"`
}
