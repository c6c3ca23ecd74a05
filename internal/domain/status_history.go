package domain

import "time"

// StatusHistoryEntry is an immutable audit record of one status transition.
// Entries are append-only; the sequence for a ticket, ordered by CreatedAt,
// is the full audit trail of who moved the ticket and when.
type StatusHistoryEntry struct {
	ID         string
	TicketID   string
	StatusFrom TicketStatus
	StatusTo   TicketStatus
	Source     UpdateSource
	CreatedAt  time.Time
}
