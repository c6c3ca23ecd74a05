package domain

import "time"

// TicketType enumerates ticket categories. Only assistance tickets can be
// transferred to the external tracker; bugs and requests are created there
// directly by other channels.
type TicketType string

const (
	TicketTypeBug        TicketType = "BUG"
	TicketTypeRequest    TicketType = "REQ"
	TicketTypeAssistance TicketType = "ASSISTANCE"
)

// TicketStatus enumerates lifecycle states. Local tickets move through the
// local vocabulary; once a ticket is transferred, status names reported by
// the tracker are adopted during refresh.
type TicketStatus string

const (
	TicketStatusNew         TicketStatus = "Nouveau"
	TicketStatusInProgress  TicketStatus = "En_cours"
	TicketStatusTransferred TicketStatus = "Transfere"
	TicketStatusResolved    TicketStatus = "Resolue"

	// Tracker-side statuses adopted after transfer.
	TicketStatusToDo          TicketStatus = "To_Do"
	TicketStatusTrackerDoing  TicketStatus = "In_Progress"
	TicketStatusTrackerDone   TicketStatus = "Done"
	TicketStatusTrackerClosed TicketStatus = "Closed"
)

// TicketPriority enumerates urgency levels.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "Low"
	TicketPriorityMedium   TicketPriority = "Medium"
	TicketPriorityHigh     TicketPriority = "High"
	TicketPriorityCritical TicketPriority = "Critical"
)

// UpdateSource identifies which side produced the most recent accepted write
// for a ticket: the application itself or the external tracker.
type UpdateSource string

const (
	SourceApp     UpdateSource = "app"
	SourceTracker UpdateSource = "tracker"
)

// Ticket is the locally-owned unit of work. TrackerIssueKey is set exactly
// once, when the ticket is transferred, and never changes afterwards.
type Ticket struct {
	ID               string
	Type             TicketType
	Status           TicketStatus
	Title            string
	Description      string
	Priority         TicketPriority
	Channel          *string
	ProductName      *string
	ModuleName       *string
	CustomerContext  *string
	RequesterID      string
	AssigneeID       *string
	TrackerIssueKey  *string
	LastUpdateSource UpdateSource
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Transferred reports whether the ticket is tracked by the external tracker.
func (t *Ticket) Transferred() bool {
	return t.TrackerIssueKey != nil && *t.TrackerIssueKey != ""
}
