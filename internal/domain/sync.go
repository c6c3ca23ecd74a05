package domain

import "time"

// SyncCorrelation links a local ticket to its tracker issue and records the
// health of the most recent sync attempt. One row exists per ticket that has
// ever acquired an issue key; rows are upserted, never deleted.
//
// A non-nil LastError is advisory: it flags the correlation for operator
// review but never blocks local use of the ticket.
type SyncCorrelation struct {
	TicketID      string
	IssueKey      string
	TrackerStatus *string
	Origin        UpdateSource
	LastSyncedAt  *time.Time
	LastError     *string
}

// Healthy reports whether the last sync attempt succeeded.
func (c *SyncCorrelation) Healthy() bool {
	return c.LastError == nil
}
