package dto

import (
	"time"

	"github.com/onpoint/ticket-bridge/internal/domain"
)

// RefreshResponse reports the outcome of one refresh.
type RefreshResponse struct {
	TicketID       string              `json:"ticket_id"`
	IssueKey       string              `json:"issue_key"`
	PreviousStatus domain.TicketStatus `json:"previous_status"`
	NewStatus      domain.TicketStatus `json:"new_status"`
	Changed        bool                `json:"changed"`
}

// RefreshAllResponse summarizes a bulk refresh run.
type RefreshAllResponse struct {
	Total   int `json:"total"`
	Changed int `json:"changed"`
	Failed  int `json:"failed"`
}

// SyncStatsResponse is the operator dashboard aggregation.
type SyncStatsResponse struct {
	TotalSynced     int64              `json:"total_synced"`
	SyncedToday     int64              `json:"synced_today"`
	SyncedThisWeek  int64              `json:"synced_this_week"`
	ErrorCount      int64              `json:"error_count"`
	LastSyncedAt    *time.Time         `json:"last_synced_at"`
	ByOrigin        map[string]int64   `json:"by_origin"`
	ByTrackerStatus []StatusCountEntry `json:"by_tracker_status"`
}

// StatusCountEntry is one bucket of the tracker status breakdown.
type StatusCountEntry struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// SyncRowResponse is one correlation row in operator listings.
type SyncRowResponse struct {
	TicketID      string              `json:"ticket_id"`
	TicketTitle   string              `json:"ticket_title"`
	IssueKey      string              `json:"issue_key"`
	TrackerStatus *string             `json:"tracker_status"`
	Origin        domain.UpdateSource `json:"origin"`
	LastSyncedAt  *time.Time          `json:"last_synced_at"`
	LastError     *string             `json:"last_error"`
}
