package dto

import (
	"time"

	"github.com/onpoint/ticket-bridge/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Type            domain.TicketType     `json:"type"`
	Title           string                `json:"title"`
	Description     string                `json:"description"`
	Priority        domain.TicketPriority `json:"priority"`
	Channel         *string               `json:"channel"`
	ProductName     *string               `json:"product_name"`
	ModuleName      *string               `json:"module_name"`
	CustomerContext *string               `json:"customer_context"`
	RequesterID     string                `json:"requester_id"`
	Attachments     []AttachmentRequest   `json:"attachments"`
}

// AttachmentRequest references an object already in the store.
type AttachmentRequest struct {
	StoragePath string  `json:"storage_path"`
	FileName    string  `json:"file_name"`
	MimeType    *string `json:"mime_type"`
	SizeBytes   int64   `json:"size_bytes"`
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status domain.TicketStatus `json:"status"`
}

// TicketResponse is the summary representation used in lists.
type TicketResponse struct {
	ID               string                `json:"id"`
	Type             domain.TicketType     `json:"type"`
	Status           domain.TicketStatus   `json:"status"`
	Title            string                `json:"title"`
	Priority         domain.TicketPriority `json:"priority"`
	Channel          *string               `json:"channel"`
	ProductName      *string               `json:"product_name"`
	ModuleName       *string               `json:"module_name"`
	RequesterID      string                `json:"requester_id"`
	AssigneeID       *string               `json:"assignee_id"`
	TrackerIssueKey  *string               `json:"tracker_issue_key"`
	LastUpdateSource domain.UpdateSource   `json:"last_update_source"`
	CreatedAt        time.Time             `json:"created_at"`
	UpdatedAt        time.Time             `json:"updated_at"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	TicketResponse
	Description     string                  `json:"description"`
	CustomerContext *string                 `json:"customer_context"`
	History         []StatusHistoryResponse `json:"history"`
	Attachments     []AttachmentResponse    `json:"attachments"`
}

// StatusHistoryResponse is one audit entry.
type StatusHistoryResponse struct {
	ID         string              `json:"id"`
	StatusFrom domain.TicketStatus `json:"status_from"`
	StatusTo   domain.TicketStatus `json:"status_to"`
	Source     domain.UpdateSource `json:"source"`
	CreatedAt  time.Time           `json:"created_at"`
}

// AttachmentResponse metadata.
type AttachmentResponse struct {
	ID          string    `json:"id"`
	StoragePath string    `json:"storage_path"`
	FileName    string    `json:"file_name"`
	MimeType    *string   `json:"mime_type"`
	SizeBytes   int64     `json:"size_bytes"`
	CreatedAt   time.Time `json:"created_at"`
}
