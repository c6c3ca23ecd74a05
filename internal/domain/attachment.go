package domain

import "time"

// Attachment is stored file metadata belonging to a ticket. The object store
// owns the bytes; this record only points at them.
type Attachment struct {
	ID          string
	TicketID    string
	StoragePath string
	FileName    string
	MimeType    *string
	SizeBytes   int64
	CreatedAt   time.Time
}
