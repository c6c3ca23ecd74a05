package service

import (
	"context"
	"fmt"
	"path"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"github.com/onpoint/ticket-bridge/internal/domain"
	"github.com/onpoint/ticket-bridge/internal/repository"
	"github.com/onpoint/ticket-bridge/internal/storage"
	"github.com/onpoint/ticket-bridge/internal/tracker"
)

// Replicator copies a ticket's attachments from the internal object store to
// the tracker issue. Attachments are processed sequentially to bound memory
// use and respect the tracker's rate limits; a failure on one attachment
// does not stop the remaining ones.
type Replicator struct {
	attachments repository.AttachmentRepository
	store       storage.Client
	tracker     tracker.Client
	logger      *zap.Logger
}

// NewReplicator constructs the replicator.
func NewReplicator(attachments repository.AttachmentRepository, store storage.Client, trackerClient tracker.Client, logger *zap.Logger) *Replicator {
	return &Replicator{
		attachments: attachments,
		store:       store,
		tracker:     trackerClient,
		logger:      logger,
	}
}

// Replicate attempts every attachment of the ticket and returns a summary
// error when some failed. The caller treats the result as advisory: the
// issue already exists and is more valuable partially attached than not at
// all.
func (r *Replicator) Replicate(ctx context.Context, issueKey, ticketID string) error {
	attachments, err := r.attachments.ListByTicket(ctx, ticketID)
	if err != nil {
		return fmt.Errorf("list attachments: %w", err)
	}

	failed := 0
	for _, attachment := range attachments {
		if err := r.replicateOne(ctx, issueKey, attachment); err != nil {
			failed++
			r.logger.Warn("attachment replication failed",
				zap.String("ticket_id", ticketID),
				zap.String("issue_key", issueKey),
				zap.String("storage_path", attachment.StoragePath),
				zap.Error(err),
			)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d attachments failed to replicate", failed, len(attachments))
	}
	return nil
}

func (r *Replicator) replicateOne(ctx context.Context, issueKey string, attachment domain.Attachment) error {
	data, err := r.store.Download(ctx, attachment.StoragePath)
	if err != nil {
		return fmt.Errorf("download %s: %w", attachment.StoragePath, err)
	}

	mime := ""
	if attachment.MimeType != nil {
		mime = *attachment.MimeType
	}
	if mime == "" {
		mime = mimetype.Detect(data).String()
	}

	fileName := attachment.FileName
	if fileName == "" {
		fileName = path.Base(attachment.StoragePath)
	}

	return r.tracker.UploadAttachment(ctx, issueKey, fileName, mime, data)
}
