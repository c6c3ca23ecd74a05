package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/onpoint/ticket-bridge/internal/events"
)

// publishEvent fires an event, tolerating a nil dispatcher. Events are
// observability side effects; failures never affect the calling operation.
func publishEvent(ctx context.Context, dispatcher events.Dispatcher, event events.Event) {
	if dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = dispatcher.Publish(ctx, event)
}
