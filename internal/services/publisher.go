package services

import (
	"context"
	"time"

	"classfees/internal/core"
	"classfees/internal/log"
	"classfees/internal/metrics"
)

// Publisher announces committed writes. The AMQP client implements it.
type Publisher interface {
	PublishChange(ctx context.Context, event core.ChangeEvent) error
}

// announcer is shared by the write services: it publishes the change,
// counts the mutation and marks the snapshot stale. Publishing is best
// effort; the write has already landed.
type announcer struct {
	publisher Publisher
	snapshots *Snapshots
	metrics   *metrics.Metrics
	logger    *log.Logger
	now       func() time.Time
}

func (a announcer) announce(ctx context.Context, event core.ChangeEvent) {
	a.metrics.Mutation(event.Collection, event.Op)
	if a.snapshots != nil {
		a.snapshots.Invalidate()
	}
	log.NewStructuredLogger(a.logger).LogMutation(ctx, event.Collection, event.Op, event.ID)

	if a.publisher == nil {
		a.logger.DebugContext(ctx, "No publisher configured, skipping change event",
			log.FieldCollection, event.Collection)
		return
	}
	event.Timestamp = a.now().UTC()
	if err := a.publisher.PublishChange(ctx, event); err != nil {
		a.metrics.EventPublished(false)
		a.logger.ErrorContext(ctx, "Failed to publish change event",
			log.FieldCollection, event.Collection,
			log.FieldOperation, event.Op,
			"id", event.ID,
			log.FieldError, err.Error())
		return
	}
	a.metrics.EventPublished(true)
}
