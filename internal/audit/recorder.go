// Package audit emits one event per committed structural mutation onto an
// in-process pub/sub topic. Emission is strictly post-commit and best
// effort: a failed publish is logged and never surfaces to the caller.
package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"cabinet/internal/domain/models"
)

// Topic is the pub/sub topic structural mutation events are published on.
const Topic = "hierarchy.events"

// Recorder records committed structural mutations
type Recorder interface {
	Record(ctx context.Context, event models.AuditEvent)
}

// Publisher implements Recorder over a watermill publisher
type Publisher struct {
	publisher message.Publisher
	logger    *slog.Logger
}

// NewPublisher creates a recorder publishing to the given watermill publisher
func NewPublisher(publisher message.Publisher, logger *slog.Logger) *Publisher {
	return &Publisher{
		publisher: publisher,
		logger:    logger,
	}
}

// Record publishes the event. Errors are logged and swallowed: the mutation
// already committed and must not be affected.
func (p *Publisher) Record(ctx context.Context, event models.AuditEvent) {
	if p.publisher == nil {
		return
	}

	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("failed to marshal audit event", "operation", event.Operation, "error", err)
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := p.publisher.Publish(Topic, msg); err != nil {
		p.logger.Error("failed to publish audit event", "operation", event.Operation, "error", err)
	}
}

// NopRecorder discards all events
type NopRecorder struct{}

// Record implements Recorder
func (NopRecorder) Record(ctx context.Context, event models.AuditEvent) {}
