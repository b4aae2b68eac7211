package audit

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill/message"

	"cabinet/internal/domain/models"
)

// Logger consumes audit events from the topic and writes them to the
// structured log. It is the default sink when no external consumer is
// attached.
type Logger struct {
	subscriber message.Subscriber
	logger     *slog.Logger
}

// NewLogger creates a logging consumer for audit events
func NewLogger(subscriber message.Subscriber, logger *slog.Logger) *Logger {
	return &Logger{
		subscriber: subscriber,
		logger:     logger,
	}
}

// Start subscribes to the audit topic and logs events until ctx is done
func (l *Logger) Start(ctx context.Context) error {
	messages, err := l.subscriber.Subscribe(ctx, Topic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			l.handle(msg)
			msg.Ack()
		}
	}()

	return nil
}

func (l *Logger) handle(msg *message.Message) {
	var event models.AuditEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		l.logger.Warn("failed to decode audit event", "message_id", msg.UUID, "error", err)
		return
	}

	l.logger.Info("audit event",
		"event_id", event.ID,
		"operation", event.Operation,
		"owner_id", event.OwnerID,
		"resource_type", event.ResourceType,
		"resource_id", event.ResourceID,
		"occurred_at", event.OccurredAt,
	)
}
