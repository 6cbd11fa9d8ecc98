package service

import (
	"context"
	"encoding/json"
	"fmt"

	"saas-notes-be/internal/pkg/logger"
	"saas-notes-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// EventForwarder ships events to an external bus. *nats.Publisher satisfies it.
type EventForwarder interface {
	Publish(ctx context.Context, event events.Event) error
}

type IPublisherService interface {
	Publish(ctx context.Context, event events.Event) error
}

type publisherService struct {
	publisher message.Publisher
	topicName string
	forwarder EventForwarder
	logger    logger.ILogger
}

// NewPublisherService publishes to the in-process bus and, when forwarder is
// non-nil, to the external bus as well. A forwarding failure is logged only.
func NewPublisherService(publisher message.Publisher, topicName string, forwarder EventForwarder, log logger.ILogger) IPublisherService {
	return &publisherService{
		publisher: publisher,
		topicName: topicName,
		forwarder: forwarder,
		logger:    log,
	}
}

func (s *publisherService) Publish(ctx context.Context, event events.Event) error {
	payload, err := json.Marshal(events.BaseEvent{
		Type:       event.EventType(),
		Data:       event.Payload(),
		OccurredAt: event.Timestamp(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", event.EventType(), err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("event_type", event.EventType())
	msg.SetContext(ctx)

	if err := s.publisher.Publish(s.topicName, msg); err != nil {
		return fmt.Errorf("failed to publish event %s: %w", event.EventType(), err)
	}

	if s.forwarder != nil {
		if err := s.forwarder.Publish(ctx, event); err != nil {
			s.logger.Warn("EVENTS", "Failed to forward event to NATS", map[string]interface{}{
				"event_type": event.EventType(),
				"error":      err.Error(),
			})
		}
	}
	return nil
}
