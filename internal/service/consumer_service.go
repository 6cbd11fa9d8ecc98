package service

import (
	"context"
	"encoding/json"

	"saas-notes-be/internal/pkg/logger"
	"saas-notes-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService writes every note event to the log as an audit trail.
type consumerService struct {
	subscriber message.Subscriber
	topicName  string
	logger     logger.ILogger
}

func NewConsumerService(subscriber message.Subscriber, topicName string, log logger.ILogger) IConsumerService {
	return &consumerService{
		subscriber: subscriber,
		topicName:  topicName,
		logger:     log,
	}
}

// Consume subscribes and returns; messages are handled on a goroutine until
// ctx is cancelled or the subscriber closes.
func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(msg *message.Message) {
	var event events.BaseEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		cs.logger.Error("AUDIT", "Failed to decode note event", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		// Ack so a malformed message is not redelivered forever.
		msg.Ack()
		return
	}

	details := map[string]interface{}{
		"event_type":  event.Type,
		"occurred_at": event.OccurredAt,
	}
	for k, v := range event.Data {
		details[k] = v
	}
	cs.logger.Info("AUDIT", "Note event", details)
	msg.Ack()
}
