package service

import (
	"context"

	"paperchat/internal/pkg/logger"
	"paperchat/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
)

// SessionEventDelivery pushes an encoded event to every connection of a scope.
type SessionEventDelivery interface {
	Send(scope string, payload []byte)
}

type ISessionEventConsumer interface {
	Consume(ctx context.Context) error
}

type sessionEventConsumer struct {
	subscriber message.Subscriber
	topic      string
	delivery   SessionEventDelivery
	logger     logger.ILogger
}

func NewSessionEventConsumer(subscriber message.Subscriber, topic string, delivery SessionEventDelivery, log logger.ILogger) ISessionEventConsumer {
	return &sessionEventConsumer{
		subscriber: subscriber,
		topic:      topic,
		delivery:   delivery,
		logger:     log,
	}
}

func (c *sessionEventConsumer) Consume(ctx context.Context) error {
	messages, err := c.subscriber.Subscribe(ctx, c.topic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			c.processMessage(msg)
		}
	}()

	return nil
}

func (c *sessionEventConsumer) processMessage(msg *message.Message) {
	event, err := events.Decode(msg.Payload)
	if err != nil {
		c.logger.Warn(eventsModule, "Dropping unreadable session event", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		msg.Ack() // never retry a payload that cannot be decoded
		return
	}

	scope := event.Scope()
	if scope == "" {
		c.logger.Warn(eventsModule, "Dropping unscoped session event", map[string]interface{}{
			"event_id": event.ID,
			"type":     event.Type,
		})
		msg.Ack()
		return
	}

	c.delivery.Send(scope, msg.Payload)
	msg.Ack()
}
