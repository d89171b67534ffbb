package service

import (
	"context"
	"encoding/json"

	"ai-docqa-be/internal/pkg/logger"
	"ai-docqa-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
)

const consumerModule = "CONSUMER"

// Subscriber is the consuming half of the in-process event bus
type Subscriber interface {
	Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error)
}

// Forwarder ships an event off-process. *nats.Publisher satisfies it.
type Forwarder interface {
	Publish(ctx context.Context, event events.Event) error
}

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	pubSub    Subscriber
	topicName string
	forwarder Forwarder
	logger    logger.ILogger
}

// NewConsumerService logs every pipeline event and forwards it when forwarder is non-nil
func NewConsumerService(pubSub Subscriber, topicName string, forwarder Forwarder, log logger.ILogger) IConsumerService {
	return &consumerService{
		pubSub:    pubSub,
		topicName: topicName,
		forwarder: forwarder,
		logger:    log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var evt events.BaseEvent
	if err := json.Unmarshal(msg.Payload, &evt); err != nil {
		cs.logger.Error(consumerModule, "Failed to unmarshal event", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		// malformed payloads would be redelivered forever
		msg.Ack()
		return
	}

	cs.logger.Info(consumerModule, "Event received", map[string]interface{}{
		"event_id":   evt.ID,
		"event_type": evt.Type,
		"data":       evt.Data,
	})

	if cs.forwarder != nil {
		if err := cs.forwarder.Publish(ctx, evt); err != nil {
			// events are best effort; a broker outage must not stall the bus
			cs.logger.Warn(consumerModule, "Failed to forward event", map[string]interface{}{
				"event_id":   evt.ID,
				"event_type": evt.Type,
				"error":      err.Error(),
			})
		}
	}
	msg.Ack()
}
