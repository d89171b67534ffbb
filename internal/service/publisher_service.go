package service

import (
	"context"
	"encoding/json"
	"fmt"

	"ai-docqa-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
)

// Publisher is the publishing half of the in-process event bus
type Publisher interface {
	Publish(topic string, messages ...*message.Message) error
}

type IPublisherService interface {
	Publish(ctx context.Context, event events.Event) error
}

type publisherService struct {
	topicName string
	pubSub    Publisher
}

func NewPublisherService(topicName string, pubSub Publisher) IPublisherService {
	return &publisherService{
		topicName: topicName,
		pubSub:    pubSub,
	}
}

// Publish puts a pipeline event on the bus. The event id is the message uuid.
func (p *publisherService) Publish(ctx context.Context, event events.Event) error {
	payload, err := json.Marshal(events.BaseEvent{
		ID:         event.EventID(),
		Type:       event.EventType(),
		Data:       event.Payload(),
		OccurredAt: event.Timestamp(),
	})
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event.EventType(), err)
	}

	msg := message.NewMessage(event.EventID(), payload)
	msg.SetContext(ctx)
	msg.Metadata.Set("event_type", event.EventType())

	return p.pubSub.Publish(p.topicName, msg)
}
