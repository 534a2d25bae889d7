package event

import (
	"fmt"

	"github.com/george-bobby/eventtts-sap-sub000/entities"

	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/ThreeDotsLabs/watermill/message"
)

const (
	// public events, other services may subscribe
	externalTopicPrefix = "events."
	internalTopicPrefix = "allocation.internal."
)

func NewBus(pub message.Publisher) (*cqrs.EventBus, error) {
	bus, err := cqrs.NewEventBusWithConfig(pub, cqrs.EventBusConfig{
		GeneratePublishTopic: func(params cqrs.GenerateEventPublishTopicParams) (string, error) {
			return topicFor(params.Event, params.EventName)
		},
		Marshaler: marshaler,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create event bus: %w", err)
	}

	return bus, nil
}

func topicFor(ev any, eventName string) (string, error) {
	e, ok := ev.(entities.IEvent)
	if !ok {
		return "", fmt.Errorf("%T is not an entities.IEvent", ev)
	}
	if e.IsInternal() {
		return internalTopicPrefix + eventName, nil
	}
	return externalTopicPrefix + eventName, nil
}
