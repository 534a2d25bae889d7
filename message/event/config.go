package event

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/ThreeDotsLabs/watermill/message"
)

var marshaler = cqrs.JSONMarshaler{GenerateName: cqrs.StructName}

// SubscriberFactory creates a subscriber reading as the given consumer group.
type SubscriberFactory func(consumerGroup string) (message.Subscriber, error)

func NewProcessorConfig(newSubscriber SubscriberFactory, logger watermill.LoggerAdapter) cqrs.EventProcessorConfig {
	return cqrs.EventProcessorConfig{
		GenerateSubscribeTopic: func(params cqrs.EventProcessorGenerateSubscribeTopicParams) (string, error) {
			return topicFor(params.EventHandler.NewEvent(), params.EventName)
		},
		SubscriberConstructor: func(params cqrs.EventProcessorSubscriberConstructorParams) (message.Subscriber, error) {
			return newSubscriber("allocation.handlers." + params.HandlerName)
		},
		Marshaler: marshaler,
		Logger:    logger,
	}
}
