package command

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/ThreeDotsLabs/watermill/message"
)

var marshaler = cqrs.JSONMarshaler{GenerateName: cqrs.StructName}

// SubscriberFactory creates a subscriber reading as the given consumer group.
type SubscriberFactory func(consumerGroup string) (message.Subscriber, error)

func NewProcessorConfig(newSubscriber SubscriberFactory, logger watermill.LoggerAdapter) cqrs.CommandProcessorConfig {
	return cqrs.CommandProcessorConfig{
		GenerateSubscribeTopic: func(params cqrs.CommandProcessorGenerateSubscribeTopicParams) (string, error) {
			return commandTopic(params.CommandName), nil
		},
		SubscriberConstructor: func(params cqrs.CommandProcessorSubscriberConstructorParams) (message.Subscriber, error) {
			// one group per handler, so every handler gets each command once
			return newSubscriber(topicPrefix + params.HandlerName)
		},
		Marshaler: marshaler,
		Logger:    logger,
	}
}
