package command

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/ThreeDotsLabs/watermill/message"
)

const topicPrefix = "allocation.commands."

func commandTopic(commandName string) string {
	return topicPrefix + commandName
}

func NewBus(pub message.Publisher) (*cqrs.CommandBus, error) {
	bus, err := cqrs.NewCommandBusWithConfig(pub, cqrs.CommandBusConfig{
		GeneratePublishTopic: func(params cqrs.CommandBusGeneratePublishTopicParams) (string, error) {
			return commandTopic(params.CommandName), nil
		},
		Marshaler: marshaler,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create command bus: %w", err)
	}

	return bus, nil
}
