package outbox

import (
	"fmt"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/components/forwarder"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/sirupsen/logrus"
)

// AddForwarder registers on router a handler moving committed outbox rows to publisher.
func AddForwarder(
	router *message.Router,
	pgSubscriber message.Subscriber,
	publisher message.Publisher,
	logger watermill.LoggerAdapter,
) error {
	_, err := forwarder.NewForwarder(pgSubscriber, publisher, logger, forwarder.Config{
		ForwarderTopic: topic,
		Router:         router,
		Middlewares:    []message.HandlerMiddleware{logForwarded},
	})
	if err != nil {
		return fmt.Errorf("could not create outbox forwarder: %w", err)
	}

	return nil
}

func logForwarded(next message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		log.FromContext(msg.Context()).WithFields(logrus.Fields{
			"message_uuid": msg.UUID,
			"outbox_topic": topic,
		}).Debug("Forwarding outbox message")

		return next(msg)
	}
}
