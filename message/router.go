package message

import (
	"github.com/george-bobby/eventtts-sap-sub000/message/command"
	"github.com/george-bobby/eventtts-sap-sub000/message/event"
	"github.com/george-bobby/eventtts-sap-sub000/message/outbox"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/ThreeDotsLabs/watermill/message"
)

// NewWatermillRouter wires all handlers. pgSubscriber may be nil when the store
// publishes events directly instead of through the outbox.
func NewWatermillRouter(
	pgSubscriber message.Subscriber,
	publisher message.Publisher,
	commandProcessorConfig cqrs.CommandProcessorConfig,
	eventProcessorConfig cqrs.EventProcessorConfig,
	commandHandler command.Handler,
	eventHandler event.Handler,
	watermillLogger watermill.LoggerAdapter,
) (*message.Router, error) {
	router, err := message.NewRouter(message.RouterConfig{}, watermillLogger)
	if err != nil {
		return nil, err
	}

	useMiddlewares(router, watermillLogger)

	if pgSubscriber != nil {
		if err := outbox.AddForwarder(router, pgSubscriber, publisher, watermillLogger); err != nil {
			return nil, err
		}
	}

	eventProcessor, err := cqrs.NewEventProcessorWithConfig(router, eventProcessorConfig)
	if err != nil {
		return nil, err
	}

	commandProcessor, err := cqrs.NewCommandProcessorWithConfig(router, commandProcessorConfig)
	if err != nil {
		return nil, err
	}

	err = commandProcessor.AddHandlers(
		cqrs.NewCommandHandler(
			"RefundOrderPayment",
			commandHandler.RefundOrderPayment,
		),
	)
	if err != nil {
		return nil, err
	}

	err = eventProcessor.AddHandlers(
		cqrs.NewEventHandler(
			"ConfirmOrderPayment",
			eventHandler.ConfirmOrderPayment,
		),
		cqrs.NewEventHandler(
			"FailOrderPayment",
			eventHandler.FailOrderPayment,
		),
		cqrs.NewEventHandler(
			"IssueReceipt",
			eventHandler.IssueReceipt,
		),
		cqrs.NewEventHandler(
			"RefundCancelledOrder",
			eventHandler.RefundCancelledOrder,
		),
		cqrs.NewEventHandler(
			"SendOrderConfirmation",
			eventHandler.SendOrderConfirmation,
		),
		cqrs.NewEventHandler(
			"SendCancellationNotice",
			eventHandler.SendCancellationNotice,
		),
		cqrs.NewEventHandler(
			"AppendToTracker",
			eventHandler.AppendToTracker,
		),
		cqrs.NewEventHandler(
			"AppendToRefundTracker",
			eventHandler.AppendToRefundTracker,
		),
	)
	if err != nil {
		return nil, err
	}

	return router, nil
}
