package command

import (
	"context"

	"github.com/george-bobby/eventtts-sap-sub000/entities"
)

type PaymentsService interface {
	RefundPayment(ctx context.Context, refund entities.PaymentRefund) error
}

type ReceiptsService interface {
	VoidReceipt(ctx context.Context, request entities.VoidReceipt) error
}

type EventPublisher interface {
	Publish(ctx context.Context, event any) error
}

type Handler struct {
	paymentsService PaymentsService
	receiptsService ReceiptsService
	eventBus        EventPublisher
}

func NewHandler(eventBus EventPublisher, paymentsService PaymentsService, receiptsService ReceiptsService) Handler {
	if eventBus == nil {
		panic("eventBus is required")
	}
	if paymentsService == nil {
		panic("paymentsService is required")
	}
	if receiptsService == nil {
		panic("receiptsService is required")
	}

	return Handler{
		eventBus:        eventBus,
		paymentsService: paymentsService,
		receiptsService: receiptsService,
	}
}
