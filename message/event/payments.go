package event

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/george-bobby/eventtts-sap-sub000/entities"
)

func (h Handler) ConfirmOrderPayment(ctx context.Context, event *entities.PaymentConfirmed_v1) error {
	log.FromContext(ctx).WithField("order_id", event.OrderID).Info("Confirming order payment")

	result, err := h.ledger.ConfirmPayment(ctx, event.OrderID)
	if err != nil {
		return fmt.Errorf("could not confirm payment of order %s: %w", event.OrderID, err)
	}

	if !result.Order.Cancelled() {
		return nil
	}

	// the buyer paid for an order that is no longer holding tickets
	return h.commandBus.Send(ctx, entities.NewRefundOrderPayment(result.Order, "payment confirmed after the order was cancelled"))
}

func (h Handler) FailOrderPayment(ctx context.Context, event *entities.PaymentFailed_v1) error {
	log.FromContext(ctx).WithField("order_id", event.OrderID).Info("Payment failed")

	return h.ledger.FailPayment(ctx, event.OrderID, event.Reason)
}

func (h Handler) IssueReceipt(ctx context.Context, event *entities.OrderPaid_v1) error {
	log.FromContext(ctx).Info("Issuing receipt")

	_, err := h.receiptsService.IssueReceipt(ctx, entities.IssueReceiptRequest{
		IdempotencyKey: event.Header.IdempotencyKey,
		OrderID:        event.Order.ID.String(),
		Price:          event.Order.Amount,
	})
	if err != nil {
		return fmt.Errorf("failed to issue receipt: %w", err)
	}

	return nil
}

func (h Handler) RefundCancelledOrder(ctx context.Context, event *entities.OrderCancelled_v1) error {
	if event.PreviousState != entities.PaymentPaid {
		return nil
	}

	return h.commandBus.Send(ctx, entities.NewRefundOrderPayment(event.Order, "order cancelled by the buyer"))
}
