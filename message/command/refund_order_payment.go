package command

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/george-bobby/eventtts-sap-sub000/entities"
)

func (h Handler) RefundOrderPayment(ctx context.Context, cmd *entities.RefundOrderPayment) error {
	log.FromContext(ctx).WithField("order_id", cmd.OrderID).Info("Refunding order payment")

	err := h.paymentsService.RefundPayment(ctx, entities.PaymentRefund{
		// the order id is the payment reference of the checkout session
		PaymentReference: cmd.OrderID.String(),
		Reason:           cmd.Reason,
		IdempotencyKey:   cmd.Header.IdempotencyKey,
	})
	if err != nil {
		return fmt.Errorf("could not refund payment: %w", err)
	}

	err = h.receiptsService.VoidReceipt(ctx, entities.VoidReceipt{
		OrderID:        cmd.OrderID.String(),
		Reason:         cmd.Reason,
		IdempotencyKey: cmd.Header.IdempotencyKey,
	})
	if err != nil {
		return fmt.Errorf("could not void receipt: %w", err)
	}

	err = h.eventBus.Publish(ctx, entities.OrderRefunded_v1{
		Header:  entities.NewEventHeaderWithIdempotencyKey(cmd.Header.IdempotencyKey),
		OrderID: cmd.OrderID,
		Amount:  cmd.Amount,
	})
	if err != nil {
		return fmt.Errorf("failed to publish OrderRefunded_v1 event: %w", err)
	}

	return nil
}
