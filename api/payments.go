package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ThreeDotsLabs/go-event-driven/common/clients"
	"github.com/ThreeDotsLabs/go-event-driven/common/clients/payments"
	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/george-bobby/eventtts-sap-sub000/entities"
)

// PaymentsServiceClient refunds captured order payments.
type PaymentsServiceClient struct {
	clients *clients.Clients
}

func NewPaymentsServiceClient(c *clients.Clients) *PaymentsServiceClient {
	if c == nil {
		panic("missing clients")
	}

	return &PaymentsServiceClient{clients: c}
}

func (c *PaymentsServiceClient) RefundPayment(ctx context.Context, refund entities.PaymentRefund) error {
	deduplicationID := refund.IdempotencyKey

	resp, err := c.clients.Payments.PutRefundsWithResponse(ctx, payments.PaymentRefundRequest{
		PaymentReference: refund.PaymentReference,
		Reason:           refund.Reason,
		DeduplicationId:  &deduplicationID,
	})
	if err != nil {
		return fmt.Errorf("could not refund payment %s: %w", refund.PaymentReference, err)
	}

	switch resp.StatusCode() {
	case http.StatusOK, http.StatusCreated:
		return nil
	case http.StatusConflict:
		// the payments service already refunded this reference
		log.FromContext(ctx).WithField("payment_reference", refund.PaymentReference).Info("Payment already refunded")
		return nil
	default:
		return fmt.Errorf("could not refund payment %s: status %d", refund.PaymentReference, resp.StatusCode())
	}
}
